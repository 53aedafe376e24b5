package infrastructure

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

const graphAPIVersion = "v19.0"

// MetaClient talks to the Meta Graph API: authorization-code exchange, account
// metadata, and outbound DM posts for Instagram / Facebook / WhatsApp Cloud.
type MetaClient struct {
	appID      string
	appSecret  string
	graphURL   string
	igGraphURL string
	httpClient *http.Client
}

func NewMetaClient(appID, appSecret string) *MetaClient {
	return &MetaClient{
		appID:      appID,
		appSecret:  appSecret,
		graphURL:   "https://graph.facebook.com/" + graphAPIVersion,
		igGraphURL: "https://graph.instagram.com/" + graphAPIVersion,
		httpClient: http.DefaultClient,
	}
}

// NewMetaClientWithBaseURL points both Graph hosts at a stub server for tests.
func NewMetaClientWithBaseURL(appID, appSecret, baseURL string) *MetaClient {
	c := NewMetaClient(appID, appSecret)
	c.graphURL = baseURL
	c.igGraphURL = baseURL
	return c
}

// TokenResult is the useful subset of a successful code exchange.
type TokenResult struct {
	AccessToken string
	UserID      string
	UserName    string
}

// ExchangeCode swaps an authorization code for an access token. One POST, no
// retry; any failure yields nil.
func (m *MetaClient) ExchangeCode(code, redirectURI string) *TokenResult {
	params := url.Values{
		"client_id":     {m.appID},
		"client_secret": {m.appSecret},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}

	resp, err := m.httpClient.Post(
		m.graphURL+"/oauth/access_token",
		"application/x-www-form-urlencoded",
		strings.NewReader(params.Encode()),
	)
	if err != nil {
		fmt.Printf("[Meta] token exchange failed: %v\n", err)
		return nil
	}
	defer resp.Body.Close()

	var data struct {
		AccessToken string          `json:"access_token"`
		UserID      json.RawMessage `json:"user_id"` // string or number depending on provider
		UserName    string          `json:"user_name"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&data) != nil {
		fmt.Printf("[Meta] token exchange rejected: status %d\n", resp.StatusCode)
		return nil
	}

	userID := strings.Trim(string(data.UserID), `"`)
	if data.AccessToken == "" || userID == "" || userID == "null" {
		return nil
	}

	name := data.UserName
	if name == "" {
		name = "User " + userID
	}
	return &TokenResult{AccessToken: data.AccessToken, UserID: userID, UserName: name}
}

// AccountInfo is platform account metadata fetched after a code exchange.
type AccountInfo struct {
	AccountID   string
	AccountName string
}

// GetAccountInfo fetches the business account id and display name for a freshly
// connected user. Returns nil on any failure.
func (m *MetaClient) GetAccountInfo(accessToken, userID string) *AccountInfo {
	resp, err := m.httpClient.Get(fmt.Sprintf(
		"%s/%s?fields=user_id,username&access_token=%s",
		m.igGraphURL, userID, url.QueryEscape(accessToken),
	))
	if err != nil {
		fmt.Printf("[Meta] account info fetch failed: %v\n", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var data struct {
		UserID   json.RawMessage `json:"user_id"`
		Username string          `json:"username"`
	}
	if json.NewDecoder(resp.Body).Decode(&data) != nil {
		return nil
	}

	accountID := strings.Trim(string(data.UserID), `"`)
	if accountID == "" || accountID == "null" {
		accountID = userID
	}
	name := data.Username
	if name == "" {
		name = "User " + userID
	}
	return &AccountInfo{AccountID: accountID, AccountName: name}
}

// SendReply posts a text DM back to the customer through the Graph API,
// using the connected account's stored token.
func (m *MetaClient) SendReply(account *entities.ConnectedAccount, recipientID, text string) error {
	var endpoint string
	var payload map[string]interface{}

	switch account.Platform {
	case entities.PlatformInstagram:
		endpoint = fmt.Sprintf("%s/%s/messages", m.igGraphURL, account.AccountID)
		payload = map[string]interface{}{
			"recipient": map[string]string{"id": recipientID},
			"message":   map[string]string{"text": text},
		}
	case entities.PlatformFacebook:
		endpoint = fmt.Sprintf("%s/%s/messages", m.graphURL, account.AccountID)
		payload = map[string]interface{}{
			"recipient": map[string]string{"id": recipientID},
			"message":   map[string]string{"text": text},
		}
	case entities.PlatformWhatsApp:
		endpoint = fmt.Sprintf("%s/%s/messages", m.graphURL, account.AccountID)
		payload = map[string]interface{}{
			"messaging_product": "whatsapp",
			"to":                recipientID,
			"type":              "text",
			"text":              map[string]string{"body": text},
		}
	default:
		return fmt.Errorf("unsupported platform: %s", account.Platform)
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", endpoint, strings.NewReader(string(data)))
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("graph API error: status %d", resp.StatusCode)
	}
	return nil
}

// VerifyWebhookToken is the webhook-ownership handshake check.
func VerifyWebhookToken(provided, expected string) bool {
	return expected != "" && provided == expected
}
