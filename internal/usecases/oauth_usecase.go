package usecases

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

// StateMaxAge is how long an OAuth state token stays valid.
const StateMaxAge = 10 * time.Minute

// OAuthState rides through the provider redirect for CSRF continuity.
// It carries no signature; it is not tamper-proof.
type OAuthState struct {
	BusinessID string `json:"business_id"`
	Timestamp  int64  `json:"timestamp"` // unix milliseconds
}

// OAuthUsecase builds authorize URLs and state tokens for platform connects.
type OAuthUsecase struct {
	AppID   string
	BaseURL string // public app base URL, no trailing slash

	// now is swappable for tests
	now func() time.Time
}

func NewOAuthUsecase(appID, baseURL string) *OAuthUsecase {
	return &OAuthUsecase{
		AppID:   appID,
		BaseURL: baseURL,
		now:     time.Now,
	}
}

// RedirectURI is the callback the provider sends the user back to.
func (uc *OAuthUsecase) RedirectURI(platform string) string {
	return uc.BaseURL + "/api/connect/" + platform + "/callback"
}

// EncodeState produces base64 JSON of {business_id, timestamp}.
func (uc *OAuthUsecase) EncodeState(businessID string) string {
	state := OAuthState{
		BusinessID: businessID,
		Timestamp:  uc.now().UnixMilli(),
	}
	data, _ := json.Marshal(state)
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeState reverses EncodeState and rejects tokens older than ten minutes.
// Malformed and expired tokens both come back nil; callers only need to know
// the state is invalid.
func (uc *OAuthUsecase) DecodeState(token string) *OAuthState {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	var state OAuthState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil
	}
	if state.BusinessID == "" {
		return nil
	}

	age := uc.now().UnixMilli() - state.Timestamp
	if age > StateMaxAge.Milliseconds() {
		return nil
	}
	return &state
}

// platform OAuth scopes
var oauthScopes = map[string]string{
	entities.PlatformInstagram: "instagram_business_basic,instagram_business_manage_messages",
	entities.PlatformFacebook:  "pages_show_list,pages_messaging,pages_read_engagement",
	entities.PlatformWhatsApp:  "whatsapp_business_messaging,whatsapp_business_management",
}

var oauthAuthorizeURLs = map[string]string{
	entities.PlatformInstagram: "https://www.instagram.com/oauth/authorize",
	entities.PlatformFacebook:  "https://www.facebook.com/v19.0/dialog/oauth",
	entities.PlatformWhatsApp:  "https://www.facebook.com/v19.0/dialog/oauth",
}

// AuthorizeURL builds the provider's authorization redirect for a platform.
func (uc *OAuthUsecase) AuthorizeURL(platform, state string) (string, error) {
	base, ok := oauthAuthorizeURLs[platform]
	if !ok {
		return "", fmt.Errorf("platform %s does not support OAuth connect", platform)
	}

	params := url.Values{
		"client_id":     {uc.AppID},
		"redirect_uri":  {uc.RedirectURI(platform)},
		"scope":         {oauthScopes[platform]},
		"response_type": {"code"},
		"state":         {state},
	}
	return base + "?" + params.Encode(), nil
}
