package http

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
	"github.com/chatflow-ai/chatflow-server/internal/infrastructure"
)

// connectedAccountView hides tokens from API responses.
type connectedAccountView struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"`
	AccountID   string    `json:"account_id"`
	AccountName string    `json:"account_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) ListPlatforms(c *gin.Context) {
	userID := getUserID(c)

	business, err := h.businessRepo.GetPrimaryByOwner(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch business"})
		return
	}
	if business == nil {
		c.JSON(http.StatusOK, gin.H{"accounts": []connectedAccountView{}})
		return
	}

	accounts, err := h.accountRepo.ListByBusiness(business.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch accounts"})
		return
	}

	views := make([]connectedAccountView, 0, len(accounts))
	for _, a := range accounts {
		// Flag accounts whose token ran out so the dashboard can prompt a reconnect
		status := a.Status
		if a.TokenExpiresAt != nil && a.TokenExpiresAt.Before(time.Now()) && status == entities.AccountActive {
			status = entities.AccountExpired
		}
		views = append(views, connectedAccountView{
			ID:          a.ID,
			Platform:    a.Platform,
			AccountID:   a.AccountID,
			AccountName: a.AccountName,
			Status:      status,
			CreatedAt:   a.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"accounts": views})
}

// StartOAuth redirects the business owner to the platform's authorization page
// with a short-lived state token identifying their business.
func (h *Handler) StartOAuth(c *gin.Context) {
	userID := getUserID(c)
	platform := c.Param("platform")

	if !entities.ValidPlatform(platform) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported platform"})
		return
	}

	business, err := h.businessRepo.GetPrimaryByOwner(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch business"})
		return
	}
	if business == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Create a business before connecting platforms"})
		return
	}

	state := h.oauthUsecase.EncodeState(business.ID)
	authURL, err := h.oauthUsecase.AuthorizeURL(platform, state)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// OAuthCallback receives the provider redirect. All failure paths redirect to
// the dashboard with an error code rather than rendering JSON, because the
// caller here is a browser coming back from instagram.com or facebook.com.
func (h *Handler) OAuthCallback(c *gin.Context) {
	platform := c.Param("platform")
	dashboard := h.cfg.AppBaseURL + "/dashboard/platforms"

	if errParam := c.Query("error"); errParam != "" {
		fmt.Printf("[OAuth] %s authorization denied: %s\n", platform, errParam)
		c.Redirect(http.StatusFound, dashboard+"?error=access_denied")
		return
	}

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, dashboard+"?error=missing_code")
		return
	}

	state := h.oauthUsecase.DecodeState(c.Query("state"))
	if state == nil {
		c.Redirect(http.StatusFound, dashboard+"?error=invalid_state")
		return
	}

	business, err := h.businessRepo.GetByID(state.BusinessID)
	if err != nil || business == nil {
		c.Redirect(http.StatusFound, dashboard+"?error=invalid_state")
		return
	}

	token := h.meta.ExchangeCode(code, h.oauthUsecase.RedirectURI(platform))
	if token == nil {
		c.Redirect(http.StatusFound, dashboard+"?error=token_exchange_failed")
		return
	}

	accountID := token.UserID
	accountName := token.UserName
	if info := h.meta.GetAccountInfo(token.AccessToken, token.UserID); info != nil {
		accountID = info.AccountID
		accountName = info.AccountName
	}

	account := &entities.ConnectedAccount{
		BusinessID:  business.ID,
		Platform:    platform,
		AccountID:   accountID,
		AccountName: accountName,
		AccessToken: token.AccessToken,
		Status:      entities.AccountActive,
	}
	if err := h.accountRepo.Upsert(account); err != nil {
		fmt.Printf("[OAuth] failed to save %s account: %v\n", platform, err)
		c.Redirect(http.StatusFound, dashboard+"?error=save_failed")
		return
	}

	c.Redirect(http.StatusFound, dashboard+"?connected="+platform)
}

func (h *Handler) DisconnectPlatform(c *gin.Context) {
	account, err := h.accountRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch account"})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	if h.requireOwnedBusiness(c, account.BusinessID) == nil {
		return
	}

	if err := h.accountRepo.UpdateStatus(account.ID, entities.AccountDisconnected); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disconnect account"})
		return
	}

	// Device-linked WhatsApp also needs its session dropped
	if account.Platform == entities.PlatformWhatsApp && h.waManager != nil {
		if err := h.waManager.LogoutClient(account.BusinessID); err != nil {
			fmt.Printf("[WhatsApp] logout during disconnect failed: %v\n", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account disconnected"})
}

// ConnectWhatsApp starts the device-link flow. The client connects and begins
// emitting pairing QR codes, which the frontend polls via WhatsAppQR.
func (h *Handler) ConnectWhatsApp(c *gin.Context) {
	business, ok := h.primaryBusinessOrAbort(c)
	if !ok {
		return
	}

	client, err := h.waManager.ConnectClient(business.ID)
	if err != nil {
		fmt.Printf("[WhatsApp] connect failed for business %s: %v\n", business.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start WhatsApp connection"})
		return
	}

	if client.IsLoggedIn() {
		h.upsertWhatsAppAccount(business.ID, client)
		c.JSON(http.StatusOK, gin.H{"status": "connected"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "pairing", "message": "Scan the QR code to link your device"})
}

// WhatsAppQR returns the current pairing QR as a base64 PNG.
func (h *Handler) WhatsAppQR(c *gin.Context) {
	business, ok := h.primaryBusinessOrAbort(c)
	if !ok {
		return
	}

	client := h.waManager.GetClient(business.ID)
	if client == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No WhatsApp connection in progress"})
		return
	}

	if client.IsLoggedIn() {
		h.upsertWhatsAppAccount(business.ID, client)
		c.JSON(http.StatusOK, gin.H{"status": "connected"})
		return
	}

	code := client.GetQR()
	if code == "" {
		c.JSON(http.StatusAccepted, gin.H{"status": "waiting", "message": "QR code not ready yet"})
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pairing",
		"qr":     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}

func (h *Handler) WhatsAppStatus(c *gin.Context) {
	business, ok := h.primaryBusinessOrAbort(c)
	if !ok {
		return
	}

	client := h.waManager.GetClient(business.ID)
	if client == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "logged_in": false})
		return
	}

	phone, name := client.GetDeviceInfo()
	c.JSON(http.StatusOK, gin.H{
		"connected": client.IsConnected(),
		"logged_in": client.IsLoggedIn(),
		"phone":     phone,
		"name":      name,
	})
}

func (h *Handler) LogoutWhatsApp(c *gin.Context) {
	business, ok := h.primaryBusinessOrAbort(c)
	if !ok {
		return
	}

	if err := h.waManager.LogoutClient(business.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// upsertWhatsAppAccount records a successfully paired device as a connected
// account so the webhook pipeline can route its messages.
func (h *Handler) upsertWhatsAppAccount(businessID string, client *infrastructure.WhatsAppClient) {
	phone, name := client.GetDeviceInfo()
	if phone == "" {
		return
	}
	if name == "" {
		name = "WhatsApp " + phone
	}
	account := &entities.ConnectedAccount{
		BusinessID:  businessID,
		Platform:    entities.PlatformWhatsApp,
		AccountID:   phone,
		AccountName: name,
		AccessToken: "device-linked",
		Status:      entities.AccountActive,
	}
	if err := h.accountRepo.Upsert(account); err != nil {
		fmt.Printf("[WhatsApp] failed to save connected account: %v\n", err)
	}
}

func (h *Handler) primaryBusinessOrAbort(c *gin.Context) (*entities.Business, bool) {
	business, err := h.businessRepo.GetPrimaryByOwner(getUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch business"})
		return nil, false
	}
	if business == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No business found"})
		return nil, false
	}
	return business, true
}
