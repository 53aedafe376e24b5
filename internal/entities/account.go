package entities

import (
	"encoding/json"
	"time"
)

// Supported messaging platforms
const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformWhatsApp  = "whatsapp"
	PlatformTikTok    = "tiktok"
)

// Connected account statuses
const (
	AccountActive       = "active"
	AccountExpired      = "expired"
	AccountError        = "error"
	AccountDisconnected = "disconnected"
)

// ConnectedAccount is one external messaging account linked to a business.
type ConnectedAccount struct {
	ID             string          `json:"id"`
	BusinessID     string          `json:"business_id"`
	Platform       string          `json:"platform"`
	AccountID      string          `json:"account_id"`   // platform-side id (page id, IG business id, phone number id)
	AccountName    string          `json:"account_name"`
	AccessToken    string          `json:"-"`
	RefreshToken   string          `json:"-"`
	TokenExpiresAt *time.Time      `json:"token_expires_at,omitempty"`
	Status         string          `json:"status"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func ValidPlatform(p string) bool {
	switch p {
	case PlatformInstagram, PlatformFacebook, PlatformWhatsApp, PlatformTikTok:
		return true
	}
	return false
}
