package entities

import "time"

// Message roles
const (
	RoleUser      = "user"      // external customer
	RoleAssistant = "assistant" // AI agent
	RoleSystem    = "system"    // human operator
)

// Message is one turn in a conversation. Immutable once created.
type Message struct {
	ID                string          `json:"id"`
	ConversationID    string          `json:"conversation_id"`
	Role              string          `json:"role"`
	Content           string          `json:"content"`
	PlatformMessageID string          `json:"platform_message_id,omitempty"` // provider id, used for dedup
	Metadata          MessageMetadata `json:"metadata"`
	CreatedAt         time.Time       `json:"created_at"`
}

type MessageMetadata struct {
	Platform   string  `json:"platform,omitempty"`
	AIModel    string  `json:"ai_model,omitempty"`
	TokensUsed int     `json:"tokens_used,omitempty"`
	Cost       float64 `json:"cost,omitempty"`
}

// InboundMessage is the provider-neutral shape of an incoming customer DM,
// produced by the webhook parser or the WhatsApp event handler.
type InboundMessage struct {
	Platform          string
	CustomerID        string // platform-side sender id
	AccountID         string // platform-side page/account id that received the DM
	Text              string
	Timestamp         int64 // unix seconds from the provider
	PlatformMessageID string
	CustomerName      string
}

// Completion is the result of one model call.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}
