package entities

import "time"

// Conversation statuses. Resolved is terminal.
const (
	ConversationActive    = "active"
	ConversationResolved  = "resolved"
	ConversationEscalated = "escalated"
)

// Conversation is one thread with one external end-user on one connected platform.
type Conversation struct {
	ID                     string    `json:"id"`
	BusinessID             string    `json:"business_id"`
	AgentID                string    `json:"agent_id"`
	ConnectedAccountID     string    `json:"connected_account_id"`
	PlatformConversationID string    `json:"platform_conversation_id"`
	PlatformUserID         string    `json:"platform_user_id"`
	PlatformUserName       string    `json:"platform_user_name"`
	Status                 string    `json:"status"`
	MessageCount           int       `json:"message_count"`
	CreatedAt              time.Time `json:"created_at"`
	LastMessageAt          time.Time `json:"last_message_at"`
}

func ValidConversationStatus(s string) bool {
	switch s {
	case ConversationActive, ConversationResolved, ConversationEscalated:
		return true
	}
	return false
}
