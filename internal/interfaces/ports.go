package interfaces

import (
	"time"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

type AIClient interface {
	CreateMessage(model string, maxTokens int, temperature float64, system, userMessage string) (*entities.Completion, error)
}

// OutboundSender posts a reply back to the platform an inbound message came from.
type OutboundSender interface {
	SendReply(account *entities.ConnectedAccount, recipientID, text string) error
}

type AccountStore interface {
	GetByPlatformAccount(platform, accountID string) (*entities.ConnectedAccount, error)
}

type AgentStore interface {
	GetByID(id string) (*entities.Agent, error)
	GetActiveByBusiness(businessID string) (*entities.Agent, error)
}

type ConversationStore interface {
	GetByID(id string) (*entities.Conversation, error)
	GetActive(businessID, platformUserID string) (*entities.Conversation, error)
	GetOpen(businessID, platformUserID string) (*entities.Conversation, error)
	CreateActive(conv *entities.Conversation) (*entities.Conversation, error)
	BumpCounters(id string, messageCount int, lastMessageAt time.Time) error
}

type MessageStore interface {
	Insert(msg *entities.Message) error
	ListByConversation(conversationID string, limit int) ([]entities.Message, error)
	PlatformMessageExists(platformMessageID string) (bool, error)
}

type BusinessStore interface {
	GetByID(id string) (*entities.Business, error)
}

type UsageStore interface {
	RecordInbound(businessID string) error
	RecordOutbound(businessID string, cost float64) error
}
