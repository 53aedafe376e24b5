package usecases

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

// In-memory fakes for the store ports. Not safe for concurrent use; tests run
// them single-threaded.

type fakeAccounts struct {
	accounts []*entities.ConnectedAccount
}

func (f *fakeAccounts) GetByPlatformAccount(platform, accountID string) (*entities.ConnectedAccount, error) {
	for _, a := range f.accounts {
		if a.Platform == platform && a.AccountID == accountID && a.Status == entities.AccountActive {
			return a, nil
		}
	}
	return nil, nil
}

type fakeAgents struct {
	agents []*entities.Agent
}

func (f *fakeAgents) GetByID(id string) (*entities.Agent, error) {
	for _, a := range f.agents {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAgents) GetActiveByBusiness(businessID string) (*entities.Agent, error) {
	for _, a := range f.agents {
		if a.BusinessID == businessID && a.Status == entities.AgentActive {
			return a, nil
		}
	}
	return nil, nil
}

type fakeConversations struct {
	conversations []*entities.Conversation
}

func (f *fakeConversations) GetByID(id string) (*entities.Conversation, error) {
	for _, c := range f.conversations {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeConversations) GetActive(businessID, platformUserID string) (*entities.Conversation, error) {
	for _, c := range f.conversations {
		if c.BusinessID == businessID && c.PlatformUserID == platformUserID && c.Status == entities.ConversationActive {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeConversations) GetOpen(businessID, platformUserID string) (*entities.Conversation, error) {
	for _, c := range f.conversations {
		if c.BusinessID == businessID && c.PlatformUserID == platformUserID && c.Status != entities.ConversationResolved {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeConversations) CreateActive(conv *entities.Conversation) (*entities.Conversation, error) {
	if existing, _ := f.GetActive(conv.BusinessID, conv.PlatformUserID); existing != nil {
		return existing, nil
	}
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	conv.Status = entities.ConversationActive
	conv.CreatedAt = time.Now()
	conv.LastMessageAt = time.Now()
	f.conversations = append(f.conversations, conv)
	return conv, nil
}

func (f *fakeConversations) BumpCounters(id string, messageCount int, lastMessageAt time.Time) error {
	for _, c := range f.conversations {
		if c.ID == id {
			c.MessageCount = messageCount
			c.LastMessageAt = lastMessageAt
			return nil
		}
	}
	return nil
}

type fakeMessages struct {
	messages []*entities.Message
}

func (f *fakeMessages) Insert(msg *entities.Message) error {
	if msg.PlatformMessageID != "" {
		for _, m := range f.messages {
			if m.PlatformMessageID == msg.PlatformMessageID {
				return errors.New(`duplicate key value violates unique constraint "messages_platform_message_id"`)
			}
		}
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMessages) ListByConversation(conversationID string, limit int) ([]entities.Message, error) {
	out := []entities.Message{}
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeMessages) PlatformMessageExists(platformMessageID string) (bool, error) {
	for _, m := range f.messages {
		if platformMessageID != "" && m.PlatformMessageID == platformMessageID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMessages) byRole(role string) []*entities.Message {
	out := []*entities.Message{}
	for _, m := range f.messages {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

type fakeBusinesses struct {
	businesses []*entities.Business
}

func (f *fakeBusinesses) GetByID(id string) (*entities.Business, error) {
	for _, b := range f.businesses {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

type fakeUsage struct {
	inbound  map[string]int
	outbound map[string]int
	cost     map[string]float64
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{
		inbound:  map[string]int{},
		outbound: map[string]int{},
		cost:     map[string]float64{},
	}
}

func (f *fakeUsage) RecordInbound(businessID string) error {
	f.inbound[businessID]++
	return nil
}

func (f *fakeUsage) RecordOutbound(businessID string, cost float64) error {
	f.outbound[businessID]++
	f.cost[businessID] += cost
	return nil
}

// fakeAI returns a canned completion and records what it was called with.
type fakeAI struct {
	text         string
	inputTokens  int
	outputTokens int
	err          error

	calls []fakeAICall
}

type fakeAICall struct {
	Model       string
	MaxTokens   int
	Temperature float64
	System      string
	UserMessage string
}

func (f *fakeAI) CreateMessage(model string, maxTokens int, temperature float64, system, userMessage string) (*entities.Completion, error) {
	f.calls = append(f.calls, fakeAICall{model, maxTokens, temperature, system, userMessage})
	if f.err != nil {
		return nil, f.err
	}
	return &entities.Completion{
		Text:         f.text,
		InputTokens:  f.inputTokens,
		OutputTokens: f.outputTokens,
	}, nil
}

// fakeSender records outbound replies.
type fakeSender struct {
	sent []fakeSent
	err  error
}

type fakeSent struct {
	AccountID   string
	RecipientID string
	Text        string
}

func (f *fakeSender) SendReply(account *entities.ConnectedAccount, recipientID, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, fakeSent{account.ID, recipientID, text})
	return nil
}
