package usecases

import (
	"errors"
	"fmt"
	"time"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
	"github.com/chatflow-ai/chatflow-server/internal/interfaces"
)

// historyWindow is how many trailing messages feed the prompt.
const historyWindow = 10

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrAgentNotFound        = errors.New("agent not found")
)

// SideEffect records the outcome of a best-effort step that must not fail the
// primary operation. A non-nil Err is logged and surfaced, never propagated.
type SideEffect struct {
	Step string
	Err  error
}

// RespondResult is the outcome of one agent reply.
type RespondResult struct {
	MessageID     string  `json:"message_id"`
	Response      string  `json:"response"`
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	TotalTokens   int     `json:"totalTokens"`
	EstimatedCost float64 `json:"estimatedCost"`

	SideEffects []SideEffect `json:"-"`
}

// RespondService runs the prompt-build -> model-call -> persist sequence for
// one incoming customer message.
type RespondService struct {
	Conversations interfaces.ConversationStore
	Agents        interfaces.AgentStore
	Messages      interfaces.MessageStore
	Businesses    interfaces.BusinessStore
	Usage         interfaces.UsageStore
	AI            interfaces.AIClient
}

func NewRespondService(
	conversations interfaces.ConversationStore,
	agents interfaces.AgentStore,
	messages interfaces.MessageStore,
	businesses interfaces.BusinessStore,
	usage interfaces.UsageStore,
	ai interfaces.AIClient,
) *RespondService {
	return &RespondService{
		Conversations: conversations,
		Agents:        agents,
		Messages:      messages,
		Businesses:    businesses,
		Usage:         usage,
		AI:            ai,
	}
}

// Respond generates and persists the agent's reply to incomingMessage within a
// conversation. The incoming customer message is expected to be stored already.
func (s *RespondService) Respond(conversationID, incomingMessage, agentID string) (*RespondResult, error) {
	conv, err := s.Conversations.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	agent, err := s.Agents.GetByID(agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil || agent.BusinessID != conv.BusinessID {
		return nil, ErrAgentNotFound
	}

	history, err := s.Messages.ListByConversation(conversationID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation history: %w", err)
	}

	promptCtx := PromptContext{Agent: agent, History: history}
	if business, err := s.Businesses.GetByID(conv.BusinessID); err == nil && business != nil {
		promptCtx.BusinessName = business.Name
		promptCtx.BusinessDescription = business.Description
	}

	model := agent.AIModel
	if model == "" {
		model = DefaultModel
	}
	maxTokens := agent.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}

	completion, err := s.AI.CreateMessage(model, maxTokens, agent.Temperature,
		BuildSystemPrompt(promptCtx), BuildUserMessage(incomingMessage))
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	cost := CalculateTokenCost(completion.InputTokens, completion.OutputTokens, model)

	reply := &entities.Message{
		ConversationID: conversationID,
		Role:           entities.RoleAssistant,
		Content:        completion.Text,
		Metadata: entities.MessageMetadata{
			AIModel:    model,
			TokensUsed: cost.TotalTokens,
			Cost:       cost.EstimatedCost,
		},
		CreatedAt: time.Now(),
	}
	if err := s.Messages.Insert(reply); err != nil {
		return nil, fmt.Errorf("failed to save agent response: %w", err)
	}

	result := &RespondResult{
		MessageID:     reply.ID,
		Response:      completion.Text,
		InputTokens:   cost.InputTokens,
		OutputTokens:  cost.OutputTokens,
		TotalTokens:   cost.TotalTokens,
		EstimatedCost: cost.EstimatedCost,
	}

	// Denormalized counters and usage rollups are best-effort: the reply is
	// already saved, so their failures are recorded, not propagated.
	if err := s.Conversations.BumpCounters(conversationID, len(history)+2, reply.CreatedAt); err != nil {
		fmt.Printf("[Respond] counter update failed for conversation %s: %v\n", conversationID, err)
		result.SideEffects = append(result.SideEffects, SideEffect{Step: "bump_counters", Err: err})
	}
	if err := s.Usage.RecordOutbound(conv.BusinessID, cost.EstimatedCost); err != nil {
		fmt.Printf("[Respond] usage update failed for business %s: %v\n", conv.BusinessID, err)
		result.SideEffects = append(result.SideEffects, SideEffect{Step: "record_usage", Err: err})
	}

	return result, nil
}
