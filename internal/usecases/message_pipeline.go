package usecases

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
	"github.com/chatflow-ai/chatflow-server/internal/infrastructure"
	"github.com/chatflow-ai/chatflow-server/internal/interfaces"
)

var (
	ErrNoConnectedAccount = errors.New("no connected account for this page")
	ErrNoActiveAgent      = errors.New("no active agent for this business")
)

// PipelineResult is the outcome of handling one inbound customer DM.
type PipelineResult struct {
	ConversationID string
	BusinessID     string
	AgentID        string
	Response       string

	Duplicate   bool // provider redelivered a message we already processed
	RateLimited bool // stored the message but skipped the AI reply

	SideEffects []SideEffect
}

// MessagePipeline is the inbound path: webhook (or WhatsApp event) ->
// conversation resolution -> agent response -> outbound post.
type MessagePipeline struct {
	Accounts      interfaces.AccountStore
	Agents        interfaces.AgentStore
	Conversations interfaces.ConversationStore
	Messages      interfaces.MessageStore
	Usage         interfaces.UsageStore
	Responder     *RespondService

	// Senders maps platform -> outbound transport for posting replies.
	Senders map[string]interfaces.OutboundSender

	// Limiter guards the model call against floods from a single customer.
	Limiter *infrastructure.MessageRateLimiter
}

// Handle runs the full inbound pipeline for one normalized message.
// The provider gets its 200 as long as resolution succeeds; the outbound post
// is best-effort.
func (p *MessagePipeline) Handle(msg entities.InboundMessage) (*PipelineResult, error) {
	// Redelivery gate: most DM platforms redeliver webhooks until acked.
	if msg.PlatformMessageID != "" {
		seen, err := p.Messages.PlatformMessageExists(msg.PlatformMessageID)
		if err != nil {
			return nil, err
		}
		if seen {
			return &PipelineResult{Duplicate: true}, nil
		}
	}

	account, err := p.Accounts.GetByPlatformAccount(msg.Platform, msg.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNoConnectedAccount
	}

	conv, err := p.resolveConversation(account, msg)
	if err != nil {
		return nil, err
	}

	inbound := &entities.Message{
		ConversationID:    conv.ID,
		Role:              entities.RoleUser,
		Content:           msg.Text,
		PlatformMessageID: msg.PlatformMessageID,
		Metadata:          entities.MessageMetadata{Platform: msg.Platform},
		CreatedAt:         time.Unix(msg.Timestamp, 0),
	}
	if err := p.Messages.Insert(inbound); err != nil {
		// A unique violation here means a concurrent delivery of the same
		// provider message won the insert; treat it like the dedup gate.
		if msg.PlatformMessageID != "" && strings.Contains(err.Error(), "duplicate key") {
			return &PipelineResult{Duplicate: true, ConversationID: conv.ID}, nil
		}
		return nil, fmt.Errorf("failed to save inbound message: %w", err)
	}

	result := &PipelineResult{
		ConversationID: conv.ID,
		BusinessID:     conv.BusinessID,
		AgentID:        conv.AgentID,
	}

	if err := p.Usage.RecordInbound(conv.BusinessID); err != nil {
		fmt.Printf("[Pipeline] inbound usage update failed: %v\n", err)
		result.SideEffects = append(result.SideEffects, SideEffect{Step: "record_usage", Err: err})
	}

	// Escalated conversations belong to a human; the agent stays quiet.
	if conv.Status == entities.ConversationEscalated {
		return result, nil
	}

	if p.Limiter != nil && !p.Limiter.Allow(msg.Platform+":"+msg.CustomerID) {
		fmt.Printf("[Pipeline] rate limited customer %s on %s\n", msg.CustomerID, msg.Platform)
		result.RateLimited = true
		return result, nil
	}

	respond, err := p.Responder.Respond(conv.ID, msg.Text, conv.AgentID)
	if err != nil {
		return nil, err
	}
	result.Response = respond.Response
	result.SideEffects = append(result.SideEffects, respond.SideEffects...)

	// Post the reply back to the provider. Failures are swallowed so the
	// webhook still acks receipt and the provider stops redelivering.
	if sender, ok := p.Senders[msg.Platform]; ok {
		if err := sender.SendReply(account, msg.CustomerID, respond.Response); err != nil {
			fmt.Printf("[Pipeline] failed to post reply to %s: %v\n", msg.Platform, err)
			result.SideEffects = append(result.SideEffects, SideEffect{Step: "post_reply", Err: err})
		}
	} else {
		result.SideEffects = append(result.SideEffects, SideEffect{
			Step: "post_reply",
			Err:  fmt.Errorf("no outbound sender registered for %s", msg.Platform),
		})
	}

	return result, nil
}

// resolveConversation finds the customer's open thread or starts one bound to
// the business's active agent. Fails closed when no active agent exists.
func (p *MessagePipeline) resolveConversation(account *entities.ConnectedAccount, msg entities.InboundMessage) (*entities.Conversation, error) {
	conv, err := p.Conversations.GetOpen(account.BusinessID, msg.CustomerID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	agent, err := p.Agents.GetActiveByBusiness(account.BusinessID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrNoActiveAgent
	}

	name := msg.CustomerName
	if name == "" {
		name = displayName(msg.Platform, msg.CustomerID)
	}

	conv, err = p.Conversations.CreateActive(&entities.Conversation{
		BusinessID:             account.BusinessID,
		AgentID:                agent.ID,
		ConnectedAccountID:     account.ID,
		PlatformConversationID: msg.Platform + "-" + msg.CustomerID,
		PlatformUserID:         msg.CustomerID,
		PlatformUserName:       name,
	})
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation vanished while being created for %s", msg.CustomerID)
	}
	return conv, nil
}

// displayName fabricates a readable label from the tail of the customer id.
func displayName(platform, customerID string) string {
	tail := customerID
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	label := platform
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return label + " User " + tail
}
