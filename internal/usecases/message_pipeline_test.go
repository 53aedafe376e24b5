package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
	"github.com/chatflow-ai/chatflow-server/internal/infrastructure"
	"github.com/chatflow-ai/chatflow-server/internal/interfaces"
)

type pipelineFixture struct {
	pipeline      *MessagePipeline
	accounts      *fakeAccounts
	agents        *fakeAgents
	conversations *fakeConversations
	messages      *fakeMessages
	usage         *fakeUsage
	ai            *fakeAI
	sender        *fakeSender
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		accounts: &fakeAccounts{accounts: []*entities.ConnectedAccount{
			{ID: "acct-1", BusinessID: "biz-1", Platform: entities.PlatformInstagram,
				AccountID: "page-1", Status: entities.AccountActive},
		}},
		agents: &fakeAgents{agents: []*entities.Agent{
			{ID: "agent-1", BusinessID: "biz-1", SystemPrompt: "Be helpful.",
				AIModel: DefaultModel, MaxTokens: 500, Status: entities.AgentActive},
		}},
		conversations: &fakeConversations{},
		messages:      &fakeMessages{},
		usage:         newFakeUsage(),
		ai:            &fakeAI{text: "Hello there!", inputTokens: 100, outputTokens: 20},
		sender:        &fakeSender{},
	}
	f.pipeline = &MessagePipeline{
		Accounts:      f.accounts,
		Agents:        f.agents,
		Conversations: f.conversations,
		Messages:      f.messages,
		Usage:         f.usage,
		Responder: NewRespondService(f.conversations, f.agents, f.messages,
			&fakeBusinesses{businesses: []*entities.Business{{ID: "biz-1", Name: "Acme"}}},
			f.usage, f.ai),
		Senders: map[string]interfaces.OutboundSender{
			entities.PlatformInstagram: f.sender,
		},
	}
	return f
}

func inboundDM(id string) entities.InboundMessage {
	return entities.InboundMessage{
		Platform:          entities.PlatformInstagram,
		CustomerID:        "cust-1",
		AccountID:         "page-1",
		Text:              "Do you ship to Canada?",
		Timestamp:         1700000000,
		PlatformMessageID: id,
	}
}

func TestPipelineNewCustomer(t *testing.T) {
	f := newPipelineFixture()

	result, err := f.pipeline.Handle(inboundDM("mid-1"))
	require.NoError(t, err)

	// A conversation was opened and bound to the active agent
	require.Len(t, f.conversations.conversations, 1)
	conv := f.conversations.conversations[0]
	assert.Equal(t, "biz-1", conv.BusinessID)
	assert.Equal(t, "agent-1", conv.AgentID)
	assert.Equal(t, entities.ConversationActive, conv.Status)
	assert.Equal(t, conv.ID, result.ConversationID)

	// Customer message and agent reply are both stored
	assert.Len(t, f.messages.byRole(entities.RoleUser), 1)
	assert.Len(t, f.messages.byRole(entities.RoleAssistant), 1)

	// The reply went back out on the same platform
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "cust-1", f.sender.sent[0].RecipientID)
	assert.Equal(t, "Hello there!", f.sender.sent[0].Text)

	assert.Equal(t, 1, f.usage.inbound["biz-1"])
	assert.Equal(t, 1, f.usage.outbound["biz-1"])
}

func TestPipelineReusesActiveConversation(t *testing.T) {
	f := newPipelineFixture()

	first, err := f.pipeline.Handle(inboundDM("mid-1"))
	require.NoError(t, err)
	second, err := f.pipeline.Handle(inboundDM("mid-2"))
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Len(t, f.conversations.conversations, 1)
}

func TestPipelineNoActiveAgent(t *testing.T) {
	f := newPipelineFixture()
	f.agents.agents[0].Status = entities.AgentPaused

	_, err := f.pipeline.Handle(inboundDM("mid-1"))
	assert.ErrorIs(t, err, ErrNoActiveAgent)

	// Fail closed: nothing stored, nothing sent
	assert.Empty(t, f.conversations.conversations)
	assert.Empty(t, f.messages.messages)
	assert.Empty(t, f.sender.sent)
}

func TestPipelineNoConnectedAccount(t *testing.T) {
	f := newPipelineFixture()

	msg := inboundDM("mid-1")
	msg.AccountID = "unknown-page"

	_, err := f.pipeline.Handle(msg)
	assert.ErrorIs(t, err, ErrNoConnectedAccount)
	assert.Empty(t, f.messages.messages)
}

func TestPipelineDropsRedelivery(t *testing.T) {
	f := newPipelineFixture()

	_, err := f.pipeline.Handle(inboundDM("mid-1"))
	require.NoError(t, err)

	result, err := f.pipeline.Handle(inboundDM("mid-1"))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)

	// Only the first delivery produced messages and a reply
	assert.Len(t, f.messages.byRole(entities.RoleUser), 1)
	assert.Len(t, f.sender.sent, 1)
	assert.Len(t, f.ai.calls, 1)
}

func TestPipelineEscalatedConversationStaysQuiet(t *testing.T) {
	f := newPipelineFixture()

	_, err := f.pipeline.Handle(inboundDM("mid-1"))
	require.NoError(t, err)
	require.Len(t, f.ai.calls, 1)

	f.conversations.conversations[0].Status = entities.ConversationEscalated
	result, err := f.pipeline.Handle(inboundDM("mid-2"))
	require.NoError(t, err)

	// The message is stored for the human operator but no reply goes out
	assert.Empty(t, result.Response)
	assert.Len(t, f.messages.byRole(entities.RoleUser), 2)
	assert.Len(t, f.ai.calls, 1)
	assert.Len(t, f.sender.sent, 1)
}

func TestPipelineResolvedThreadStartsFresh(t *testing.T) {
	f := newPipelineFixture()

	first, err := f.pipeline.Handle(inboundDM("mid-1"))
	require.NoError(t, err)

	f.conversations.conversations[0].Status = entities.ConversationResolved

	second, err := f.pipeline.Handle(inboundDM("mid-2"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ConversationID, second.ConversationID)
	assert.Len(t, f.conversations.conversations, 2)
}

// vanishingConversations simulates the creation race where the winner's row is
// closed before the loser's re-select sees it.
type vanishingConversations struct {
	*fakeConversations
}

func (v *vanishingConversations) CreateActive(conv *entities.Conversation) (*entities.Conversation, error) {
	return nil, nil
}

func TestPipelineConversationVanishesDuringCreation(t *testing.T) {
	f := newPipelineFixture()
	f.pipeline.Conversations = &vanishingConversations{f.conversations}

	_, err := f.pipeline.Handle(inboundDM("mid-1"))

	// Must surface an error for the provider to redeliver, not panic
	require.Error(t, err)
	assert.Empty(t, f.messages.messages)
	assert.Empty(t, f.sender.sent)
}

func TestPipelineRateLimitsFloods(t *testing.T) {
	f := newPipelineFixture()
	f.pipeline.Limiter = infrastructure.NewMessageRateLimiter(0.001, 1)

	first, err := f.pipeline.Handle(inboundDM("mid-1"))
	require.NoError(t, err)
	assert.False(t, first.RateLimited)

	second, err := f.pipeline.Handle(inboundDM("mid-2"))
	require.NoError(t, err)
	assert.True(t, second.RateLimited)

	// The flooded message is still stored; only the AI reply is skipped
	assert.Len(t, f.messages.byRole(entities.RoleUser), 2)
	assert.Len(t, f.ai.calls, 1)
}
