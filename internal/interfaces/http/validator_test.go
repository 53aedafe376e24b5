package http

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("owner@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("a@"+strings.Repeat("x", 300)+".com"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("longenough"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 80)))
}

func TestValidateAgentUpdateTemperature(t *testing.T) {
	agent := &entities.Agent{Temperature: 0.7}

	bad := 1.5
	err := validateAgentUpdate(agent, &agentUpdate{Temperature: &bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature")
	assert.Equal(t, 0.7, agent.Temperature, "invalid update must not mutate")

	negative := -0.1
	assert.Error(t, validateAgentUpdate(agent, &agentUpdate{Temperature: &negative}))

	ok := 0.3
	require.NoError(t, validateAgentUpdate(agent, &agentUpdate{Temperature: &ok}))
	assert.Equal(t, 0.3, agent.Temperature)

	// Boundaries are inclusive
	zero, one := 0.0, 1.0
	assert.NoError(t, validateAgentUpdate(agent, &agentUpdate{Temperature: &zero}))
	assert.NoError(t, validateAgentUpdate(agent, &agentUpdate{Temperature: &one}))
}

func TestValidateAgentUpdateMaxTokens(t *testing.T) {
	agent := &entities.Agent{MaxTokens: 500}

	low, high := 99, 5000
	assert.Error(t, validateAgentUpdate(agent, &agentUpdate{MaxTokens: &low}))
	assert.Error(t, validateAgentUpdate(agent, &agentUpdate{MaxTokens: &high}))
	assert.Equal(t, 500, agent.MaxTokens)

	min, max := 100, 4096
	assert.NoError(t, validateAgentUpdate(agent, &agentUpdate{MaxTokens: &min}))
	assert.NoError(t, validateAgentUpdate(agent, &agentUpdate{MaxTokens: &max}))
}

func TestValidateAgentUpdateStatus(t *testing.T) {
	agent := &entities.Agent{Status: entities.AgentDraft}

	bad := "archived"
	assert.Error(t, validateAgentUpdate(agent, &agentUpdate{Status: &bad}))
	assert.Equal(t, entities.AgentDraft, agent.Status)

	ok := entities.AgentActive
	require.NoError(t, validateAgentUpdate(agent, &agentUpdate{Status: &ok}))
	assert.Equal(t, entities.AgentActive, agent.Status)
}

func TestValidateAgentUpdateName(t *testing.T) {
	agent := &entities.Agent{Name: "Maya"}

	empty := "   "
	assert.Error(t, validateAgentUpdate(agent, &agentUpdate{Name: &empty}))

	long := strings.Repeat("x", 300)
	assert.Error(t, validateAgentUpdate(agent, &agentUpdate{Name: &long}))
	assert.Equal(t, "Maya", agent.Name)

	// Absent fields leave the agent untouched
	require.NoError(t, validateAgentUpdate(agent, &agentUpdate{}))
	assert.Equal(t, "Maya", agent.Name)
}

func TestGenerateSlug(t *testing.T) {
	slug := GenerateSlug("Bloom & Grow Florist!")
	assert.True(t, strings.HasPrefix(slug, "bloom-grow-florist-"), slug)
	for _, r := range slug {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
		assert.True(t, valid, "unexpected rune %q in slug %s", r, slug)
	}

	assert.True(t, strings.HasPrefix(GenerateSlug("!!!"), "business-"))

	long := GenerateSlug(strings.Repeat("very long business name ", 10))
	base := long[:strings.LastIndex(long, "-")]
	assert.LessOrEqual(t, len(base), maxSlugLength)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// "héllo" is 6 bytes; cutting at 2 lands inside the two-byte é
	assert.Equal(t, "h", truncate("héllo", 2))
	assert.Equal(t, "hé", truncate("héllo", 3))
	assert.Equal(t, "héllo", truncate("héllo", 10))

	long := strings.Repeat("日", 100)
	cut := truncate(long, 50)
	assert.True(t, utf8.ValidString(cut))
	assert.LessOrEqual(t, len(cut), 50)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeString("  hello world  "))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
	assert.Equal(t, "ab", SanitizeString("a\x00b\x07"))
}
