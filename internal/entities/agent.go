package entities

import "time"

// Agent statuses
const (
	AgentActive = "active"
	AgentPaused = "paused"
	AgentDraft  = "draft"
)

func ValidAgentStatus(s string) bool {
	switch s {
	case AgentActive, AgentPaused, AgentDraft:
		return true
	}
	return false
}

// Agent is a configured AI persona belonging to one business.
type Agent struct {
	ID           string    `json:"id"`
	BusinessID   string    `json:"business_id"`
	Name         string    `json:"name"`
	SystemPrompt string    `json:"system_prompt"`
	AIProvider   string    `json:"ai_provider"`
	AIModel      string    `json:"ai_model"`
	Temperature  float64   `json:"temperature"` // 0..1
	MaxTokens    int       `json:"max_tokens"`  // 100..4096
	Status       string    `json:"status"`

	// Personality configuration from the onboarding wizard
	Goal               string `json:"goal"`
	Tone               string `json:"tone"`
	CustomInstructions string `json:"custom_instructions"`
	Knowledge          string `json:"knowledge"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
