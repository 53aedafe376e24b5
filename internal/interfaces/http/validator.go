package http

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

const (
	maxNameLength         = 255
	maxTextFieldLength    = 10000
	minAgentMaxTokens     = 100
	maxAgentMaxTokens     = 4096
	maxBusinessNameLength = 255
	maxSlugLength         = 50
)

// ValidateEmail checks basic email shape
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > maxNameLength {
		return fmt.Errorf("email must be at most %d characters", maxNameLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword checks minimum strength
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return fmt.Errorf("password must be at most 72 characters")
	}
	return nil
}

// SanitizeString trims and strips control characters
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\t' || r >= 32 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// agentUpdate carries the updatable agent fields. Pointer fields distinguish
// "absent" from zero values.
type agentUpdate struct {
	Name               *string  `json:"name"`
	SystemPrompt       *string  `json:"system_prompt"`
	Status             *string  `json:"status"`
	AIModel            *string  `json:"ai_model"`
	Temperature        *float64 `json:"temperature"`
	MaxTokens          *int     `json:"max_tokens"`
	Goal               *string  `json:"goal"`
	Tone               *string  `json:"tone"`
	CustomInstructions *string  `json:"custom_instructions"`
	Knowledge          *string  `json:"knowledge"`
}

// validateAgentUpdate validates the provided fields and applies them to agent.
// Returns a descriptive error on the first invalid field.
func validateAgentUpdate(agent *entities.Agent, upd *agentUpdate) error {
	if upd.Name != nil {
		name := SanitizeString(*upd.Name)
		if name == "" {
			return fmt.Errorf("name cannot be empty")
		}
		if len(name) > maxNameLength {
			return fmt.Errorf("name must be at most %d characters", maxNameLength)
		}
		agent.Name = name
	}
	if upd.SystemPrompt != nil {
		agent.SystemPrompt = truncate(SanitizeString(*upd.SystemPrompt), maxTextFieldLength)
	}
	if upd.Status != nil {
		if !entities.ValidAgentStatus(*upd.Status) {
			return fmt.Errorf("status must be one of: active, paused, draft")
		}
		agent.Status = *upd.Status
	}
	if upd.AIModel != nil {
		agent.AIModel = SanitizeString(*upd.AIModel)
	}
	if upd.Temperature != nil {
		if *upd.Temperature < 0 || *upd.Temperature > 1 {
			return fmt.Errorf("temperature must be between 0 and 1")
		}
		agent.Temperature = *upd.Temperature
	}
	if upd.MaxTokens != nil {
		if *upd.MaxTokens < minAgentMaxTokens || *upd.MaxTokens > maxAgentMaxTokens {
			return fmt.Errorf("max_tokens must be between %d and %d", minAgentMaxTokens, maxAgentMaxTokens)
		}
		agent.MaxTokens = *upd.MaxTokens
	}
	if upd.Goal != nil {
		agent.Goal = truncate(SanitizeString(*upd.Goal), maxTextFieldLength)
	}
	if upd.Tone != nil {
		agent.Tone = truncate(SanitizeString(*upd.Tone), maxTextFieldLength)
	}
	if upd.CustomInstructions != nil {
		agent.CustomInstructions = truncate(SanitizeString(*upd.CustomInstructions), maxTextFieldLength)
	}
	if upd.Knowledge != nil {
		agent.Knowledge = truncate(SanitizeString(*upd.Knowledge), maxTextFieldLength)
	}
	return nil
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// GenerateSlug builds a URL-safe slug from a business name. A timestamp
// suffix keeps slugs unique without a round trip to the database.
func GenerateSlug(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.Trim(slug, "-")
	}
	if slug == "" {
		slug = "business"
	}
	return fmt.Sprintf("%s-%d", slug, time.Now().UnixMilli())
}
