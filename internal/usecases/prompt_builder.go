package usecases

import (
	"strings"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

// PromptContext is everything the system prompt is assembled from.
type PromptContext struct {
	Agent               *entities.Agent
	BusinessName        string
	BusinessDescription string
	History             []entities.Message
}

// BuildSystemPrompt assembles the system prompt: agent instructions, business
// context, the house-style directive, and the trailing conversation history.
// Pure string concatenation; identical input produces byte-identical output.
func BuildSystemPrompt(ctx PromptContext) string {
	var lines []string

	lines = append(lines, "# Agent Instructions")
	lines = append(lines, ctx.Agent.SystemPrompt)
	lines = append(lines, "")

	if ctx.BusinessName != "" || ctx.BusinessDescription != "" {
		lines = append(lines, "# Business Context")
		if ctx.BusinessName != "" {
			lines = append(lines, "Business Name: "+ctx.BusinessName)
		}
		if ctx.BusinessDescription != "" {
			lines = append(lines, "Business Description: "+ctx.BusinessDescription)
		}
		lines = append(lines, "")
	}

	lines = append(lines, "# Important")
	lines = append(lines, "You are an AI customer service agent. Respond naturally and helpfully.")
	lines = append(lines, "Keep responses concise (under 150 words unless more detail is needed).")
	lines = append(lines, "")

	if len(ctx.History) > 0 {
		lines = append(lines, "# Conversation History")
		for _, msg := range ctx.History {
			lines = append(lines, historyRoleLabel(msg.Role)+": "+msg.Content)
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// BuildUserMessage wraps the incoming customer message into the final user turn.
func BuildUserMessage(incoming string) string {
	return "Customer: " + incoming + "\n\nRespond as the AI agent:"
}

func historyRoleLabel(role string) string {
	switch role {
	case entities.RoleUser:
		return "Customer"
	case entities.RoleAssistant:
		return "You"
	default:
		return "System"
	}
}
