package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
	"github.com/chatflow-ai/chatflow-server/internal/usecases"
)

// CreateAgent handles the onboarding flow: it creates the user's business on
// first use, then the agent itself.
func (h *Handler) CreateAgent(c *gin.Context) {
	userID := getUserID(c)

	var req struct {
		BusinessName        string   `json:"business_name"`
		BusinessDescription string   `json:"business_description"`
		Name                string   `json:"name" binding:"required"`
		Goal                string   `json:"goal"`
		Tone                string   `json:"tone"`
		CustomInstructions  string   `json:"custom_instructions"`
		Knowledge           string   `json:"knowledge"`
		AIModel             string   `json:"ai_model"`
		Temperature         *float64 `json:"temperature"`
		MaxTokens           *int     `json:"max_tokens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	name := SanitizeString(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
		return
	}
	if len(name) > maxNameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be at most 255 characters"})
		return
	}
	if SanitizeString(req.Goal) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "goal is required"})
		return
	}

	business, err := h.primaryBusinessOrCreate(userID, SanitizeString(req.BusinessName), SanitizeString(req.BusinessDescription))
	if err != nil {
		fmt.Printf("[Agents] Failed to resolve business for %s: %v\n", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create business"})
		return
	}

	agent := &entities.Agent{
		BusinessID:         business.ID,
		Name:               name,
		AIProvider:         "anthropic",
		AIModel:            usecases.DefaultModel,
		Temperature:        0.7,
		MaxTokens:          500,
		Status:             entities.AgentActive,
		Goal:               truncate(SanitizeString(req.Goal), maxTextFieldLength),
		Tone:               truncate(SanitizeString(req.Tone), maxTextFieldLength),
		CustomInstructions: truncate(SanitizeString(req.CustomInstructions), maxTextFieldLength),
		Knowledge:          truncate(SanitizeString(req.Knowledge), maxTextFieldLength),
	}

	upd := &agentUpdate{AIModel: nilIfEmpty(req.AIModel), Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	if err := validateAgentUpdate(agent, upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.agentRepo.Create(agent); err != nil {
		fmt.Printf("[Agents] Failed to create agent: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create agent"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"agent": agent, "business": business})
}

func (h *Handler) ListAgents(c *gin.Context) {
	userID := getUserID(c)

	business, err := h.businessRepo.GetPrimaryByOwner(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch business"})
		return
	}
	if business == nil {
		c.JSON(http.StatusOK, gin.H{"agents": []entities.Agent{}})
		return
	}

	agents, err := h.agentRepo.ListByBusiness(business.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch agents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

func (h *Handler) GetAgent(c *gin.Context) {
	agent := h.requireOwnedAgent(c)
	if agent == nil {
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (h *Handler) UpdateAgent(c *gin.Context) {
	agent := h.requireOwnedAgent(c)
	if agent == nil {
		return
	}

	var upd agentUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := validateAgentUpdate(agent, &upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.agentRepo.Update(agent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update agent"})
		return
	}

	c.JSON(http.StatusOK, agent)
}

// GenerateResponse runs the AI pipeline for a conversation on demand, used by
// the dashboard's reply suggestion button.
func (h *Handler) GenerateResponse(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversation_id" binding:"required"`
		Message        string `json:"message" binding:"required"`
		AgentID        string `json:"agent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id, message and agent_id are required"})
		return
	}

	conversation, err := h.conversationRepo.GetByID(req.ConversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
		return
	}
	if conversation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if h.requireOwnedBusiness(c, conversation.BusinessID) == nil {
		return
	}

	result, err := h.responder.Respond(req.ConversationID, req.Message, req.AgentID)
	if err != nil {
		switch {
		case errors.Is(err, usecases.ErrAgentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		case errors.Is(err, usecases.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		default:
			fmt.Printf("[Respond] Generation failed for conversation %s: %v\n", req.ConversationID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate response"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) requireOwnedAgent(c *gin.Context) *entities.Agent {
	agent, err := h.agentRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch agent"})
		return nil
	}
	if agent == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return nil
	}
	if h.requireOwnedBusiness(c, agent.BusinessID) == nil {
		return nil
	}
	return agent
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
