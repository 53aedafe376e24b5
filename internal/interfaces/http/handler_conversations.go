package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

func (h *Handler) ListConversations(c *gin.Context) {
	userID := getUserID(c)

	business, err := h.businessRepo.GetPrimaryByOwner(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch business"})
		return
	}
	if business == nil {
		c.JSON(http.StatusOK, gin.H{"conversations": []entities.Conversation{}})
		return
	}

	conversations, err := h.conversationRepo.ListByBusiness(business.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	if status := c.Query("status"); status != "" {
		filtered := []entities.Conversation{}
		for _, conv := range conversations {
			if conv.Status == status {
				filtered = append(filtered, conv)
			}
		}
		conversations = filtered
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (h *Handler) GetConversation(c *gin.Context) {
	conversation := h.requireOwnedConversation(c)
	if conversation == nil {
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// UpdateConversationStatus moves a conversation between active, escalated and
// resolved. Resolved is terminal; reopening requires a new conversation.
func (h *Handler) UpdateConversationStatus(c *gin.Context) {
	conversation := h.requireOwnedConversation(c)
	if conversation == nil {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	if !entities.ValidConversationStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: active, resolved, escalated"})
		return
	}
	if conversation.Status == entities.ConversationResolved {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resolved conversations cannot be reopened"})
		return
	}

	if err := h.conversationRepo.UpdateStatus(conversation.ID, req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update conversation"})
		return
	}
	conversation.Status = req.Status

	c.JSON(http.StatusOK, conversation)
}

func (h *Handler) ListMessages(c *gin.Context) {
	conversation := h.requireOwnedConversation(c)
	if conversation == nil {
		return
	}

	messages, err := h.messageRepo.ListByConversation(conversation.ID, 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// CreateMessage appends a manual note from the dashboard, stored as a system
// message so it shows up in the AI's conversation history.
func (h *Handler) CreateMessage(c *gin.Context) {
	conversation := h.requireOwnedConversation(c)
	if conversation == nil {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	content := SanitizeString(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content cannot be empty"})
		return
	}

	msg := &entities.Message{
		ConversationID: conversation.ID,
		Role:           entities.RoleSystem,
		Content:        truncate(content, maxTextFieldLength),
	}
	if err := h.messageRepo.Insert(msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}

	if err := h.conversationRepo.BumpCounters(conversation.ID, conversation.MessageCount+1, time.Now()); err != nil {
		fmt.Printf("[Conversations] counter update failed for %s: %v\n", conversation.ID, err)
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) requireOwnedConversation(c *gin.Context) *entities.Conversation {
	conversation, err := h.conversationRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
		return nil
	}
	if conversation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return nil
	}
	if h.requireOwnedBusiness(c, conversation.BusinessID) == nil {
		return nil
	}
	return conversation
}
