package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
	"github.com/chatflow-ai/chatflow-server/internal/infrastructure"
	"github.com/chatflow-ai/chatflow-server/internal/usecases"
)

// VerifyWebhook answers Meta's GET handshake. The challenge must be echoed
// back as plain text for the subscription to activate.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mode"})
		return
	}
	if !infrastructure.VerifyWebhookToken(token, h.cfg.WebhookVerifyToken) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
		return
	}

	c.String(http.StatusOK, challenge)
}

// webhookEvent mirrors Meta's entry/messaging envelope.
type webhookEvent struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"` // page / business account id
		Time      int64  `json:"time"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Recipient struct {
				ID string `json:"id"`
			} `json:"recipient"`
			Timestamp int64 `json:"timestamp"`
			Message   struct {
				MID  string `json:"mid"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// platformFromObject maps the webhook envelope's object field to a platform.
func platformFromObject(object string) string {
	switch object {
	case "instagram":
		return entities.PlatformInstagram
	case "page":
		return entities.PlatformFacebook
	case "whatsapp_business_account":
		return entities.PlatformWhatsApp
	}
	return ""
}

// ReceiveWebhook handles inbound DM events. Meta redelivers until it sees a
// 200, so everything past conversation resolution acks regardless of outcome.
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	var event webhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	platform := platformFromObject(event.Object)
	if platform == "" || len(event.Entry) == 0 || len(event.Entry[0].Messaging) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	entry := event.Entry[0]
	messaging := entry.Messaging[0]
	if messaging.Message.Text == "" {
		// Delivery receipts, reactions and other non-text events are acked
		// without processing
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	accountID := messaging.Recipient.ID
	if accountID == "" {
		accountID = entry.ID
	}

	msg := entities.InboundMessage{
		Platform:          platform,
		CustomerID:        messaging.Sender.ID,
		AccountID:         accountID,
		Text:              messaging.Message.Text,
		Timestamp:         messaging.Timestamp / 1000, // Meta sends milliseconds
		PlatformMessageID: messaging.Message.MID,
	}

	result, err := h.pipeline.Handle(msg)
	if err != nil {
		// Fail closed: an unknown account or a business with no active agent
		// cannot resolve a conversation, and that is a server-side error.
		if errors.Is(err, usecases.ErrNoConnectedAccount) || errors.Is(err, usecases.ErrNoActiveAgent) {
			fmt.Printf("[Webhook] cannot resolve conversation for account %s on %s: %v\n", accountID, platform, err)
		} else {
			fmt.Printf("[Webhook] pipeline error: %v\n", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to create conversation"})
		return
	}

	if result.Duplicate {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
