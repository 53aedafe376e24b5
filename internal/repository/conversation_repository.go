package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = "id, business_id, agent_id, connected_account_id, platform_conversation_id, platform_user_id, platform_user_name, status, message_count, created_at, last_message_at"

func scanConversation(row pgx.Row) (*entities.Conversation, error) {
	var c entities.Conversation
	err := row.Scan(&c.ID, &c.BusinessID, &c.AgentID, &c.ConnectedAccountID,
		&c.PlatformConversationID, &c.PlatformUserID, &c.PlatformUserName,
		&c.Status, &c.MessageCount, &c.CreatedAt, &c.LastMessageAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) GetByID(id string) (*entities.Conversation, error) {
	return scanConversation(r.db.QueryRow(context.Background(),
		"SELECT "+conversationColumns+" FROM conversations WHERE id = $1", id))
}

// GetActive returns the open thread for a customer within a business, if any.
func (r *ConversationRepository) GetActive(businessID, platformUserID string) (*entities.Conversation, error) {
	return scanConversation(r.db.QueryRow(context.Background(),
		"SELECT "+conversationColumns+" FROM conversations WHERE business_id = $1 AND platform_user_id = $2 AND status = 'active'",
		businessID, platformUserID))
}

// GetOpen returns the customer's non-resolved thread, preferring the active
// one. Escalated conversations stay open so follow-up messages land in them
// instead of spawning a new thread.
func (r *ConversationRepository) GetOpen(businessID, platformUserID string) (*entities.Conversation, error) {
	return scanConversation(r.db.QueryRow(context.Background(),
		"SELECT "+conversationColumns+" FROM conversations WHERE business_id = $1 AND platform_user_id = $2 AND status != 'resolved' ORDER BY status, last_message_at DESC LIMIT 1",
		businessID, platformUserID))
}

// CreateActive inserts a new active conversation. The partial unique index
// makes concurrent webhook deliveries for the same new customer collide here;
// on conflict the existing row is returned instead.
func (r *ConversationRepository) CreateActive(conv *entities.Conversation) (*entities.Conversation, error) {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	conv.Status = entities.ConversationActive

	err := r.db.QueryRow(context.Background(), `
		INSERT INTO conversations (id, business_id, agent_id, connected_account_id, platform_conversation_id, platform_user_id, platform_user_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
		ON CONFLICT (business_id, platform_user_id) WHERE status = 'active' DO NOTHING
		RETURNING created_at, last_message_at
	`, conv.ID, conv.BusinessID, conv.AgentID, conv.ConnectedAccountID,
		conv.PlatformConversationID, conv.PlatformUserID, conv.PlatformUserName).
		Scan(&conv.CreatedAt, &conv.LastMessageAt)

	if err == pgx.ErrNoRows {
		// Lost the race; somebody else created it. The winner's row may have
		// been escalated already, so look for any open thread, and error out
		// if it was resolved in the window (the caller retries on redelivery).
		existing, selErr := r.GetOpen(conv.BusinessID, conv.PlatformUserID)
		if selErr != nil {
			return nil, selErr
		}
		if existing == nil {
			return nil, fmt.Errorf("conversation for %s closed during creation", conv.PlatformUserID)
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *ConversationRepository) ListByBusiness(businessID string) ([]entities.Conversation, error) {
	rows, err := r.db.Query(context.Background(),
		"SELECT "+conversationColumns+" FROM conversations WHERE business_id = $1 ORDER BY last_message_at DESC",
		businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []entities.Conversation{}
	for rows.Next() {
		var c entities.Conversation
		if err := rows.Scan(&c.ID, &c.BusinessID, &c.AgentID, &c.ConnectedAccountID,
			&c.PlatformConversationID, &c.PlatformUserID, &c.PlatformUserName,
			&c.Status, &c.MessageCount, &c.CreatedAt, &c.LastMessageAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, nil
}

func (r *ConversationRepository) UpdateStatus(id, status string) error {
	_, err := r.db.Exec(context.Background(),
		"UPDATE conversations SET status = $1 WHERE id = $2", status, id)
	return err
}

// BumpCounters updates the denormalized message count and last-message time.
// Callers treat failures as best-effort.
func (r *ConversationRepository) BumpCounters(id string, messageCount int, lastMessageAt time.Time) error {
	_, err := r.db.Exec(context.Background(),
		"UPDATE conversations SET message_count = $1, last_message_at = $2 WHERE id = $3",
		messageCount, lastMessageAt, id)
	return err
}
