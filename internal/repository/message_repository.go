package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Insert(msg *entities.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return err
	}

	var platformMessageID interface{}
	if msg.PlatformMessageID != "" {
		platformMessageID = msg.PlatformMessageID
	}

	_, err = r.db.Exec(context.Background(), `
		INSERT INTO messages (id, conversation_id, role, content, platform_message_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.ConversationID, msg.Role, msg.Content, platformMessageID, metadata, msg.CreatedAt)
	return err
}

// ListByConversation returns the trailing messages in chronological order.
func (r *MessageRepository) ListByConversation(conversationID string, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(context.Background(), `
		SELECT id, conversation_id, role, content, COALESCE(platform_message_id, ''), metadata, created_at
		FROM (
			SELECT * FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		var metadata []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.PlatformMessageID, &metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			json.Unmarshal(metadata, &m.Metadata)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// PlatformMessageExists reports whether a provider message id was already
// processed. Gates the pipeline against webhook redelivery.
func (r *MessageRepository) PlatformMessageExists(platformMessageID string) (bool, error) {
	if platformMessageID == "" {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRow(context.Background(),
		"SELECT EXISTS (SELECT 1 FROM messages WHERE platform_message_id = $1)",
		platformMessageID).Scan(&exists)
	return exists, err
}
