package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

type AgentRepository struct {
	db *pgxpool.Pool
}

func NewAgentRepository(db *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{db: db}
}

const agentColumns = "id, business_id, name, system_prompt, ai_provider, ai_model, temperature, max_tokens, status, goal, tone, custom_instructions, knowledge, created_at, updated_at"

func scanAgent(row pgx.Row) (*entities.Agent, error) {
	var a entities.Agent
	err := row.Scan(&a.ID, &a.BusinessID, &a.Name, &a.SystemPrompt, &a.AIProvider, &a.AIModel,
		&a.Temperature, &a.MaxTokens, &a.Status, &a.Goal, &a.Tone, &a.CustomInstructions,
		&a.Knowledge, &a.CreatedAt, &a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AgentRepository) Create(a *entities.Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return r.db.QueryRow(context.Background(), `
		INSERT INTO agents (id, business_id, name, system_prompt, ai_provider, ai_model, temperature, max_tokens, status, goal, tone, custom_instructions, knowledge)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, a.ID, a.BusinessID, a.Name, a.SystemPrompt, a.AIProvider, a.AIModel, a.Temperature,
		a.MaxTokens, a.Status, a.Goal, a.Tone, a.CustomInstructions, a.Knowledge).
		Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AgentRepository) GetByID(id string) (*entities.Agent, error) {
	return scanAgent(r.db.QueryRow(context.Background(),
		"SELECT "+agentColumns+" FROM agents WHERE id = $1", id))
}

// GetActiveByBusiness returns the business's active agent, which handles all
// new conversations.
func (r *AgentRepository) GetActiveByBusiness(businessID string) (*entities.Agent, error) {
	return scanAgent(r.db.QueryRow(context.Background(),
		"SELECT "+agentColumns+" FROM agents WHERE business_id = $1 AND status = 'active' ORDER BY created_at LIMIT 1",
		businessID))
}

func (r *AgentRepository) ListByBusiness(businessID string) ([]entities.Agent, error) {
	rows, err := r.db.Query(context.Background(),
		"SELECT "+agentColumns+" FROM agents WHERE business_id = $1 ORDER BY created_at", businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := []entities.Agent{}
	for rows.Next() {
		var a entities.Agent
		if err := rows.Scan(&a.ID, &a.BusinessID, &a.Name, &a.SystemPrompt, &a.AIProvider, &a.AIModel,
			&a.Temperature, &a.MaxTokens, &a.Status, &a.Goal, &a.Tone, &a.CustomInstructions,
			&a.Knowledge, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func (r *AgentRepository) Update(a *entities.Agent) error {
	a.UpdatedAt = time.Now()
	_, err := r.db.Exec(context.Background(), `
		UPDATE agents SET name=$1, system_prompt=$2, ai_model=$3, temperature=$4, max_tokens=$5, status=$6,
			goal=$7, tone=$8, custom_instructions=$9, knowledge=$10, updated_at=$11
		WHERE id=$12
	`, a.Name, a.SystemPrompt, a.AIModel, a.Temperature, a.MaxTokens, a.Status,
		a.Goal, a.Tone, a.CustomInstructions, a.Knowledge, a.UpdatedAt, a.ID)
	return err
}
