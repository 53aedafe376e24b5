package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = "id, business_id, platform, account_id, account_name, access_token, refresh_token, token_expires_at, status, metadata, created_at"

func scanAccount(row pgx.Row) (*entities.ConnectedAccount, error) {
	var a entities.ConnectedAccount
	err := row.Scan(&a.ID, &a.BusinessID, &a.Platform, &a.AccountID, &a.AccountName,
		&a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt, &a.Status, &a.Metadata, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert creates the link or refreshes the token of an existing one.
// Reconnecting a platform also reactivates a disconnected row.
func (r *AccountRepository) Upsert(a *entities.ConnectedAccount) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = entities.AccountActive
	}
	if len(a.Metadata) == 0 {
		a.Metadata = []byte("{}")
	}
	return r.db.QueryRow(context.Background(), `
		INSERT INTO connected_accounts (id, business_id, platform, account_id, account_name, access_token, refresh_token, token_expires_at, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (business_id, platform, account_id) DO UPDATE SET
			account_name = EXCLUDED.account_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata
		RETURNING id, created_at
	`, a.ID, a.BusinessID, a.Platform, a.AccountID, a.AccountName, a.AccessToken,
		a.RefreshToken, a.TokenExpiresAt, a.Status, a.Metadata).Scan(&a.ID, &a.CreatedAt)
}

// GetByPlatformAccount resolves the connected account an inbound webhook
// belongs to. Only active links are considered.
func (r *AccountRepository) GetByPlatformAccount(platform, accountID string) (*entities.ConnectedAccount, error) {
	return scanAccount(r.db.QueryRow(context.Background(),
		"SELECT "+accountColumns+" FROM connected_accounts WHERE platform = $1 AND account_id = $2 AND status = 'active'",
		platform, accountID))
}

func (r *AccountRepository) GetByID(id string) (*entities.ConnectedAccount, error) {
	return scanAccount(r.db.QueryRow(context.Background(),
		"SELECT "+accountColumns+" FROM connected_accounts WHERE id = $1", id))
}

func (r *AccountRepository) ListByBusiness(businessID string) ([]entities.ConnectedAccount, error) {
	rows, err := r.db.Query(context.Background(),
		"SELECT "+accountColumns+" FROM connected_accounts WHERE business_id = $1 ORDER BY created_at", businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []entities.ConnectedAccount{}
	for rows.Next() {
		var a entities.ConnectedAccount
		if err := rows.Scan(&a.ID, &a.BusinessID, &a.Platform, &a.AccountID, &a.AccountName,
			&a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt, &a.Status, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (r *AccountRepository) UpdateStatus(id, status string) error {
	_, err := r.db.Exec(context.Background(),
		"UPDATE connected_accounts SET status = $1 WHERE id = $2", status, id)
	return err
}
