package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

type BusinessRepository struct {
	db *pgxpool.Pool
}

func NewBusinessRepository(db *pgxpool.Pool) *BusinessRepository {
	return &BusinessRepository{db: db}
}

const businessColumns = "id, owner_id, name, description, slug, plan, is_primary, created_at"

func scanBusiness(row pgx.Row) (*entities.Business, error) {
	var b entities.Business
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.Slug, &b.Plan, &b.IsPrimary, &b.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a business. The owner's first business becomes the primary one.
func (r *BusinessRepository) Create(b *entities.Business) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Plan == "" {
		b.Plan = entities.PlanFree
	}

	var count int
	if err := r.db.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM businesses WHERE owner_id = $1", b.OwnerID).Scan(&count); err != nil {
		return err
	}
	b.IsPrimary = count == 0

	return r.db.QueryRow(context.Background(), `
		INSERT INTO businesses (id, owner_id, name, description, slug, plan, is_primary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, b.ID, b.OwnerID, b.Name, b.Description, b.Slug, b.Plan, b.IsPrimary).Scan(&b.CreatedAt)
}

func (r *BusinessRepository) GetByID(id string) (*entities.Business, error) {
	return scanBusiness(r.db.QueryRow(context.Background(),
		"SELECT "+businessColumns+" FROM businesses WHERE id = $1", id))
}

// GetPrimaryByOwner returns the owner's designated primary business.
func (r *BusinessRepository) GetPrimaryByOwner(ownerID string) (*entities.Business, error) {
	return scanBusiness(r.db.QueryRow(context.Background(),
		"SELECT "+businessColumns+" FROM businesses WHERE owner_id = $1 AND is_primary", ownerID))
}

func (r *BusinessRepository) ListByOwner(ownerID string) ([]entities.Business, error) {
	rows, err := r.db.Query(context.Background(),
		"SELECT "+businessColumns+" FROM businesses WHERE owner_id = $1 ORDER BY created_at", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	businesses := []entities.Business{}
	for rows.Next() {
		var b entities.Business
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.Slug, &b.Plan, &b.IsPrimary, &b.CreatedAt); err != nil {
			return nil, err
		}
		businesses = append(businesses, b)
	}
	return businesses, nil
}
