package entities

import "time"

// Plan tiers
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

type Business struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
	Plan        string    `json:"plan"`
	IsPrimary   bool      `json:"is_primary"` // explicit default business for the owner
	CreatedAt   time.Time `json:"created_at"`
}
