package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatflow-ai/chatflow-server/internal/entities"
)

func (h *Handler) CreateBusiness(c *gin.Context) {
	userID := getUserID(c)

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
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
	if len(name) > maxBusinessNameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be at most 255 characters"})
		return
	}

	business := &entities.Business{
		OwnerID:     userID,
		Name:        name,
		Description: SanitizeString(req.Description),
		Slug:        GenerateSlug(name),
	}
	if err := h.businessRepo.Create(business); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create business"})
		return
	}

	c.JSON(http.StatusCreated, business)
}

func (h *Handler) GetPrimaryBusiness(c *gin.Context) {
	userID := getUserID(c)

	business, err := h.businessRepo.GetPrimaryByOwner(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch business"})
		return
	}
	if business == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No business found"})
		return
	}

	c.JSON(http.StatusOK, business)
}

// requireOwnedBusiness resolves a business and verifies the caller owns it.
// Writes the error response and returns nil when the check fails.
func (h *Handler) requireOwnedBusiness(c *gin.Context, businessID string) *entities.Business {
	business, err := h.businessRepo.GetByID(businessID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch business"})
		return nil
	}
	if business == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Business not found"})
		return nil
	}
	if business.OwnerID != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil
	}
	return business
}

// primaryBusinessOrCreate returns the caller's primary business, creating one
// from the onboarding payload when the user has none yet.
func (h *Handler) primaryBusinessOrCreate(userID, name, description string) (*entities.Business, error) {
	business, err := h.businessRepo.GetPrimaryByOwner(userID)
	if err != nil {
		return nil, err
	}
	if business != nil {
		return business, nil
	}

	if name == "" {
		name = "My Business"
	}
	business = &entities.Business{
		OwnerID:     userID,
		Name:        name,
		Description: description,
		Slug:        GenerateSlug(name),
	}
	if err := h.businessRepo.Create(business); err != nil {
		return nil, err
	}
	return business, nil
}
