package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RunMigrations applies the schema. Guarded by a deploy-time bearer key rather
// than user auth so it can run before any user exists.
func (h *Handler) RunMigrations(c *gin.Context) {
	if h.cfg.AdminMigrateKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	provided := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.cfg.AdminMigrateKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid key"})
		return
	}

	if err := h.db.Migrate(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Migration failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Migrations applied"})
}
