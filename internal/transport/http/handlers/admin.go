package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rethick-Jeganathan/Procura/internal/usecase"
)

// AdminHandler exposes operator-only synchronization endpoints.
type AdminHandler struct {
	sync *usecase.SyncService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(sync *usecase.SyncService) *AdminHandler {
	return &AdminHandler{sync: sync}
}

// RegisterRoutes binds the admin routes. The caller supplies the role guard.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, health *HealthHandler) {
	r.POST("/sync/backfill", h.backfill)
	if health != nil {
		r.GET("/sync/status", health.SyncStatus)
	}
}

// Backfill godoc
// @Summary Run the profile backfill sweep
// @Description Creates a profile for every identity lacking one. Safe to run repeatedly.
// @Tags Admin
// @Produce json
// @Success 200 {object} BackfillResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/admin/sync/backfill [post]
func (h *AdminHandler) backfill(c *gin.Context) {
	repaired, err := h.sync.Backfill(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "backfill failed"))
		return
	}

	c.JSON(http.StatusOK, BackfillResponse{Repaired: repaired})
}
