package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rethick-Jeganathan/Procura/internal/usecase"
)

// DependencyChecker reports the health of one backing dependency.
type DependencyChecker func(ctx context.Context) error

// HealthHandler exposes liveness, readiness, and sync health information.
type HealthHandler struct {
	startedAt time.Time
	sync      *usecase.SyncService
	checks    map[string]DependencyChecker
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(sync *usecase.SyncService, checks map[string]DependencyChecker) *HealthHandler {
	return &HealthHandler{
		startedAt: time.Now().UTC(),
		sync:      sync,
		checks:    checks,
	}
}

// Status godoc
// @Summary Service health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
	})
}

// Readiness godoc
// @Summary Dependency readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} ReadinessResponse
// @Failure 503 {object} ReadinessResponse
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ready"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, ReadinessResponse{Status: overall, Checks: results})
}

// SyncStatus godoc
// @Summary Identity/profile synchronization health
// @Description Compares identity and profile counts. A mismatch reports 503 until the backfill sweep repairs it.
// @Tags Health
// @Produce json
// @Success 200 {object} SyncStatusResponse
// @Failure 503 {object} SyncStatusResponse
// @Router /api/v1/admin/sync/status [get]
func (h *HealthHandler) SyncStatus(c *gin.Context) {
	report, err := h.sync.Divergence(c.Request.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrSyncDivergence) {
			c.JSON(http.StatusServiceUnavailable, SyncStatusResponse{
				Status:     "diverged",
				Identities: report.Identities,
				Profiles:   report.Profiles,
				CheckedAt:  report.CheckedAt,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "sync status check failed"))
		return
	}

	c.JSON(http.StatusOK, SyncStatusResponse{
		Status:     "converged",
		Identities: report.Identities,
		Profiles:   report.Profiles,
		CheckedAt:  report.CheckedAt,
	})
}
