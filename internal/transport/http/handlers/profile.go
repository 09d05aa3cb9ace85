package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/repository"
	"github.com/Rethick-Jeganathan/Procura/internal/transport/http/middleware"
)

// ProfileHandler exposes the authenticated user's profile.
type ProfileHandler struct {
	profiles port.ProfileRepository
	now      func() time.Time
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles port.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes binds the profile routes. All require authentication.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.me)
	r.PATCH("/me", h.update)
	r.POST("/me/heartbeat", h.heartbeat)
}

func authenticatedUserID(c *gin.Context) (string, bool) {
	val, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}

// Me godoc
// @Summary Fetch the authenticated user's profile
// @Tags Profile
// @Produce json
// @Success 200 {object} ProfilePayload
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/profiles/me [get]
func (h *ProfileHandler) me(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	profile, err := h.profiles.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Identity exists but the profile row has not materialized yet;
			// the backfill sweep will repair it.
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "profile not yet available"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "profile lookup failed"))
		return
	}

	c.JSON(http.StatusOK, profilePayload(profile))
}

// Update godoc
// @Summary Change the authenticated user's display name
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile update payload"
// @Success 200 {object} ProfilePayload
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/profiles/me [patch]
func (h *ProfileHandler) update(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "display_name is required"))
		return
	}

	if err := h.profiles.UpdateDisplayName(c.Request.Context(), userID, req.DisplayName, h.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "profile not yet available"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "profile update failed"))
		return
	}

	profile, err := h.profiles.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "profile lookup failed"))
		return
	}

	c.JSON(http.StatusOK, profilePayload(profile))
}

// Heartbeat godoc
// @Summary Record an activity heartbeat
// @Tags Profile
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/profiles/me/heartbeat [post]
func (h *ProfileHandler) heartbeat(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.profiles.UpdateLastActive(c.Request.Context(), userID, h.now()); err != nil &&
		!errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "heartbeat failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "ok"})
}
