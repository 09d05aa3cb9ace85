package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rethick-Jeganathan/Procura/internal/usecase"
)

// PasswordHandler exposes the password recovery endpoints.
type PasswordHandler struct {
	reset *usecase.PasswordResetService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(reset *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{reset: reset}
}

// RegisterRoutes binds the recovery routes with optional rate limiting.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, requestMiddlewares ...gin.HandlerFunc) {
	r.POST("/reset", append(append([]gin.HandlerFunc{}, requestMiddlewares...), h.request)...)
	r.POST("/reset/confirm", h.confirm)
}

// RequestReset godoc
// @Summary Request a password recovery email
// @Description Always returns 200 regardless of whether the address exists.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ResetRequestRequest true "Reset request payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/password/reset [post]
func (h *PasswordHandler) request(c *gin.Context) {
	var req ResetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	if err := h.reset.Request(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrProviderUnavailable, Status: http.StatusServiceUnavailable, Message: "authentication service unavailable, try again shortly"},
		}, http.StatusBadRequest, "password reset request failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if the address exists, a recovery email has been sent"})
}

// ConfirmReset godoc
// @Summary Redeem a recovery token and set a new password
// @Description Tokens are single-use: a second confirmation with the same token fails.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ResetConfirmRequest true "Reset confirmation payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/password/reset/confirm [post]
func (h *PasswordHandler) confirm(c *gin.Context) {
	var req ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token and new_password are required"))
		return
	}

	if err := h.reset.Confirm(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, usecase.ErrPasswordPolicyViolation) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenUsed, Status: http.StatusGone, Message: "reset token already used"},
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "invalid or expired reset token"},
			{Err: usecase.ErrProviderUnavailable, Status: http.StatusServiceUnavailable, Message: "authentication service unavailable, try again shortly"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
