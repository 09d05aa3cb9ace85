package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest defines the payload for the session refresh endpoint.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SessionPayload carries the provider-issued tokens back to the client.
type SessionPayload struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ProfilePayload is the public view of a profile row.
type ProfilePayload struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	DisplayName  string      `json:"display_name"`
	Role         domain.Role `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	LastActiveAt time.Time   `json:"last_active_at"`
}

func profilePayload(p *domain.Profile) *ProfilePayload {
	if p == nil {
		return nil
	}
	return &ProfilePayload{
		ID:           p.ID,
		Email:        p.Email,
		DisplayName:  p.DisplayName,
		Role:         p.Role,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		LastActiveAt: p.LastActiveAt,
	}
}

// LoginResponse defines the payload returned on successful login.
type LoginResponse struct {
	Session SessionPayload  `json:"session"`
	Profile *ProfilePayload `json:"profile,omitempty"`
}

// SignupRequest defines the payload for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

// SignupResponse defines the payload returned after a successful signup.
type SignupResponse struct {
	UserID               string `json:"user_id"`
	Email                string `json:"email"`
	ConfirmationRequired bool   `json:"confirmation_required"`
	PasswordStrength     int    `json:"password_strength"`
}

// IdentityResponse describes the provider identity behind an access token.
type IdentityResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ResetRequestRequest defines the payload for requesting a recovery email.
type ResetRequestRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetConfirmRequest defines the payload for redeeming a recovery token.
type ResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateProfileRequest defines the payload for display name changes.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports dependency health.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SyncStatusResponse reports the identity/profile divergence check.
type SyncStatusResponse struct {
	Status     string    `json:"status"`
	Identities int64     `json:"identities"`
	Profiles   int64     `json:"profiles"`
	CheckedAt  time.Time `json:"checked_at"`
}

// BackfillResponse reports the outcome of a backfill sweep.
type BackfillResponse struct {
	Repaired int64 `json:"repaired"`
}
