package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Rethick-Jeganathan/Procura/internal/usecase"
)

const clientKeyHeader = "X-Client-Key"

// LoginMetrics observes login outcomes.
type LoginMetrics interface {
	ObserveLogin(outcome string)
	ObserveGovernorRejection()
}

type noopLoginMetrics struct{}

func (noopLoginMetrics) ObserveLogin(string)       {}
func (noopLoginMetrics) ObserveGovernorRejection() {}

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	metrics      LoginMetrics
}

// AuthHandlerOption configures optional AuthHandler dependencies.
type AuthHandlerOption func(*AuthHandler)

// WithRegistrationService injects the registration service dependency.
func WithRegistrationService(registration *usecase.RegistrationService) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.registration = registration
	}
}

// WithLoginMetrics injects the login outcome metrics sink.
func WithLoginMetrics(metrics LoginMetrics) AuthHandlerOption {
	return func(h *AuthHandler) {
		if metrics != nil {
			h.metrics = metrics
		}
	}
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, opts ...AuthHandlerOption) *AuthHandler {
	handler := &AuthHandler{
		auth:    auth,
		metrics: noopLoginMetrics{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}

	return handler
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of the credentialed endpoints.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares []gin.HandlerFunc, signupMiddlewares []gin.HandlerFunc, authRequired gin.HandlerFunc) {
	r.POST("/login", append(append([]gin.HandlerFunc{}, loginMiddlewares...), h.login)...)
	r.POST("/refresh", h.refresh)

	if h.registration != nil {
		r.POST("/signup", append(append([]gin.HandlerFunc{}, signupMiddlewares...), h.signup)...)
	}

	if authRequired != nil {
		r.POST("/logout", authRequired, h.logout)
		r.GET("/session", authRequired, h.session)
	} else {
		r.POST("/logout", h.logout)
		r.GET("/session", h.session)
	}
}

// clientKey scopes the login attempt governor to one client session. The
// header comes from browser clients; everything else falls back to the client
// IP so the governor still applies.
func clientKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(clientKeyHeader)); key != "" {
		return key
	}
	return c.ClientIP()
}

// Login godoc
// @Summary Authenticate with email and password
// @Description Exchanges credentials for a provider session. Repeated failures trigger a client-scoped cooldown.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and password are required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), clientKey(c), req.Email, req.Password)
	if err != nil {
		var throttled *usecase.ThrottledError
		switch {
		case errors.As(err, &throttled):
			h.metrics.ObserveGovernorRejection()
			h.metrics.ObserveLogin("throttled")
			c.Header("Retry-After", strconv.Itoa(throttled.RetryAfter))
			c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, throttled.Error()))
		case errors.Is(err, usecase.ErrInvalidCredentials):
			h.metrics.ObserveLogin("invalid")
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid email or password"))
		case errors.Is(err, usecase.ErrProviderUnavailable):
			h.metrics.ObserveLogin("error")
			c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "authentication service unavailable, try again shortly"))
		default:
			h.metrics.ObserveLogin("error")
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		}
		return
	}

	h.metrics.ObserveLogin("success")
	c.JSON(http.StatusOK, LoginResponse{
		Session: SessionPayload{
			AccessToken:  result.Session.AccessToken,
			RefreshToken: result.Session.RefreshToken,
			TokenType:    result.Session.TokenType,
			ExpiresAt:    result.Session.ExpiresAt,
		},
		Profile: profilePayload(result.Profile),
	})
}

// Refresh godoc
// @Summary Rotate the session with a refresh token
// @Description The presented refresh token is revoked by the provider; clients must store the returned pair.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh request payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	session, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid or expired refresh token"},
			{Err: usecase.ErrProviderUnavailable, Status: http.StatusServiceUnavailable, Message: "authentication service unavailable, try again shortly"},
		}, http.StatusBadRequest, "refresh failed")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Session: SessionPayload{
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
			TokenType:    session.TokenType,
			ExpiresAt:    session.ExpiresAt,
		},
	})
}

// Signup godoc
// @Summary Create a new account
// @Description Validates password complexity locally, then creates the identity at the provider.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request payload"
// @Success 201 {object} SignupResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and password are required"))
		return
	}

	result, err := h.registration.SignUp(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, usecase.ErrPasswordPolicyViolation) {
			// Surface the first failing rule verbatim so the client can show
			// which requirement to fix.
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailRegistered, Status: http.StatusConflict, Message: "email is already registered"},
			{Err: usecase.ErrProviderUnavailable, Status: http.StatusServiceUnavailable, Message: "authentication service unavailable, try again shortly"},
		}, http.StatusBadRequest, "signup failed")
		return
	}

	c.JSON(http.StatusCreated, SignupResponse{
		UserID:               result.Identity.ID,
		Email:                result.Identity.Email,
		ConfirmationRequired: result.ConfirmationRequired,
		PasswordStrength:     result.PasswordStrength,
	})
}

// Logout godoc
// @Summary Revoke the current session
// @Tags Authentication
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing access token"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrProviderUnavailable, Status: http.StatusServiceUnavailable, Message: "authentication service unavailable, try again shortly"},
		}, http.StatusInternalServerError, "logout failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "signed out"})
}

// Session godoc
// @Summary Resolve the identity behind the presented token
// @Description Round-trips to the provider, so revoked sessions come back 401 even with a still-valid token signature.
// @Tags Authentication
// @Produce json
// @Success 200 {object} IdentityResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) session(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing access token"))
		return
	}

	identity, err := h.auth.CurrentIdentity(c.Request.Context(), token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrProviderUnavailable, Status: http.StatusServiceUnavailable, Message: "authentication service unavailable, try again shortly"},
		}, http.StatusUnauthorized, "session is no longer valid")
		return
	}

	c.JSON(http.StatusOK, IdentityResponse{
		UserID:    identity.ID,
		Email:     identity.Email,
		CreatedAt: identity.CreatedAt,
	})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
