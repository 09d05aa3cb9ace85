package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/config"
)

var (
	// ErrInvalidCredentials covers every credential rejection. The provider
	// response is deliberately collapsed so callers cannot distinguish a
	// wrong email from a wrong password.
	ErrInvalidCredentials = errors.New("provider: invalid credentials")
	// ErrEmailRegistered indicates the address already has an identity.
	ErrEmailRegistered = errors.New("provider: email already registered")
	// ErrResetTokenInvalid indicates a recovery token was rejected.
	ErrResetTokenInvalid = errors.New("provider: invalid or expired recovery token")
	// ErrUnavailable indicates a transient transport or upstream failure.
	ErrUnavailable = errors.New("provider: unavailable")
)

// Client talks to a GoTrue-compatible identity provider over HTTP. All
// normal-path calls authenticate with the anon key; the admin surface in
// admin.go uses the service-role key.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a provider client from configuration.
func NewClient(cfg config.ProviderSettings, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse provider base URL: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    base,
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceRoleKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type sessionResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int              `json:"expires_in"`
	User         identityResponse `json:"user"`
}

type identityResponse struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"user_metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

func (r sessionResponse) toDomain() *domain.Session {
	return &domain.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(r.ExpiresIn) * time.Second),
		UserID:       r.User.ID,
		Email:        r.User.Email,
	}
}

func (r identityResponse) toDomain() domain.Identity {
	return domain.Identity{
		ID:        r.ID,
		Email:     r.Email,
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt,
	}
}

// SignIn exchanges credentials for a session via the password grant.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	payload := map[string]string{"email": email, "password": password}

	var session sessionResponse
	status, err := c.do(ctx, http.MethodPost, "/token?grant_type=password", c.anonKey, payload, &session)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: sign-in returned status %d", ErrUnavailable, status)
	}

	return session.toDomain(), nil
}

// RefreshSession rotates the session via the refresh-token grant. The
// provider revokes the presented refresh token on success, so the caller
// must switch to the returned one.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}

	var session sessionResponse
	status, err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", c.anonKey, payload, &session)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: refresh returned status %d", ErrUnavailable, status)
	}

	return session.toDomain(), nil
}

// SignUp creates a new identity. Metadata is stored verbatim on the identity
// record; it is client-supplied and never trusted for authorization.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*port.SignUpResult, error) {
	payload := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		payload["data"] = metadata
	}

	var identity identityResponse
	status, err := c.do(ctx, http.MethodPost, "/signup", c.anonKey, payload, &identity)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
	case status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return nil, ErrEmailRegistered
	case status == http.StatusBadRequest:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: sign-up returned status %d", ErrUnavailable, status)
	}

	// GoTrue reports a pending confirmation by returning the identity
	// without a confirmed timestamp; treat any fresh signup as pending.
	return &port.SignUpResult{
		Identity:             identity.toDomain(),
		ConfirmationRequired: true,
	}, nil
}

// SignOut revokes the session bound to the access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	status, err := c.doAuthorized(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("%w: sign-out returned status %d", ErrUnavailable, status)
	}
	return nil
}

// RequestPasswordReset triggers a recovery email. The provider responds
// identically whether the address exists or not.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	status, err := c.do(ctx, http.MethodPost, "/recover", c.anonKey, map[string]string{"email": email}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("%w: recover returned status %d", ErrUnavailable, status)
	}
	return nil
}

// ConfirmPasswordReset redeems a recovery token and sets the new password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	var session sessionResponse
	status, err := c.do(ctx, http.MethodPost, "/verify", c.anonKey, map[string]string{
		"type":  "recovery",
		"token": token,
	}, &session)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrResetTokenInvalid
	default:
		return fmt.Errorf("%w: verify returned status %d", ErrUnavailable, status)
	}

	status, err = c.doAuthorized(ctx, http.MethodPut, "/user", session.AccessToken, map[string]string{
		"password": newPassword,
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: password update returned status %d", ErrUnavailable, status)
	}
	return nil
}

// CurrentIdentity resolves the identity owning the access token.
func (c *Client) CurrentIdentity(ctx context.Context, accessToken string) (*domain.Identity, error) {
	var identity identityResponse
	status, err := c.doAuthorized(ctx, http.MethodGet, "/user", accessToken, nil, &identity)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: user lookup returned status %d", ErrUnavailable, status)
	}

	result := identity.toDomain()
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path, apiKey string, payload, out any) (int, error) {
	return c.request(ctx, method, path, apiKey, "", payload, out)
}

func (c *Client) doAuthorized(ctx context.Context, method, path, bearer string, payload, out any) (int, error) {
	return c.request(ctx, method, path, c.anonKey, bearer, payload, out)
}

func (c *Client) request(ctx context.Context, method, path, apiKey, bearer string, payload, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("apikey", apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return resp.StatusCode, nil
}

var _ port.IdentityProvider = (*Client)(nil)
