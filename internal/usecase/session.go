package usecase

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
)

var (
	// ErrInvalidAccessToken indicates the token is malformed or its
	// signature failed validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
	// ErrNoSession indicates no session is currently cached.
	ErrNoSession = errors.New("no active session")
)

// AccessClaims are the provider-issued JWT claims this service consumes.
type AccessClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject, the identity's identifier.
func (c *AccessClaims) UserID() string {
	return c.Subject
}

// AuthStateHandler receives auth-state change notifications.
//
// Handlers run SYNCHRONOUSLY on the sign-in path: the provider's sign-in
// call waits for every handler to return before completing. A handler that
// blocks or performs I/O stalls every in-flight sign-in for this client.
// Handlers must restrict themselves to local state assignment; any follow-up
// work that can suspend (fetching a profile, touching the network) must be
// scheduled after the handler returns, e.g. on a new goroutine.
type AuthStateHandler func(change domain.AuthChange)

// SessionManager caches the current provider session, validates access
// tokens, and fans auth-state changes out to subscribers.
type SessionManager struct {
	mu        sync.RWMutex
	current   *domain.Session
	handlers  map[int]AuthStateHandler
	nextID    int
	jwtSecret []byte
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionManager constructs a session manager validating tokens against
// the provider's shared JWT secret.
func NewSessionManager(jwtSecret string, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		handlers:  make(map[int]AuthStateHandler),
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the manager clock for deterministic testing.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	if now != nil {
		m.now = now
	}
	return m
}

// OnAuthStateChange registers a handler and returns its unsubscribe
// function. The handler is subject to the synchronous, non-blocking
// contract documented on AuthStateHandler.
func (m *SessionManager) OnAuthStateChange(handler AuthStateHandler) (unsubscribe func()) {
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = handler
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

// SetSession caches the session and notifies subscribers of the change. The
// notification completes before SetSession returns, matching the provider's
// own contract of waiting on subscribers.
func (m *SessionManager) SetSession(changeType domain.AuthChangeType, session *domain.Session) {
	m.mu.Lock()
	m.current = session
	handlers := make([]AuthStateHandler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	change := domain.AuthChange{
		Type:    changeType,
		Session: session,
		At:      m.now().UTC(),
	}

	// Handlers run outside the lock so a handler reading Current() cannot
	// deadlock, but still synchronously with respect to the caller.
	for _, handler := range handlers {
		handler(change)
	}
}

// Clear drops the cached session and emits a signed-out change.
func (m *SessionManager) Clear() {
	m.SetSession(domain.AuthSignedOut, nil)
}

// Current returns a copy of the cached session.
func (m *SessionManager) Current() (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, ErrNoSession
	}
	if m.current.Expired(m.now()) {
		return nil, ErrExpiredAccessToken
	}

	copied := *m.current
	return &copied, nil
}

// ParseAccessToken validates the provider JWT and returns its claims.
func (m *SessionManager) ParseAccessToken(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidAccessToken)
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}
