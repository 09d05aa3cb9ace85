package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
)

const testJWTSecret = "session-manager-test-secret"

func signTestToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()

	claims := AccessClaims{
		Email: subject + "@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestSessionManager_HandlersRunSynchronously(t *testing.T) {
	manager := NewSessionManager(testJWTSecret, zaptest.NewLogger(t))

	var observed []domain.AuthChangeType
	unsubscribe := manager.OnAuthStateChange(func(change domain.AuthChange) {
		observed = append(observed, change.Type)
	})
	defer unsubscribe()

	session := &domain.Session{
		AccessToken: "token",
		UserID:      "user-1",
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	manager.SetSession(domain.AuthSignedIn, session)

	// No synchronization needed: SetSession must have already invoked the
	// handler by the time it returns.
	if len(observed) != 1 || observed[0] != domain.AuthSignedIn {
		t.Fatalf("expected synchronous signed_in notification, got %v", observed)
	}

	manager.Clear()
	if len(observed) != 2 || observed[1] != domain.AuthSignedOut {
		t.Fatalf("expected signed_out notification, got %v", observed)
	}
}

func TestSessionManager_HandlerMayReadCurrent(t *testing.T) {
	manager := NewSessionManager(testJWTSecret, zaptest.NewLogger(t))

	var sawUserID string
	manager.OnAuthStateChange(func(change domain.AuthChange) {
		// Reading back through the manager inside a handler must not
		// deadlock.
		if current, err := manager.Current(); err == nil {
			sawUserID = current.UserID
		}
	})

	manager.SetSession(domain.AuthSignedIn, &domain.Session{
		AccessToken: "token",
		UserID:      "user-7",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	if sawUserID != "user-7" {
		t.Fatalf("handler should observe the cached session, got %q", sawUserID)
	}
}

func TestSessionManager_Unsubscribe(t *testing.T) {
	manager := NewSessionManager(testJWTSecret, zaptest.NewLogger(t))

	calls := 0
	unsubscribe := manager.OnAuthStateChange(func(domain.AuthChange) { calls++ })

	manager.SetSession(domain.AuthSignedIn, &domain.Session{UserID: "u", ExpiresAt: time.Now().Add(time.Hour)})
	unsubscribe()
	manager.Clear()

	if calls != 1 {
		t.Fatalf("expected exactly one notification after unsubscribe, got %d", calls)
	}
}

func TestSessionManager_ParseAccessToken(t *testing.T) {
	manager := NewSessionManager(testJWTSecret, zaptest.NewLogger(t))

	token := signTestToken(t, "user-42", time.Now().Add(time.Hour))

	claims, err := manager.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID() != "user-42" {
		t.Fatalf("expected subject user-42, got %q", claims.UserID())
	}
}

func TestSessionManager_ParseAccessToken_Expired(t *testing.T) {
	manager := NewSessionManager(testJWTSecret, zaptest.NewLogger(t))

	token := signTestToken(t, "user-42", time.Now().Add(-time.Minute))

	if _, err := manager.ParseAccessToken(token); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}
}

func TestSessionManager_ParseAccessToken_WrongSecret(t *testing.T) {
	manager := NewSessionManager("a-different-secret", zaptest.NewLogger(t))

	token := signTestToken(t, "user-42", time.Now().Add(time.Hour))

	if _, err := manager.ParseAccessToken(token); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}
}

func TestSessionManager_CurrentExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager := NewSessionManager(testJWTSecret, zaptest.NewLogger(t)).
		WithClock(func() time.Time { return now })

	if _, err := manager.Current(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	manager.SetSession(domain.AuthSignedIn, &domain.Session{
		UserID:    "user-1",
		ExpiresAt: now.Add(time.Minute),
	})

	if _, err := manager.Current(); err != nil {
		t.Fatalf("session should be live: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := manager.Current(); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}
}
