package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/logger"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/provider"
	"github.com/Rethick-Jeganathan/Procura/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for every credential rejection. The
	// same error covers unknown email and wrong password so responses never
	// enable account enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrProviderUnavailable indicates a transient provider failure; the
	// caller is told to try again, nothing retries automatically here.
	ErrProviderUnavailable = errors.New("authentication service unavailable")
)

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Session domain.Session
	Profile *domain.Profile
}

// AuthService coordinates the login and logout flows: the governor gates the
// submission, the provider authenticates, the session manager caches the
// result, and the profile heartbeat runs decoupled from the sign-in path.
type AuthService struct {
	identity  port.IdentityProvider
	sessions  *SessionManager
	governors *GovernorRegistry
	profiles  port.ProfileRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	identity port.IdentityProvider,
	sessions *SessionManager,
	governors *GovernorRegistry,
	profiles port.ProfileRepository,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		identity:  identity,
		sessions:  sessions,
		governors: governors,
		profiles:  profiles,
		logger:    log,
		now:       time.Now,
	}
}

// Login authenticates the credentials for the given client session. While
// the client's governor is cooling the submission is rejected before any
// provider call is made.
func (s *AuthService) Login(ctx context.Context, clientKey, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	governor := s.governors.For(clientKey)
	if err := governor.Allow(); err != nil {
		return nil, err
	}

	session, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrInvalidCredentials):
			cooldown := governor.RecordFailure()
			s.logger.Info("login rejected",
				zap.String("email", logger.MaskEmail(email)),
				zap.Int("consecutive_failures", governor.Failures()),
				zap.Duration("cooldown", cooldown),
			)
			return nil, ErrInvalidCredentials
		case errors.Is(err, provider.ErrUnavailable):
			// Transient failures do not count against the governor.
			s.logger.Warn("identity provider unreachable", zap.Error(err))
			return nil, ErrProviderUnavailable
		default:
			return nil, fmt.Errorf("sign in: %w", err)
		}
	}

	governor.RecordSuccess()
	s.sessions.SetSession(domain.AuthSignedIn, session)

	result := &LoginResult{Session: *session}
	if profile, err := s.profiles.GetByID(ctx, session.UserID); err == nil {
		result.Profile = profile
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("profile lookup failed after login", zap.String("user_id", session.UserID), zap.Error(err))
	}

	// The last-active touch must never sit on the sign-in path: auth-state
	// subscribers have already run, and this write is free to suspend.
	go s.touchLastActive(session.UserID)

	return result, nil
}

// Refresh rotates the session through the provider's refresh-token grant.
// The returned refresh token replaces the presented one, which the provider
// has already revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	session, err := s.identity.RefreshSession(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrInvalidCredentials):
			return nil, ErrInvalidCredentials
		case errors.Is(err, provider.ErrUnavailable):
			return nil, ErrProviderUnavailable
		default:
			return nil, fmt.Errorf("refresh session: %w", err)
		}
	}

	s.sessions.SetSession(domain.AuthTokenRefreshed, session)
	return session, nil
}

// Logout revokes the provider session and clears the cached one.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if err := s.identity.SignOut(ctx, accessToken); err != nil {
		if errors.Is(err, provider.ErrUnavailable) {
			return ErrProviderUnavailable
		}
		return fmt.Errorf("sign out: %w", err)
	}

	s.sessions.Clear()
	return nil
}

// CurrentIdentity resolves the identity behind an access token with the
// provider. Unlike ParseAccessToken this round-trips, so revoked sessions
// are caught.
func (s *AuthService) CurrentIdentity(ctx context.Context, accessToken string) (*domain.Identity, error) {
	identity, err := s.identity.CurrentIdentity(ctx, accessToken)
	if err != nil {
		if errors.Is(err, provider.ErrUnavailable) {
			return nil, ErrProviderUnavailable
		}
		return nil, fmt.Errorf("current identity: %w", err)
	}
	return identity, nil
}

// ParseAccessToken delegates token validation to the session manager.
func (s *AuthService) ParseAccessToken(token string) (*AccessClaims, error) {
	return s.sessions.ParseAccessToken(token)
}

func (s *AuthService) touchLastActive(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.profiles.UpdateLastActive(ctx, userID, s.now().UTC()); err != nil &&
		!errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("last-active heartbeat failed", zap.String("user_id", userID), zap.Error(err))
	}
}
