package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/logger"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/provider"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/security"
)

var (
	// ErrResetTokenUsed indicates the recovery token was already redeemed.
	// Tokens are strictly single-use: the first consumption wins, every
	// later attempt fails even if the provider would still accept it.
	ErrResetTokenUsed = errors.New("reset token already used")
	// ErrResetTokenInvalid indicates the token was rejected by the provider.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
)

// PasswordResetService drives the recover/confirm flow against the provider
// and enforces single-use semantics for recovery tokens.
type PasswordResetService struct {
	identity  port.IdentityProvider
	tokens    port.ResetTokenStore
	validator *security.PasswordValidator
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewPasswordResetService constructs a password reset service.
func NewPasswordResetService(
	identity port.IdentityProvider,
	tokens port.ResetTokenStore,
	validator *security.PasswordValidator,
	tokenTTL time.Duration,
	log *zap.Logger,
) *PasswordResetService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordResetService{
		identity:  identity,
		tokens:    tokens,
		validator: validator,
		tokenTTL:  tokenTTL,
		logger:    log,
	}
}

// Request triggers a recovery email. The response is identical whether the
// address exists or not.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	if err := s.identity.RequestPasswordReset(ctx, email); err != nil {
		if errors.Is(err, provider.ErrUnavailable) {
			return ErrProviderUnavailable
		}
		// Swallow provider-side rejections: the caller learns nothing about
		// whether the address exists.
		s.logger.Warn("password reset request failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
	}

	return nil
}

// Confirm validates the new password, consumes the token, and redeems it at
// the provider. The consumption marker is written before the provider call
// so a replayed token loses the race even when two confirms arrive
// concurrently.
func (s *PasswordResetService) Confirm(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrResetTokenInvalid
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	first, err := s.tokens.Consume(ctx, security.HashToken(token), s.tokenTTL)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !first {
		return ErrResetTokenUsed
	}

	if err := s.identity.ConfirmPasswordReset(ctx, token, newPassword); err != nil {
		switch {
		case errors.Is(err, provider.ErrResetTokenInvalid):
			return ErrResetTokenInvalid
		case errors.Is(err, provider.ErrUnavailable):
			// The provider never saw the redemption, so the token is still
			// valid. Give the marker back or the user's retry would be
			// rejected as a replay.
			if relErr := s.tokens.Release(ctx, security.HashToken(token)); relErr != nil {
				s.logger.Warn("failed to release reset token after provider outage", zap.Error(relErr))
			}
			return ErrProviderUnavailable
		default:
			return fmt.Errorf("confirm password reset: %w", err)
		}
	}

	s.logger.Info("password reset completed")
	return nil
}
