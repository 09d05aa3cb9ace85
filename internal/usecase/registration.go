package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/logger"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/provider"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/security"
)

var (
	// ErrPasswordPolicyViolation wraps the first failing password rule.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrEmailRegistered indicates the address already has an identity.
	ErrEmailRegistered = errors.New("email is already registered")
	// ErrSignupFailed is the generic fail-closed signup error: the identity
	// and its profile commit together or not at all, so the caller only ever
	// sees a whole-signup failure.
	ErrSignupFailed = errors.New("signup failed")
)

// SignupResult reports a completed sign-up call.
type SignupResult struct {
	Identity             domain.Identity
	ConfirmationRequired bool
	PasswordStrength     int
}

// RegistrationService handles new account onboarding. Password complexity is
// enforced locally before any provider call; profile materialization is the
// datastore trigger's job, with the sync consumer and backfill sweep as the
// repair paths.
type RegistrationService struct {
	identity  port.IdentityProvider
	validator *security.PasswordValidator
	logger    *zap.Logger
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(identity port.IdentityProvider, validator *security.PasswordValidator, log *zap.Logger) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{identity: identity, validator: validator, logger: log}
}

// SignUp validates the candidate password and creates the identity. The
// first failing password rule is returned verbatim; nothing reaches the
// network until the password passes.
func (s *RegistrationService) SignUp(ctx context.Context, email, password, fullName string) (*SignupResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}

	if err := s.validator.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	metadata := map[string]any{}
	if trimmed := strings.TrimSpace(fullName); trimmed != "" {
		metadata["full_name"] = trimmed
	}

	result, err := s.identity.SignUp(ctx, email, password, metadata)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrEmailRegistered):
			return nil, ErrEmailRegistered
		case errors.Is(err, provider.ErrUnavailable):
			return nil, ErrProviderUnavailable
		default:
			s.logger.Error("signup failed",
				zap.String("email", logger.MaskEmail(email)),
				zap.Error(err),
			)
			return nil, ErrSignupFailed
		}
	}

	s.logger.Info("identity created",
		zap.String("user_id", result.Identity.ID),
		zap.String("email", logger.MaskEmail(email)),
		zap.Bool("confirmation_required", result.ConfirmationRequired),
	)

	return &SignupResult{
		Identity:             result.Identity,
		ConfirmationRequired: result.ConfirmationRequired,
		PasswordStrength:     security.StrengthScore(password, email, fullName),
	}, nil
}
