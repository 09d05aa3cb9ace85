package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/provider"
)

func acceptingProvider() *mockIdentityProvider {
	return &mockIdentityProvider{
		signUpFunc: func(ctx context.Context, email, password string, metadata map[string]any) (*port.SignUpResult, error) {
			return &port.SignUpResult{
				Identity:             domain.Identity{ID: "user-1", Email: email, Metadata: metadata},
				ConfirmationRequired: true,
			}, nil
		},
	}
}

func TestSignUpRejectsShortPasswordBeforeProviderCall(t *testing.T) {
	identity := acceptingProvider()
	svc := NewRegistrationService(identity, nil, zaptest.NewLogger(t))

	_, err := svc.SignUp(context.Background(), "ada@example.com", "password", "Ada")
	if !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("err = %v, want ErrPasswordPolicyViolation", err)
	}
	if !strings.Contains(err.Error(), "at least 12 characters") {
		t.Errorf("err = %q, want length message", err.Error())
	}
	if _, signUp, _ := identity.calls(); signUp != 0 {
		t.Errorf("provider calls = %d, want 0", signUp)
	}
}

func TestSignUpReportsFirstFailingRuleOnly(t *testing.T) {
	identity := acceptingProvider()
	svc := NewRegistrationService(identity, nil, zaptest.NewLogger(t))

	// Long enough, has case and digits, lacks a symbol.
	_, err := svc.SignUp(context.Background(), "ada@example.com", "Password12345", "Ada")
	if !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("err = %v, want ErrPasswordPolicyViolation", err)
	}
	if !strings.Contains(err.Error(), "special characters") {
		t.Errorf("err = %q, want symbol message", err.Error())
	}
	if _, signUp, _ := identity.calls(); signUp != 0 {
		t.Errorf("provider calls = %d, want 0", signUp)
	}
}

func TestSignUpAcceptsCompliantPassword(t *testing.T) {
	identity := acceptingProvider()
	svc := NewRegistrationService(identity, nil, zaptest.NewLogger(t))

	result, err := svc.SignUp(context.Background(), "ada@example.com", "Password12345!", "Ada Lovelace")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if !result.ConfirmationRequired {
		t.Error("expected confirmation required")
	}
	if result.Identity.Metadata["full_name"] != "Ada Lovelace" {
		t.Errorf("metadata = %+v, want full_name forwarded", result.Identity.Metadata)
	}
	if result.PasswordStrength < 0 || result.PasswordStrength > 4 {
		t.Errorf("password strength = %d, want 0..4", result.PasswordStrength)
	}
	if _, signUp, _ := identity.calls(); signUp != 1 {
		t.Errorf("provider calls = %d, want 1", signUp)
	}
}

func TestSignUpOmitsEmptyFullName(t *testing.T) {
	identity := acceptingProvider()
	svc := NewRegistrationService(identity, nil, zaptest.NewLogger(t))

	result, err := svc.SignUp(context.Background(), "ada@example.com", "Password12345!", "   ")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, ok := result.Identity.Metadata["full_name"]; ok {
		t.Errorf("metadata = %+v, want no full_name key", result.Identity.Metadata)
	}
}

func TestSignUpMapsDuplicateEmail(t *testing.T) {
	identity := &mockIdentityProvider{
		signUpFunc: func(ctx context.Context, email, password string, metadata map[string]any) (*port.SignUpResult, error) {
			return nil, provider.ErrEmailRegistered
		},
	}
	svc := NewRegistrationService(identity, nil, zaptest.NewLogger(t))

	_, err := svc.SignUp(context.Background(), "taken@example.com", "Password12345!", "")
	if !errors.Is(err, ErrEmailRegistered) {
		t.Fatalf("err = %v, want ErrEmailRegistered", err)
	}
}

func TestSignUpFailsClosedOnUnexpectedProviderError(t *testing.T) {
	identity := &mockIdentityProvider{
		signUpFunc: func(ctx context.Context, email, password string, metadata map[string]any) (*port.SignUpResult, error) {
			return nil, errors.New("boom")
		},
	}
	svc := NewRegistrationService(identity, nil, zaptest.NewLogger(t))

	_, err := svc.SignUp(context.Background(), "ada@example.com", "Password12345!", "")
	if !errors.Is(err, ErrSignupFailed) {
		t.Fatalf("err = %v, want ErrSignupFailed", err)
	}
}

func TestSignUpRejectsMalformedEmail(t *testing.T) {
	identity := acceptingProvider()
	svc := NewRegistrationService(identity, nil, zaptest.NewLogger(t))

	if _, err := svc.SignUp(context.Background(), "not-an-email", "Password12345!", ""); err == nil {
		t.Error("expected error for malformed email")
	}
	if _, signUp, _ := identity.calls(); signUp != 0 {
		t.Errorf("provider calls = %d, want 0", signUp)
	}
}
