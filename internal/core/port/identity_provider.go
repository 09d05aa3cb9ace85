package port

import (
	"context"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
)

// SignUpResult reports the outcome of a sign-up call. A confirmation email is
// pending unless the provider auto-confirmed the address.
type SignUpResult struct {
	Identity             domain.Identity
	ConfirmationRequired bool
}

// IdentityProvider abstracts the external authentication service. Password
// hashing, credential storage, and session issuance all live behind it.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error)
	// RefreshSession exchanges a refresh token for a new session. The old
	// refresh token is invalidated by the provider.
	RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	// ConfirmPasswordReset redeems a recovery token and sets the new
	// password. The token is single-use at the provider; the caller layers
	// its own consumption marker on top.
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	CurrentIdentity(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// IdentityAdmin is the elevated-privilege surface backed by the service-role
// key. It bypasses ownership checks and must never be reachable from
// end-user request paths.
type IdentityAdmin interface {
	AdminUpdatePassword(ctx context.Context, userID, newPassword string) error
	AdminListIdentities(ctx context.Context, page, perPage int) ([]domain.Identity, error)
}
