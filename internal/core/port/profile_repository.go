package port

import (
	"context"
	"time"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
)

// ProfileRepository defines persistence operations for profile rows.
type ProfileRepository interface {
	// Upsert inserts the profile or, when a row with the same identifier
	// already exists, overwrites email, display name, updated-at, and
	// last-active while preserving the stored role.
	Upsert(ctx context.Context, profile domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	UpdateDisplayName(ctx context.Context, id, displayName string, updatedAt time.Time) error
	UpdateLastActive(ctx context.Context, id string, at time.Time) error
	Count(ctx context.Context) (int64, error)
	// Backfill creates a profile for every identity lacking one, using the
	// standard derivation rule, skipping rows that already exist. Returns the
	// number of rows created. Safe to run repeatedly.
	Backfill(ctx context.Context, now time.Time) (int64, error)
}

// IdentityRepository exposes read-only access to the provider-owned identity
// table. Used by the backfill sweep and the divergence health check.
type IdentityRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	Count(ctx context.Context) (int64, error)
	// ListMissingProfiles returns identities that currently have no matching
	// profile row, up to limit.
	ListMissingProfiles(ctx context.Context, limit int) ([]domain.Identity, error)
}
