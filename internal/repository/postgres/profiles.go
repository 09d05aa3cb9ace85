package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProfileRepository implements port.ProfileRepository backed by PostgreSQL.
type ProfileRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewProfileRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewProfileRepository(exec pgExecutor) *ProfileRepository {
	return &ProfileRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert inserts the profile row or refreshes an existing one. The conflict
// branch leaves role and created_at untouched so re-syncs never demote a
// promoted account.
func (r *ProfileRepository) Upsert(ctx context.Context, profile domain.Profile) error {
	query := r.builder.Insert("app.profiles").
		Columns(
			"id",
			"email",
			"display_name",
			"role",
			"created_at",
			"updated_at",
			"last_active_at",
		).
		Values(
			profile.ID,
			profile.Email,
			profile.DisplayName,
			profile.Role,
			profile.CreatedAt,
			profile.UpdatedAt,
			profile.LastActiveAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			updated_at = EXCLUDED.updated_at,
			last_active_at = EXCLUDED.last_active_at`)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert profile sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by identifier.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"email",
			"display_name",
			"role",
			"created_at",
			"updated_at",
			"last_active_at",
		).
		From("app.profiles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile sql: %w", err)
	}

	var profile domain.Profile
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.DisplayName,
		&profile.Role,
		&profile.CreatedAt,
		&profile.UpdatedAt,
		&profile.LastActiveAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	return &profile, nil
}

// UpdateDisplayName changes the profile's display name.
func (r *ProfileRepository) UpdateDisplayName(ctx context.Context, id, displayName string, updatedAt time.Time) error {
	stmt, args, err := r.builder.
		Update("app.profiles").
		Set("display_name", displayName).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update display name sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLastActive records an activity heartbeat.
func (r *ProfileRepository) UpdateLastActive(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.
		Update("app.profiles").
		Set("last_active_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last active sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Count returns the number of profile rows.
func (r *ProfileRepository) Count(ctx context.Context) (int64, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("app.profiles").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count profiles sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}

	return count, nil
}

// Backfill delegates to the database function that inserts a profile for
// every identity lacking one. The function uses the same derivation as the
// trigger and skips existing rows, so repeated runs are no-ops.
func (r *ProfileRepository) Backfill(ctx context.Context, now time.Time) (int64, error) {
	var created int64
	if err := r.exec.QueryRow(ctx, "SELECT app.backfill_profiles($1)", now).Scan(&created); err != nil {
		return 0, fmt.Errorf("run profile backfill: %w", err)
	}
	return created, nil
}

var _ port.ProfileRepository = (*ProfileRepository)(nil)
