package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/repository"
)

func TestProfileRepository_UpsertPreservesRoleOnConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewProfileRepository(mock)

	now := time.Now().UTC()
	profile := domain.Profile{
		ID:           "user-123",
		Email:        "ada@example.com",
		DisplayName:  "Ada Lovelace",
		Role:         domain.RoleViewer,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: now,
	}

	// The conflict branch must not touch role or created_at.
	mock.ExpectExec(`INSERT INTO app\.profiles .* ON CONFLICT \(id\) DO UPDATE SET\s+email = EXCLUDED\.email,\s+display_name = EXCLUDED\.display_name,\s+updated_at = EXCLUDED\.updated_at,\s+last_active_at = EXCLUDED\.last_active_at`).
		WithArgs(
			profile.ID,
			profile.Email,
			profile.DisplayName,
			profile.Role,
			profile.CreatedAt,
			profile.UpdatedAt,
			profile.LastActiveAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Upsert(context.Background(), profile); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProfileRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewProfileRepository(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "email", "display_name", "role", "created_at", "updated_at", "last_active_at",
	}).AddRow("user-123", "ada@example.com", "Ada Lovelace", domain.RoleEditor, now, now, now)

	mock.ExpectQuery(`SELECT id, email, display_name, role, created_at, updated_at, last_active_at FROM app\.profiles WHERE id = \$1`).
		WithArgs("user-123").
		WillReturnRows(rows)

	profile, err := repo.GetByID(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if profile.DisplayName != "Ada Lovelace" || profile.Role != domain.RoleEditor {
		t.Errorf("profile = %+v", profile)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProfileRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewProfileRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM app\.profiles`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "display_name", "role", "created_at", "updated_at", "last_active_at",
		}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProfileRepository_UpdateDisplayNameNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewProfileRepository(mock)

	mock.ExpectExec(`UPDATE app\.profiles SET display_name = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("New Name", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateDisplayName(context.Background(), "missing", "New Name", time.Now().UTC())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProfileRepository_BackfillReturnsCreatedCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewProfileRepository(mock)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT app\.backfill_profiles\(\$1\)`).
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows([]string{"backfill_profiles"}).AddRow(int64(3)))

	created, err := repo.Backfill(context.Background(), now)
	if err != nil {
		t.Fatalf("Backfill returned error: %v", err)
	}
	if created != 3 {
		t.Errorf("created = %d, want 3", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProfileRepository_BackfillIdempotentSecondRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewProfileRepository(mock)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT app\.backfill_profiles\(\$1\)`).
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows([]string{"backfill_profiles"}).AddRow(int64(2)))
	mock.ExpectQuery(`SELECT app\.backfill_profiles\(\$1\)`).
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows([]string{"backfill_profiles"}).AddRow(int64(0)))

	if created, err := repo.Backfill(context.Background(), now); err != nil || created != 2 {
		t.Fatalf("first run = %d, %v", created, err)
	}
	if created, err := repo.Backfill(context.Background(), now); err != nil || created != 0 {
		t.Fatalf("second run = %d, %v, want 0 rows", created, err)
	}
}

func TestIdentityRepository_Count(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewIdentityRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM auth\.users`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 7 {
		t.Errorf("count = %d, want 7", count)
	}
}
