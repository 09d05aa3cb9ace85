package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/logger"
)

// ErrSyncDivergence indicates identity and profile counts disagree: at least
// one identity has no profile row (or a profile outlived its identity).
var ErrSyncDivergence = errors.New("identity/profile divergence detected")

// orphanSampleLimit bounds how many orphaned identity IDs a divergence
// report logs.
const orphanSampleLimit = 20

// DivergenceReport compares the two table populations.
type DivergenceReport struct {
	Identities int64
	Profiles   int64
	CheckedAt  time.Time
}

// Diverged reports whether the populations disagree.
func (r DivergenceReport) Diverged() bool {
	return r.Identities != r.Profiles
}

// SyncService keeps profile rows converged with identity records. The
// datastore trigger is the primary path; this service provides the
// at-least-once event consumer path, the idempotent backfill sweep, and the
// divergence health check. Every entry point is an idempotent upsert, so
// redelivery and re-runs are harmless.
type SyncService struct {
	identities port.IdentityRepository
	profiles   port.ProfileRepository
	publisher  port.EventPublisher
	metrics    port.SyncMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewSyncService constructs a profile synchronization service.
func NewSyncService(
	identities port.IdentityRepository,
	profiles port.ProfileRepository,
	publisher port.EventPublisher,
	log *zap.Logger,
) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncService{
		identities: identities,
		profiles:   profiles,
		publisher:  publisher,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics attaches synchronization gauges.
func (s *SyncService) WithMetrics(metrics port.SyncMetrics) *SyncService {
	s.metrics = metrics
	return s
}

// WithClock overrides the service clock for deterministic testing.
func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	if now != nil {
		s.now = now
	}
	return s
}

// HandleIdentityCreated materializes the profile for a freshly created
// identity. Redeliveries re-upsert the same row; an existing profile keeps
// its role.
func (s *SyncService) HandleIdentityCreated(ctx context.Context, event domain.IdentityCreatedEvent) error {
	if event.UserID == "" {
		return fmt.Errorf("identity created event missing user id")
	}

	identity := domain.Identity{
		ID:        event.UserID,
		Email:     event.Email,
		Metadata:  event.Metadata,
		CreatedAt: event.CreatedAt,
	}

	profile := domain.ProfileFromIdentity(identity, s.now())
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("upsert profile for %s: %w", event.UserID, err)
	}

	s.logger.Info("profile synced",
		zap.String("user_id", profile.ID),
		zap.String("email", logger.MaskEmail(profile.Email)),
		zap.String("display_name", profile.DisplayName),
	)

	if s.publisher != nil {
		synced := domain.ProfileSyncedEvent{
			EventID:     uuid.NewString(),
			UserID:      profile.ID,
			Email:       profile.Email,
			DisplayName: profile.DisplayName,
			Role:        profile.Role,
			SyncedAt:    s.now(),
		}
		if err := s.publisher.PublishProfileSynced(ctx, synced); err != nil {
			// The profile row is already durable; a lost event only delays
			// downstream consumers until the next sweep.
			s.logger.Warn("publish profile synced failed", zap.String("user_id", profile.ID), zap.Error(err))
		}
	}

	return nil
}

// Backfill creates a profile for every identity lacking one and returns how
// many rows were repaired. Running it twice in a row repairs zero rows the
// second time.
func (s *SyncService) Backfill(ctx context.Context) (int64, error) {
	repaired, err := s.profiles.Backfill(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("backfill profiles: %w", err)
	}

	if repaired > 0 {
		s.logger.Info("backfill repaired orphaned identities", zap.Int64("repaired", repaired))
	}
	if s.metrics != nil {
		s.metrics.AddBackfillRepaired(repaired)
	}

	if s.publisher != nil {
		event := domain.BackfillCompletedEvent{
			EventID:     uuid.NewString(),
			Repaired:    repaired,
			CompletedAt: s.now(),
		}
		if err := s.publisher.PublishBackfillCompleted(ctx, event); err != nil {
			s.logger.Warn("publish backfill completed failed", zap.Error(err))
		}
	}

	return repaired, nil
}

// Watch runs the divergence check on a fixed interval until the context is
// cancelled, keeping the gauges current and flagging drift without waiting
// for an operator. Errors are logged and the loop keeps going.
func (s *SyncService) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Divergence(ctx); err != nil && !errors.Is(err, ErrSyncDivergence) {
				s.logger.Warn("divergence sweep failed", zap.Error(err))
			}
		}
	}
}

// Divergence compares identity and profile counts. A non-zero difference
// means the invariant is currently violated and the backfill sweep (or the
// trigger) has work to do.
func (s *SyncService) Divergence(ctx context.Context) (DivergenceReport, error) {
	identities, err := s.identities.Count(ctx)
	if err != nil {
		return DivergenceReport{}, fmt.Errorf("count identities: %w", err)
	}

	profiles, err := s.profiles.Count(ctx)
	if err != nil {
		return DivergenceReport{}, fmt.Errorf("count profiles: %w", err)
	}

	report := DivergenceReport{
		Identities: identities,
		Profiles:   profiles,
		CheckedAt:  s.now(),
	}

	if s.metrics != nil {
		s.metrics.SetDivergence(identities, profiles)
	}

	if report.Diverged() {
		fields := []zap.Field{
			zap.Int64("identities", identities),
			zap.Int64("profiles", profiles),
		}
		if orphans, err := s.identities.ListMissingProfiles(ctx, orphanSampleLimit); err == nil {
			ids := make([]string, 0, len(orphans))
			for _, identity := range orphans {
				ids = append(ids, identity.ID)
			}
			fields = append(fields, zap.Strings("orphaned_identities", ids))
		}
		s.logger.Warn("sync divergence", fields...)
		return report, ErrSyncDivergence
	}

	return report, nil
}
