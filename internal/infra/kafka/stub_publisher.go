package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishProfileSynced logs profile.synced events.
func (p *StubPublisher) PublishProfileSynced(_ context.Context, event domain.ProfileSyncedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"email":        event.Email,
		"display_name": event.DisplayName,
		"role":         event.Role,
		"synced_at":    event.SyncedAt,
	}
	p.logEvent(topicProfileSynced, event.UserID, event.SyncedAt, payload)
	return nil
}

// PublishBackfillCompleted logs profile.backfill.completed events.
func (p *StubPublisher) PublishBackfillCompleted(_ context.Context, event domain.BackfillCompletedEvent) error {
	payload := map[string]any{
		"repaired":     event.Repaired,
		"completed_at": event.CompletedAt,
	}
	p.logEvent(topicBackfillCompleted, "", event.CompletedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
