package port

import (
	"context"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
)

// EventPublisher emits domain events to the message bus.
type EventPublisher interface {
	PublishProfileSynced(ctx context.Context, event domain.ProfileSyncedEvent) error
	PublishBackfillCompleted(ctx context.Context, event domain.BackfillCompletedEvent) error
}

// SyncMetrics receives synchronization health observations.
type SyncMetrics interface {
	SetDivergence(identities, profiles int64)
	AddBackfillRepaired(count int64)
}
