package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	topicProfileSynced     = "profile.synced"
	topicBackfillCompleted = "profile.backfill.completed"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishProfileSynced publishes profile.synced events.
func (p *EventPublisher) PublishProfileSynced(ctx context.Context, event domain.ProfileSyncedEvent) error {
	payload := struct {
		UserID      string      `json:"user_id"`
		Email       string      `json:"email"`
		DisplayName string      `json:"display_name"`
		Role        domain.Role `json:"role"`
		SyncedAt    time.Time   `json:"synced_at"`
	}{
		UserID:      event.UserID,
		Email:       event.Email,
		DisplayName: event.DisplayName,
		Role:        event.Role,
		SyncedAt:    event.SyncedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, topicProfileSynced, event.UserID, event.SyncedAt, payload)
}

// PublishBackfillCompleted publishes profile.backfill.completed events.
func (p *EventPublisher) PublishBackfillCompleted(ctx context.Context, event domain.BackfillCompletedEvent) error {
	payload := struct {
		Repaired    int64     `json:"repaired"`
		CompletedAt time.Time `json:"completed_at"`
	}{
		Repaired:    event.Repaired,
		CompletedAt: event.CompletedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, topicBackfillCompleted, "", event.CompletedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
