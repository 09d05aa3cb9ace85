package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/config"
)

// IdentitySyncHandler processes identity-created events. Implemented by the
// profile synchronization service.
type IdentitySyncHandler interface {
	HandleIdentityCreated(ctx context.Context, event domain.IdentityCreatedEvent) error
}

// IdentityConsumer materializes profile rows from the identity provider's
// event stream. The handler path is idempotent, so at-least-once delivery
// and rebalance-driven redelivery are safe.
type IdentityConsumer struct {
	handler IdentitySyncHandler
	logger  *zap.Logger
}

// NewIdentityConsumer constructs a consumer feeding the sync service.
func NewIdentityConsumer(handler IdentitySyncHandler, logger *zap.Logger) *IdentityConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityConsumer{handler: handler, logger: logger}
}

// HandleMessage decodes a Kafka message prior to processing.
func (c *IdentityConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var event domain.IdentityCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode identity created event: %w", err)
	}

	return c.HandleEvent(ctx, event)
}

// HandleEvent forwards the decoded event to the sync service.
func (c *IdentityConsumer) HandleEvent(ctx context.Context, event domain.IdentityCreatedEvent) error {
	if c.handler == nil {
		return nil
	}
	if err := c.handler.HandleIdentityCreated(ctx, event); err != nil {
		return fmt.Errorf("sync identity %s: %w", event.UserID, err)
	}
	return nil
}

// Run joins the consumer group and processes the identity topic until the
// context is cancelled.
func (c *IdentityConsumer) Run(ctx context.Context, cfg config.KafkaSettings) error {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			c.logger.Error("consumer group error", zap.Error(err))
		}
	}()

	topic := cfg.IdentityTopic
	if cfg.TopicPrefix != "" {
		topic = fmt.Sprintf("%s.%s", cfg.TopicPrefix, cfg.IdentityTopic)
	}

	handler := &identityGroupHandler{consumer: c, logger: c.logger}
	for {
		if err := group.Consume(ctx, []string{topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume identity topic: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

type identityGroupHandler struct {
	consumer *IdentityConsumer
	logger   *zap.Logger
}

func (h *identityGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *identityGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *identityGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.consumer.HandleMessage(session.Context(), msg); err != nil {
			// Leave the offset unmarked so the message is redelivered; the
			// idempotent upsert absorbs the duplicate work.
			h.logger.Error("identity event processing failed",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}
		session.MarkMessage(msg, "")
	}
	return nil
}
