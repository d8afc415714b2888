package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	if cfg.Version == (sarama.KafkaVersion{}) {
		cfg.Version = sarama.V2_5_0_0
	}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

// Run consumes topics until ctx ends, rejoining the group after rebalances.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler, logger: c.logger, retry: defaultRetry}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

// retryPolicy doubles the delay between attempts up to max.
type retryPolicy struct {
	initial time.Duration
	max     time.Duration
}

var defaultRetry = retryPolicy{initial: 100 * time.Millisecond, max: 10 * time.Second}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
	retry   retryPolicy
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks offsets strictly in order. A failing message is retried
// in place, so no later offset is committed past it; if the session ends
// first the message stays unmarked and is redelivered after the rejoin.
func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handleWithRetry(ctx, message); err != nil {
				return nil
			}
			sess.MarkMessage(message, "")
		case <-ctx.Done():
			return nil
		}
	}
}

// handleWithRetry returns nil once the handler succeeds, or ctx's error.
func (h consumerGroupHandler) handleWithRetry(ctx context.Context, message *sarama.ConsumerMessage) error {
	delay := h.retry.initial
	if delay <= 0 {
		delay = defaultRetry.initial
	}
	for attempt := 1; ; attempt++ {
		err := h.handler.Handle(ctx, message)
		if err == nil {
			return nil
		}
		h.logger.Warn("message handling failed",
			"topic", message.Topic,
			"partition", message.Partition,
			"offset", message.Offset,
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if h.retry.max > 0 && delay > h.retry.max {
			delay = h.retry.max
		}
	}
}
