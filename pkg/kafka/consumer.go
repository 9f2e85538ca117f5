package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerRetries is the number of times a message handler is attempted
// before the message is routed to the DLQ (or skipped when no DLQ is
// configured).
const maxHandlerRetries = 3

// Handler processes a single Kafka event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// Consumer wraps the kafka-go reader for consuming events. Messages whose
// handler fails all retries are published to the dead-letter queue when a
// DLQProducer is attached, and committed either way so a poison message
// cannot stall the partition.
type Consumer struct {
	reader    *kafka.Reader
	logger    *slog.Logger
	handler   Handler
	dlq       *DLQProducer
	closeOnce sync.Once
}

// NewConsumer creates a Kafka consumer for a topic and group.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})

	return &Consumer{
		reader:  r,
		logger:  logger,
		handler: handler,
	}
}

// WithDLQ attaches a dead-letter queue producer for messages that exhaust
// their retries.
func (c *Consumer) WithDLQ(dlq *DLQProducer) *Consumer {
	c.dlq = dlq
	return c
}

// Start consumes messages until the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	topic := c.reader.Config().Topic
	group := c.reader.Config().GroupID

	c.logger.Info("consumer started",
		slog.String("topic", topic),
		slog.String("group", group),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", slog.String("topic", topic))
			return c.Close()
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
				continue
			}

			ConsumerMessagesReceived.WithLabelValues(topic, group).Inc()

			event, err := UnmarshalEvent(msg.Value)
			if err != nil {
				c.logger.Error("failed to unmarshal event",
					slog.String("error", err.Error()),
					slog.String("topic", msg.Topic),
				)
				if commitErr := c.reader.CommitMessages(ctx, msg); commitErr != nil {
					c.logger.Error("failed to commit bad message", slog.String("error", commitErr.Error()))
				}
				continue
			}

			lastErr := c.handleWithRetries(ctx, event, msg)
			if ctx.Err() != nil {
				return nil
			}

			if lastErr != nil {
				ConsumerMessagesFailed.WithLabelValues(topic, group).Inc()
				c.logger.Error("handler failed after all retries",
					slog.String("event_type", event.EventType),
					slog.String("aggregate_id", event.AggregateID),
					slog.String("error", lastErr.Error()),
					slog.String("topic", msg.Topic),
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				if c.dlq != nil {
					if dlqErr := c.dlq.Publish(ctx, msg, lastErr, group); dlqErr != nil {
						c.logger.Error("failed to publish to DLQ", slog.String("error", dlqErr.Error()))
					}
				}
			} else {
				ConsumerMessagesProcessed.WithLabelValues(topic, group).Inc()
			}

			// Commit regardless of outcome.
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("failed to commit message", slog.String("error", err.Error()))
			}
		}
	}
}

// handleWithRetries runs the handler up to maxHandlerRetries times with a
// short linear backoff between attempts.
func (c *Consumer) handleWithRetries(ctx context.Context, event *Event, msg kafka.Message) error {
	start := time.Now()
	defer func() {
		ConsumerProcessingDuration.
			WithLabelValues(c.reader.Config().Topic, c.reader.Config().GroupID).
			Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		if err := c.handler(ctx, event); err != nil {
			lastErr = err
			c.logger.Warn("handler failed, will retry",
				slog.String("event_type", event.EventType),
				slog.String("aggregate_id", event.AggregateID),
				slog.String("error", err.Error()),
				slog.Int("attempt", attempt),
				slog.Int("max_retries", maxHandlerRetries),
				slog.Int64("offset", msg.Offset),
			)

			if attempt < maxHandlerRetries {
				backoff := time.Duration(attempt) * 100 * time.Millisecond
				select {
				case <-ctx.Done():
					return lastErr
				case <-time.After(backoff):
				}
			}
			continue
		}
		return nil
	}
	return lastErr
}

// Close closes the consumer. Safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
