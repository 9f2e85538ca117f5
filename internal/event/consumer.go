package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/internal/repository"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
	pkgkafka "github.com/sellforge/ratings-service/pkg/kafka"
)

// Topics consumed from other services.
const (
	TopicOrderCompleted = "ecommerce.order.completed"
)

// Consumer group ID for the ratings service.
const ConsumerGroupID = "ratings-service"

// OrderCompletedData is the payload of an order.completed event, reduced to
// the fields this service needs to schedule review reminders.
type OrderCompletedData struct {
	OrderID string               `json:"order_id"`
	Email   string               `json:"email"`
	Items   []OrderCompletedItem `json:"items"`
}

// OrderCompletedItem is one purchased line in a completed order.
type OrderCompletedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ConsumerHandler routes incoming Kafka events to the appropriate handler.
type ConsumerHandler struct {
	invitations   repository.InvitationRepository
	reminderDelay time.Duration
	logger        *slog.Logger
}

// NewConsumerHandler creates a handler that turns completed orders into
// review invitations due reminderDelay after the order completes.
func NewConsumerHandler(invitations repository.InvitationRepository, reminderDelay time.Duration, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		invitations:   invitations,
		reminderDelay: reminderDelay,
		logger:        logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicOrderCompleted:
		return h.handleOrderCompleted(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleOrderCompleted schedules one review invitation per purchased product.
// A duplicate (order, product) pair means the event was already processed and
// is skipped rather than retried.
func (h *ConsumerHandler) handleOrderCompleted(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderCompletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal order.completed data: %w", err)
	}

	if data.OrderID == "" || data.Email == "" {
		h.logger.WarnContext(ctx, "order.completed event missing order_id or email, skipping",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	now := time.Now().UTC()
	created := 0

	for _, item := range data.Items {
		if item.ProductID == "" {
			continue
		}

		inv := &domain.ReviewInvitation{
			ProductID: item.ProductID,
			OrderID:   data.OrderID,
			Email:     data.Email,
			RemindAt:  now.Add(h.reminderDelay),
			CreatedAt: now,
		}

		if err := h.invitations.Create(ctx, inv); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				continue
			}
			return fmt.Errorf("create review invitation for product %s: %w", item.ProductID, err)
		}
		created++
	}

	h.logger.InfoContext(ctx, "scheduled review invitations",
		slog.String("order_id", data.OrderID),
		slog.Int("created", created),
		slog.Int("items", len(data.Items)),
	)

	return nil
}

// NewConsumers creates Kafka consumers for all topics the ratings service
// subscribes to.
func NewConsumers(brokers []string, handler pkgkafka.Handler, logger *slog.Logger) []*pkgkafka.Consumer {
	topics := []string{
		TopicOrderCompleted,
	}

	consumers := make([]*pkgkafka.Consumer, 0, len(topics))

	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  ConsumerGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}

		consumers = append(consumers, pkgkafka.NewConsumer(cfg, handler, logger))
	}

	return consumers
}
