package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sellforge/ratings-service/internal/domain"
	pkgkafka "github.com/sellforge/ratings-service/pkg/kafka"
)

// Kafka topics published by the ratings service.
const (
	TopicReviewSubmitted     = "ratings.review.submitted"
	TopicReviewStatusChanged = "ratings.review.status_changed"
	TopicReviewDeleted       = "ratings.review.deleted"
	TopicProductRecalculated = "ratings.product.recalculated"
	TopicReminderDue         = "ratings.reminder.due"
)

// Aggregate type constants.
const (
	AggregateTypeReview  = "review"
	AggregateTypeProduct = "product"
)

// Source identifier for events originating from this service.
const SourceRatingsService = "ratings-service"

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ReviewID   int64  `json:"review_id"`
	ProductID  string `json:"product_id"`
	AuthorName string `json:"author_name"`
	Status     string `json:"status"`
	TotalScore int    `json:"total_score"`
	Verified   bool   `json:"verified"`
}

// ReviewStatusChangedData is the payload for a review.status_changed event.
type ReviewStatusChangedData struct {
	ReviewID  int64  `json:"review_id"`
	ProductID string `json:"product_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ReviewID  int64  `json:"review_id"`
	ProductID string `json:"product_id"`
}

// ProductRecalculatedData is the payload for a product.recalculated event.
// Downstream services (catalog, search) read it to refresh the product's
// displayed rating without querying this service.
type ProductRecalculatedData struct {
	ProductID     string `json:"product_id"`
	ReviewCount   int    `json:"review_count"`
	AverageRating int    `json:"average_rating"`
}

// ReminderDueData is the payload for a reminder.due event. The notification
// service owns the actual email delivery.
type ReminderDueData struct {
	InvitationID int64  `json:"invitation_id"`
	ProductID    string `json:"product_id"`
	OrderID      string `json:"order_id"`
	Email        string `json:"email"`
}

// Producer publishes ratings domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the ratings service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	data := ReviewSubmittedData{
		ReviewID:   review.ID,
		ProductID:  review.ProductID,
		AuthorName: review.AuthorName,
		Status:     review.Status,
		TotalScore: review.TotalScore,
		Verified:   review.Verified,
	}

	event, err := pkgkafka.NewEvent(TopicReviewSubmitted, review.ProductID, AggregateTypeReview, SourceRatingsService, data)
	if err != nil {
		return fmt.Errorf("create review.submitted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewSubmitted, event); err != nil {
		return fmt.Errorf("publish review.submitted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.submitted event",
		slog.Int64("review_id", review.ID),
		slog.String("product_id", review.ProductID),
	)

	return nil
}

// PublishReviewStatusChanged publishes a review.status_changed event.
func (p *Producer) PublishReviewStatusChanged(ctx context.Context, review *domain.Review, oldStatus string) error {
	data := ReviewStatusChangedData{
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		OldStatus: oldStatus,
		NewStatus: review.Status,
	}

	event, err := pkgkafka.NewEvent(TopicReviewStatusChanged, review.ProductID, AggregateTypeReview, SourceRatingsService, data)
	if err != nil {
		return fmt.Errorf("create review.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewStatusChanged, event); err != nil {
		return fmt.Errorf("publish review.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.status_changed event",
		slog.Int64("review_id", review.ID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", review.Status),
	)

	return nil
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, reviewID int64, productID string) error {
	data := ReviewDeletedData{
		ReviewID:  reviewID,
		ProductID: productID,
	}

	event, err := pkgkafka.NewEvent(TopicReviewDeleted, productID, AggregateTypeReview, SourceRatingsService, data)
	if err != nil {
		return fmt.Errorf("create review.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewDeleted, event); err != nil {
		return fmt.Errorf("publish review.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.deleted event",
		slog.Int64("review_id", reviewID),
		slog.String("product_id", productID),
	)

	return nil
}

// PublishProductRecalculated publishes a product.recalculated event.
func (p *Producer) PublishProductRecalculated(ctx context.Context, summary *domain.ProductRatingSummary) error {
	data := ProductRecalculatedData{
		ProductID:     summary.ProductID,
		ReviewCount:   summary.ReviewCount,
		AverageRating: summary.AverageRating,
	}

	event, err := pkgkafka.NewEvent(TopicProductRecalculated, summary.ProductID, AggregateTypeProduct, SourceRatingsService, data)
	if err != nil {
		return fmt.Errorf("create product.recalculated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductRecalculated, event); err != nil {
		return fmt.Errorf("publish product.recalculated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.recalculated event",
		slog.String("product_id", summary.ProductID),
		slog.Int("review_count", summary.ReviewCount),
	)

	return nil
}

// PublishReminderDue publishes a reminder.due event for one invitation.
func (p *Producer) PublishReminderDue(ctx context.Context, inv *domain.ReviewInvitation) error {
	data := ReminderDueData{
		InvitationID: inv.ID,
		ProductID:    inv.ProductID,
		OrderID:      inv.OrderID,
		Email:        inv.Email,
	}

	event, err := pkgkafka.NewEvent(TopicReminderDue, inv.ProductID, AggregateTypeProduct, SourceRatingsService, data)
	if err != nil {
		return fmt.Errorf("create reminder.due event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReminderDue, event); err != nil {
		return fmt.Errorf("publish reminder.due event: %w", err)
	}

	p.logger.DebugContext(ctx, "published reminder.due event",
		slog.Int64("invitation_id", inv.ID),
		slog.String("order_id", inv.OrderID),
	)

	return nil
}
