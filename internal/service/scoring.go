package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sellforge/ratings-service/internal/cache"
	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/internal/event"
	"github.com/sellforge/ratings-service/internal/repository"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
)

// ScoringService maintains the per-product rating aggregate.
type ScoringService struct {
	reviews   repository.ReviewRepository
	summaries repository.SummaryRepository
	cache     *cache.Cache
	producer  *event.Producer
	logger    *slog.Logger
}

// NewScoringService creates a new scoring service.
func NewScoringService(
	reviews repository.ReviewRepository,
	summaries repository.SummaryRepository,
	cache *cache.Cache,
	producer *event.Producer,
	logger *slog.Logger,
) *ScoringService {
	return &ScoringService{
		reviews:   reviews,
		summaries: summaries,
		cache:     cache,
		producer:  producer,
		logger:    logger,
	}
}

// Recalculate recomputes the product's aggregate from its full approved
// review set and upserts the summary row. A product with no approved reviews
// gets an explicit 0/0 row rather than a stale one. The operation is
// idempotent; running it twice in a row yields the same summary.
func (s *ScoringService) Recalculate(ctx context.Context, productID string) (*domain.ProductRatingSummary, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	totals, err := s.reviews.ApprovedTotalScores(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load approved scores: %w", err)
	}

	summary := &domain.ProductRatingSummary{
		ProductID:     productID,
		ReviewCount:   len(totals),
		AverageRating: domain.AverageScore(totals),
		UpdatedAt:     time.Now().UTC(),
	}

	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return nil, fmt.Errorf("upsert summary: %w", err)
	}

	if err := s.cache.Invalidate(ctx, cache.GroupProducts, productID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate product cache",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishProductRecalculated(ctx, summary); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.recalculated event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product rating recalculated",
		slog.String("product_id", productID),
		slog.Int("review_count", summary.ReviewCount),
		slog.Int("average_rating", summary.AverageRating),
	)

	return summary, nil
}

// GetSummary returns the cached product aggregate. A product that has never
// been rated yields a zero summary instead of a not-found error.
func (s *ScoringService) GetSummary(ctx context.Context, productID string) (*domain.ProductRatingSummary, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	return cache.GetOrLoad(ctx, s.cache, cache.SummaryKey(productID), func(ctx context.Context) (*domain.ProductRatingSummary, error) {
		summary, err := s.summaries.Get(ctx, productID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return &domain.ProductRatingSummary{ProductID: productID}, nil
			}
			return nil, fmt.Errorf("get summary: %w", err)
		}
		return summary, nil
	})
}
