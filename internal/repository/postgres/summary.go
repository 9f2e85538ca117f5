package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/pkg/database"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
)

// SummaryRepository implements product rating summary persistence using PostgreSQL.
type SummaryRepository struct {
	pool database.DBTX
}

// NewSummaryRepository creates a new PostgreSQL-backed summary repository.
func NewSummaryRepository(pool database.DBTX) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

// Upsert writes the summary row, replacing any previous aggregate.
func (r *SummaryRepository) Upsert(ctx context.Context, s *domain.ProductRatingSummary) error {
	query := `
		INSERT INTO product_rating_summaries (product_id, review_count, average_rating, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id) DO UPDATE SET
			review_count = EXCLUDED.review_count,
			average_rating = EXCLUDED.average_rating,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query, s.ProductID, s.ReviewCount, s.AverageRating, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert product rating summary: %w", err)
	}

	return nil
}

// Get retrieves the summary for a product.
func (r *SummaryRepository) Get(ctx context.Context, productID string) (*domain.ProductRatingSummary, error) {
	query := `
		SELECT product_id, review_count, average_rating, updated_at
		FROM product_rating_summaries
		WHERE product_id = $1`

	var s domain.ProductRatingSummary
	err := r.pool.QueryRow(ctx, query, productID).Scan(
		&s.ProductID,
		&s.ReviewCount,
		&s.AverageRating,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product rating summary: %w", err)
	}

	return &s, nil
}
