package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/internal/repository"
	"github.com/sellforge/ratings-service/pkg/database"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Submit atomically inserts the review, its rating and author meta rows, and
// the denormalized snapshot. A failure at any step rolls back everything.
func (r *ReviewRepository) Submit(ctx context.Context, review *domain.Review, ratings []domain.Rating, meta []domain.AuthorMeta) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin submit tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO reviews (
			product_id, author_id, author_name, author_email, title, slug,
			summary, body, status, verified, total_score, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err = tx.QueryRow(ctx, query,
		review.ProductID,
		review.AuthorID,
		review.AuthorName,
		review.AuthorEmail,
		review.Title,
		review.Slug,
		review.Summary,
		review.Body,
		review.Status,
		review.Verified,
		review.TotalScore,
		review.CreatedAt,
		review.UpdatedAt,
	).Scan(&review.ID)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	for i := range ratings {
		ratings[i].ReviewID = review.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO ratings (review_id, attribute_id, score) VALUES ($1, $2, $3) RETURNING id`,
			ratings[i].ReviewID, ratings[i].AttributeID, ratings[i].Score,
		).Scan(&ratings[i].ID)
		if err != nil {
			return fmt.Errorf("insert rating for attribute %d: %w", ratings[i].AttributeID, err)
		}
	}

	for i := range meta {
		meta[i].ReviewID = review.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO author_meta (review_id, characteristic_id, value) VALUES ($1, $2, $3) RETURNING id`,
			meta[i].ReviewID, meta[i].CharacteristicID, meta[i].Value,
		).Scan(&meta[i].ID)
		if err != nil {
			return fmt.Errorf("insert author meta for characteristic %d: %w", meta[i].CharacteristicID, err)
		}
	}

	snapshot := domain.BuildSnapshot(review, ratings, meta)
	if err := upsertSnapshot(ctx, tx, snapshot); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit submit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	query := `
		SELECT id, product_id, author_id, author_name, author_email, title, slug,
		       summary, body, status, verified, total_score, created_at, updated_at
		FROM reviews
		WHERE id = $1`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.AuthorID,
		&rv.AuthorName,
		&rv.AuthorEmail,
		&rv.Title,
		&rv.Slug,
		&rv.Summary,
		&rv.Body,
		&rv.Status,
		&rv.Verified,
		&rv.TotalScore,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// GetDetails returns the rating and author meta rows of a review.
func (r *ReviewRepository) GetDetails(ctx context.Context, reviewID int64) ([]domain.Rating, []domain.AuthorMeta, error) {
	ratings, err := queryRatings(ctx, r.pool, reviewID)
	if err != nil {
		return nil, nil, err
	}

	meta, err := queryAuthorMeta(ctx, r.pool, reviewID)
	if err != nil {
		return nil, nil, err
	}

	return ratings, meta, nil
}

// ListSnapshotsByProduct returns paginated snapshot rows for a product.
func (r *ReviewRepository) ListSnapshotsByProduct(ctx context.Context, productID string, filter repository.ReviewFilter) ([]domain.ReviewSnapshot, int, error) {
	var (
		conditions = []string{"product_id = $1"}
		args       = []any{productID}
		argIndex   = 2
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT review_id, product_id, author_id, author_name, title, slug,
		       summary, body, status, verified, total_score,
		       attribute_scores, characteristic_values, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM review_snapshots
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list review snapshots: %w", err)
	}
	defer rows.Close()

	var (
		snapshots  []domain.ReviewSnapshot
		totalCount int
	)

	for rows.Next() {
		var (
			s          domain.ReviewSnapshot
			scoresJSON []byte
			valuesJSON []byte
		)

		if err := rows.Scan(
			&s.ReviewID,
			&s.ProductID,
			&s.AuthorID,
			&s.AuthorName,
			&s.Title,
			&s.Slug,
			&s.Summary,
			&s.Body,
			&s.Status,
			&s.Verified,
			&s.TotalScore,
			&scoresJSON,
			&valuesJSON,
			&s.CreatedAt,
			&s.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan snapshot row: %w", err)
		}

		if scoresJSON != nil {
			if err := json.Unmarshal(scoresJSON, &s.AttributeScores); err != nil {
				return nil, 0, fmt.Errorf("unmarshal attribute_scores: %w", err)
			}
		}
		if s.AttributeScores == nil {
			s.AttributeScores = map[int64]int{}
		}

		if valuesJSON != nil {
			if err := json.Unmarshal(valuesJSON, &s.CharacteristicValues); err != nil {
				return nil, 0, fmt.Errorf("unmarshal characteristic_values: %w", err)
			}
		}
		if s.CharacteristicValues == nil {
			s.CharacteristicValues = map[int64]string{}
		}

		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	if snapshots == nil {
		snapshots = []domain.ReviewSnapshot{}
	}

	return snapshots, totalCount, nil
}

// ApprovedTotalScores returns the total scores of all approved reviews for
// the product.
func (r *ReviewRepository) ApprovedTotalScores(ctx context.Context, productID string) ([]int, error) {
	query := `SELECT total_score FROM reviews WHERE product_id = $1 AND status = $2`

	rows, err := r.pool.Query(ctx, query, productID, domain.ReviewStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("query approved scores: %w", err)
	}
	defer rows.Close()

	var totals []int
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("scan approved score: %w", err)
		}
		totals = append(totals, score)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approved scores: %w", err)
	}

	return totals, nil
}

// CountByStatus returns the number of reviews per status for the product.
func (r *ReviewRepository) CountByStatus(ctx context.Context, productID string) (map[string]int, error) {
	query := `SELECT status, count(*) FROM reviews WHERE product_id = $1 GROUP BY status`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("count reviews by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return counts, nil
}

// Update rewrites the review row and rebuilds its snapshot in one transaction.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	review.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE reviews
		SET author_name = $1, author_email = $2, title = $3, slug = $4,
		    summary = $5, body = $6, status = $7, verified = $8, updated_at = $9
		WHERE id = $10`

	ct, err := tx.Exec(ctx, query,
		review.AuthorName,
		review.AuthorEmail,
		review.Title,
		review.Slug,
		review.Summary,
		review.Body,
		review.Status,
		review.Verified,
		review.UpdatedAt,
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", fmt.Sprintf("%d", review.ID))
	}

	if err := rebuildSnapshot(ctx, tx, review); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update tx: %w", err)
	}

	return nil
}

// BulkUpdateStatus sets the status of the given reviews and rebuilds their
// snapshots in one transaction.
func (r *ReviewRepository) BulkUpdateStatus(ctx context.Context, ids []int64, status string) ([]domain.Review, error) {
	if len(ids) == 0 {
		return []domain.Review{}, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin bulk status tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE reviews
		SET status = $1, updated_at = $2
		WHERE id = ANY($3)
		RETURNING id, product_id, author_id, author_name, author_email, title, slug,
		          summary, body, status, verified, total_score, created_at, updated_at`

	rows, err := tx.Query(ctx, query, status, time.Now().UTC(), ids)
	if err != nil {
		return nil, fmt.Errorf("bulk update status: %w", err)
	}

	var updated []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.AuthorID,
			&rv.AuthorName,
			&rv.AuthorEmail,
			&rv.Title,
			&rv.Slug,
			&rv.Summary,
			&rv.Body,
			&rv.Status,
			&rv.Verified,
			&rv.TotalScore,
			&rv.CreatedAt,
			&rv.UpdatedAt,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan updated review: %w", err)
		}
		updated = append(updated, rv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate updated reviews: %w", err)
	}

	for i := range updated {
		if err := rebuildSnapshot(ctx, tx, &updated[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit bulk status tx: %w", err)
	}

	if updated == nil {
		updated = []domain.Review{}
	}

	return updated, nil
}

// Delete removes the review and cascades to its rating, author meta and
// snapshot rows in one transaction.
func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM ratings WHERE review_id = $1`, id); err != nil {
		return fmt.Errorf("delete ratings: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM author_meta WHERE review_id = $1`, id); err != nil {
		return fmt.Errorf("delete author meta: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM review_snapshots WHERE review_id = $1`, id); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", fmt.Sprintf("%d", id))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}

	return nil
}

// rebuildSnapshot refreshes a review's snapshot row from the review and its
// current rating and author meta rows, within the caller's transaction.
func rebuildSnapshot(ctx context.Context, tx pgx.Tx, review *domain.Review) error {
	ratings, err := queryRatings(ctx, tx, review.ID)
	if err != nil {
		return err
	}
	meta, err := queryAuthorMeta(ctx, tx, review.ID)
	if err != nil {
		return err
	}

	return upsertSnapshot(ctx, tx, domain.BuildSnapshot(review, ratings, meta))
}

// querier is the subset of DBTX shared by pools and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryRatings(ctx context.Context, q querier, reviewID int64) ([]domain.Rating, error) {
	rows, err := q.Query(ctx,
		`SELECT id, review_id, attribute_id, score FROM ratings WHERE review_id = $1 ORDER BY attribute_id`,
		reviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		var rt domain.Rating
		if err := rows.Scan(&rt.ID, &rt.ReviewID, &rt.AttributeID, &rt.Score); err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating rows: %w", err)
	}

	if ratings == nil {
		ratings = []domain.Rating{}
	}
	return ratings, nil
}

func queryAuthorMeta(ctx context.Context, q querier, reviewID int64) ([]domain.AuthorMeta, error) {
	rows, err := q.Query(ctx,
		`SELECT id, review_id, characteristic_id, value FROM author_meta WHERE review_id = $1 ORDER BY characteristic_id`,
		reviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("query author meta: %w", err)
	}
	defer rows.Close()

	var meta []domain.AuthorMeta
	for rows.Next() {
		var m domain.AuthorMeta
		if err := rows.Scan(&m.ID, &m.ReviewID, &m.CharacteristicID, &m.Value); err != nil {
			return nil, fmt.Errorf("scan author meta row: %w", err)
		}
		meta = append(meta, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate author meta rows: %w", err)
	}

	if meta == nil {
		meta = []domain.AuthorMeta{}
	}
	return meta, nil
}

// upsertSnapshot writes the snapshot row within the caller's transaction.
func upsertSnapshot(ctx context.Context, tx pgx.Tx, s *domain.ReviewSnapshot) error {
	scoresJSON, err := json.Marshal(s.AttributeScores)
	if err != nil {
		return fmt.Errorf("marshal attribute_scores: %w", err)
	}
	valuesJSON, err := json.Marshal(s.CharacteristicValues)
	if err != nil {
		return fmt.Errorf("marshal characteristic_values: %w", err)
	}

	query := `
		INSERT INTO review_snapshots (
			review_id, product_id, author_id, author_name, title, slug, summary,
			body, status, verified, total_score, attribute_scores,
			characteristic_values, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (review_id) DO UPDATE SET
			author_name = EXCLUDED.author_name,
			title = EXCLUDED.title,
			slug = EXCLUDED.slug,
			summary = EXCLUDED.summary,
			body = EXCLUDED.body,
			status = EXCLUDED.status,
			verified = EXCLUDED.verified,
			total_score = EXCLUDED.total_score,
			attribute_scores = EXCLUDED.attribute_scores,
			characteristic_values = EXCLUDED.characteristic_values,
			updated_at = EXCLUDED.updated_at`

	_, err = tx.Exec(ctx, query,
		s.ReviewID,
		s.ProductID,
		s.AuthorID,
		s.AuthorName,
		s.Title,
		s.Slug,
		s.Summary,
		s.Body,
		s.Status,
		s.Verified,
		s.TotalScore,
		scoresJSON,
		valuesJSON,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	return nil
}
