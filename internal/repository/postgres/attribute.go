package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/pkg/database"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
)

// AttributeRepository implements attribute persistence using PostgreSQL.
type AttributeRepository struct {
	pool database.DBTX
}

// NewAttributeRepository creates a new PostgreSQL-backed attribute repository.
func NewAttributeRepository(pool database.DBTX) *AttributeRepository {
	return &AttributeRepository{pool: pool}
}

// Create inserts a new attribute.
func (r *AttributeRepository) Create(ctx context.Context, attr *domain.Attribute) error {
	query := `
		INSERT INTO attributes (name, slug, description, min_label, max_label, product_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		attr.Name,
		attr.Slug,
		attr.Description,
		attr.MinLabel,
		attr.MaxLabel,
		attr.ProductID,
		attr.CreatedAt,
		attr.UpdatedAt,
	).Scan(&attr.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("attribute", "slug", attr.Slug)
		}
		return fmt.Errorf("insert attribute: %w", err)
	}

	return nil
}

// GetByID retrieves an attribute by its ID.
func (r *AttributeRepository) GetByID(ctx context.Context, id int64) (*domain.Attribute, error) {
	query := `
		SELECT id, name, slug, description, min_label, max_label, product_id, created_at, updated_at
		FROM attributes
		WHERE id = $1`

	var a domain.Attribute
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.Name,
		&a.Slug,
		&a.Description,
		&a.MinLabel,
		&a.MaxLabel,
		&a.ProductID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan attribute: %w", err)
	}

	return &a, nil
}

// List returns attributes, optionally limited to global ones plus those
// scoped to the given product.
func (r *AttributeRepository) List(ctx context.Context, productID string) ([]domain.Attribute, error) {
	query := `
		SELECT id, name, slug, description, min_label, max_label, product_id, created_at, updated_at
		FROM attributes`
	var args []any

	if productID != "" {
		query += ` WHERE product_id IS NULL OR product_id = $1`
		args = append(args, productID)
	}

	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	var attrs []domain.Attribute
	for rows.Next() {
		var a domain.Attribute
		if err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.Slug,
			&a.Description,
			&a.MinLabel,
			&a.MaxLabel,
			&a.ProductID,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attribute row: %w", err)
		}
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribute rows: %w", err)
	}

	if attrs == nil {
		attrs = []domain.Attribute{}
	}

	return attrs, nil
}

// Update modifies an existing attribute.
func (r *AttributeRepository) Update(ctx context.Context, attr *domain.Attribute) error {
	attr.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE attributes
		SET name = $1, slug = $2, description = $3, min_label = $4, max_label = $5,
		    product_id = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.pool.Exec(ctx, query,
		attr.Name,
		attr.Slug,
		attr.Description,
		attr.MinLabel,
		attr.MaxLabel,
		attr.ProductID,
		attr.UpdatedAt,
		attr.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("attribute", "slug", attr.Slug)
		}
		return fmt.Errorf("update attribute: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("attribute", fmt.Sprintf("%d", attr.ID))
	}

	return nil
}

// Delete removes an attribute. Existing rating rows keep their attribute_id;
// orphaned ids fail to resolve at display time.
func (r *AttributeRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM attributes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("attribute", fmt.Sprintf("%d", id))
	}
	return nil
}

// BulkDelete removes the given attributes, returning how many existed.
func (r *AttributeRepository) BulkDelete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ct, err := r.pool.Exec(ctx, `DELETE FROM attributes WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete attributes: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
