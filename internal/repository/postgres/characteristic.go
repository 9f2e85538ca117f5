package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/pkg/database"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
)

// CharacteristicRepository implements characteristic persistence using PostgreSQL.
type CharacteristicRepository struct {
	pool database.DBTX
}

// NewCharacteristicRepository creates a new PostgreSQL-backed characteristic repository.
func NewCharacteristicRepository(pool database.DBTX) *CharacteristicRepository {
	return &CharacteristicRepository{pool: pool}
}

// Create inserts a new characteristic.
func (r *CharacteristicRepository) Create(ctx context.Context, c *domain.Characteristic) error {
	valuesJSON, err := json.Marshal(c.Values)
	if err != nil {
		return fmt.Errorf("marshal characteristic values: %w", err)
	}

	query := `
		INSERT INTO characteristics (name, slug, description, "values", field_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err = r.pool.QueryRow(ctx, query,
		c.Name,
		c.Slug,
		c.Description,
		valuesJSON,
		c.FieldType,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("characteristic", "slug", c.Slug)
		}
		return fmt.Errorf("insert characteristic: %w", err)
	}

	return nil
}

// GetByID retrieves a characteristic by its ID.
func (r *CharacteristicRepository) GetByID(ctx context.Context, id int64) (*domain.Characteristic, error) {
	query := `
		SELECT id, name, slug, description, "values", field_type, created_at, updated_at
		FROM characteristics
		WHERE id = $1`

	return scanCharacteristicRow(r.pool.QueryRow(ctx, query, id))
}

// List returns all characteristics ordered by name.
func (r *CharacteristicRepository) List(ctx context.Context) ([]domain.Characteristic, error) {
	query := `
		SELECT id, name, slug, description, "values", field_type, created_at, updated_at
		FROM characteristics
		ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list characteristics: %w", err)
	}
	defer rows.Close()

	var chars []domain.Characteristic
	for rows.Next() {
		var (
			c          domain.Characteristic
			valuesJSON []byte
		)
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Slug,
			&c.Description,
			&valuesJSON,
			&c.FieldType,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan characteristic row: %w", err)
		}

		if valuesJSON != nil {
			if err := json.Unmarshal(valuesJSON, &c.Values); err != nil {
				return nil, fmt.Errorf("unmarshal characteristic values: %w", err)
			}
		}
		if c.Values == nil {
			c.Values = []domain.CharacteristicValue{}
		}

		chars = append(chars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate characteristic rows: %w", err)
	}

	if chars == nil {
		chars = []domain.Characteristic{}
	}

	return chars, nil
}

// Update modifies an existing characteristic.
func (r *CharacteristicRepository) Update(ctx context.Context, c *domain.Characteristic) error {
	valuesJSON, err := json.Marshal(c.Values)
	if err != nil {
		return fmt.Errorf("marshal characteristic values: %w", err)
	}

	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE characteristics
		SET name = $1, slug = $2, description = $3, "values" = $4, field_type = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.pool.Exec(ctx, query,
		c.Name,
		c.Slug,
		c.Description,
		valuesJSON,
		c.FieldType,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("characteristic", "slug", c.Slug)
		}
		return fmt.Errorf("update characteristic: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("characteristic", fmt.Sprintf("%d", c.ID))
	}

	return nil
}

// Delete removes a characteristic. Existing author meta rows keep their
// characteristic_id; orphaned ids fail to resolve at display time.
func (r *CharacteristicRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM characteristics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete characteristic: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("characteristic", fmt.Sprintf("%d", id))
	}
	return nil
}

// BulkDelete removes the given characteristics, returning how many existed.
func (r *CharacteristicRepository) BulkDelete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ct, err := r.pool.Exec(ctx, `DELETE FROM characteristics WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete characteristics: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// scanCharacteristicRow scans a single characteristic row.
func scanCharacteristicRow(row pgx.Row) (*domain.Characteristic, error) {
	var (
		c          domain.Characteristic
		valuesJSON []byte
	)

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&valuesJSON,
		&c.FieldType,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan characteristic: %w", err)
	}

	if valuesJSON != nil {
		if err := json.Unmarshal(valuesJSON, &c.Values); err != nil {
			return nil, fmt.Errorf("unmarshal characteristic values: %w", err)
		}
	}
	if c.Values == nil {
		c.Values = []domain.CharacteristicValue{}
	}

	return &c, nil
}
