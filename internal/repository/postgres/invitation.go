package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sellforge/ratings-service/internal/domain"
	"github.com/sellforge/ratings-service/pkg/database"
	apperrors "github.com/sellforge/ratings-service/pkg/errors"
)

// InvitationRepository implements review invitation persistence using PostgreSQL.
type InvitationRepository struct {
	pool database.DBTX
}

// NewInvitationRepository creates a new PostgreSQL-backed invitation repository.
func NewInvitationRepository(pool database.DBTX) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

// Create inserts an invitation. Duplicate (order_id, product_id) pairs are
// rejected so replayed order events cannot schedule double reminders.
func (r *InvitationRepository) Create(ctx context.Context, inv *domain.ReviewInvitation) error {
	query := `
		INSERT INTO review_invitations (product_id, order_id, email, remind_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		inv.ProductID,
		inv.OrderID,
		inv.Email,
		inv.RemindAt,
		inv.CreatedAt,
	).Scan(&inv.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("review invitation", "order_id", inv.OrderID)
		}
		return fmt.Errorf("insert review invitation: %w", err)
	}

	return nil
}

// ListDue returns up to limit unsent invitations due at or before now,
// oldest first.
func (r *InvitationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ReviewInvitation, error) {
	query := `
		SELECT id, product_id, order_id, email, remind_at, sent_at, created_at
		FROM review_invitations
		WHERE sent_at IS NULL AND remind_at <= $1
		ORDER BY remind_at
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due invitations: %w", err)
	}
	defer rows.Close()

	var invitations []domain.ReviewInvitation
	for rows.Next() {
		var inv domain.ReviewInvitation
		if err := rows.Scan(
			&inv.ID,
			&inv.ProductID,
			&inv.OrderID,
			&inv.Email,
			&inv.RemindAt,
			&inv.SentAt,
			&inv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan invitation row: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitation rows: %w", err)
	}

	if invitations == nil {
		invitations = []domain.ReviewInvitation{}
	}

	return invitations, nil
}

// MarkSent stamps sent_at on the given invitations.
func (r *InvitationRepository) MarkSent(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE review_invitations SET sent_at = $1 WHERE id = ANY($2) AND sent_at IS NULL`,
		at, ids,
	)
	if err != nil {
		return fmt.Errorf("mark invitations sent: %w", err)
	}

	return nil
}
