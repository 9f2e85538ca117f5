package repository

import (
	"context"
	"time"

	"github.com/sellforge/ratings-service/internal/domain"
)

// ReviewFilter defines filter criteria for listing a product's reviews.
type ReviewFilter struct {
	Status  *string
	Page    int
	PerPage int
}

// ReviewRepository defines persistence operations for reviews and their
// dependent rows (ratings, author meta, snapshots). Multi-row operations are
// transactional: a failed submission or delete leaves no partial rows.
type ReviewRepository interface {
	// Submit atomically inserts the review, its rating rows, its author meta
	// rows, and the denormalized snapshot. On success the generated IDs are
	// written back into the passed structs.
	Submit(ctx context.Context, review *domain.Review, ratings []domain.Rating, meta []domain.AuthorMeta) error

	// GetByID retrieves a review by its ID.
	GetByID(ctx context.Context, id int64) (*domain.Review, error)

	// GetDetails returns the rating and author meta rows of a review.
	GetDetails(ctx context.Context, reviewID int64) ([]domain.Rating, []domain.AuthorMeta, error)

	// ListSnapshotsByProduct returns paginated snapshot rows for a product
	// along with the total count.
	ListSnapshotsByProduct(ctx context.Context, productID string, filter ReviewFilter) ([]domain.ReviewSnapshot, int, error)

	// ApprovedTotalScores returns the total scores of all approved reviews
	// for a product. Used by the aggregate recalculation.
	ApprovedTotalScores(ctx context.Context, productID string) ([]int, error)

	// CountByStatus returns the number of reviews per status for a product.
	// Statuses with no reviews are absent from the map.
	CountByStatus(ctx context.Context, productID string) (map[string]int, error)

	// Update rewrites the review row and rebuilds its snapshot in the same
	// transaction.
	Update(ctx context.Context, review *domain.Review) error

	// BulkUpdateStatus sets the status of the given reviews and rebuilds
	// their snapshots in one transaction. Returns the updated reviews.
	BulkUpdateStatus(ctx context.Context, ids []int64, status string) ([]domain.Review, error)

	// Delete removes the review and cascades to its rating, author meta and
	// snapshot rows in one transaction.
	Delete(ctx context.Context, id int64) error
}

// AttributeRepository defines persistence operations for scoring attributes.
type AttributeRepository interface {
	Create(ctx context.Context, attr *domain.Attribute) error
	GetByID(ctx context.Context, id int64) (*domain.Attribute, error)
	// List returns all attributes. When productID is non-empty the result is
	// limited to global attributes plus those scoped to that product.
	List(ctx context.Context, productID string) ([]domain.Attribute, error)
	Update(ctx context.Context, attr *domain.Attribute) error
	Delete(ctx context.Context, id int64) error
	// BulkDelete removes the given attributes, returning how many existed.
	BulkDelete(ctx context.Context, ids []int64) (int, error)
}

// CharacteristicRepository defines persistence operations for reviewer
// characteristics.
type CharacteristicRepository interface {
	Create(ctx context.Context, ch *domain.Characteristic) error
	GetByID(ctx context.Context, id int64) (*domain.Characteristic, error)
	List(ctx context.Context) ([]domain.Characteristic, error)
	Update(ctx context.Context, ch *domain.Characteristic) error
	Delete(ctx context.Context, id int64) error
	BulkDelete(ctx context.Context, ids []int64) (int, error)
}

// SummaryRepository defines persistence operations for per-product rating
// aggregates.
type SummaryRepository interface {
	// Upsert writes the summary row, replacing any previous aggregate.
	Upsert(ctx context.Context, summary *domain.ProductRatingSummary) error
	Get(ctx context.Context, productID string) (*domain.ProductRatingSummary, error)
}

// InvitationRepository defines persistence operations for review reminder
// invitations.
type InvitationRepository interface {
	// Create inserts an invitation. Duplicate (order_id, product_id) pairs
	// are rejected with an already-exists error.
	Create(ctx context.Context, inv *domain.ReviewInvitation) error

	// ListDue returns up to limit unsent invitations whose remind_at is at
	// or before now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ReviewInvitation, error)

	// MarkSent stamps sent_at on the given invitations.
	MarkSent(ctx context.Context, ids []int64, at time.Time) error
}
