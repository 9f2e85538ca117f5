package domain

import (
	"math"
	"time"
)

// Review status constants.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
	ReviewStatusHidden   = "hidden"
)

// Score bounds for every rating dimension, including the overall score.
const (
	ScoreMin = 1
	ScoreMax = 7
)

// OverallAttributeID is the reserved attribute ID for a review's overall
// score row. Admin-defined attributes always get positive IDs.
const OverallAttributeID int64 = 0

// Review represents a product review submitted by a shopper.
type Review struct {
	ID          int64     `json:"id"`
	ProductID   string    `json:"product_id"`
	AuthorID    string    `json:"author_id,omitempty"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email,omitempty"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Summary     string    `json:"summary,omitempty"`
	Body        string    `json:"body"`
	Status      string    `json:"status"`
	Verified    bool      `json:"verified"`
	TotalScore  int       `json:"total_score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Rating is one scored dimension of a review. A review always carries one
// rating row with AttributeID == OverallAttributeID, plus one row per scored
// admin-defined attribute. Rating rows are inserted at submission time and
// deleted with their parent review; they are never updated in place.
type Rating struct {
	ID          int64 `json:"id"`
	ReviewID    int64 `json:"review_id"`
	AttributeID int64 `json:"attribute_id"`
	Score       int   `json:"score"`
}

// AuthorMeta is a reviewer's self-reported trait value for one
// characteristic. Same lifecycle as Rating.
type AuthorMeta struct {
	ID               int64  `json:"id"`
	ReviewID         int64  `json:"review_id"`
	CharacteristicID int64  `json:"characteristic_id"`
	Value            string `json:"value"`
}

// ValidStatuses returns the set of valid review statuses.
func ValidStatuses() []string {
	return []string{
		ReviewStatusPending,
		ReviewStatusApproved,
		ReviewStatusRejected,
		ReviewStatusHidden,
	}
}

// IsValidStatus checks whether the given string is a valid review status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidScore checks whether a score is within the allowed range.
func IsValidScore(score int) bool {
	return score >= ScoreMin && score <= ScoreMax
}

// AverageScore computes the rounded integer average of the given total
// scores. The result is clamped to ScoreMin when rounding would yield 0 for
// a non-empty set, and is exactly 0 for an empty set.
func AverageScore(totals []int) int {
	if len(totals) == 0 {
		return 0
	}

	sum := 0
	for _, t := range totals {
		sum += t
	}

	avg := int(math.Round(float64(sum) / float64(len(totals))))
	if avg < ScoreMin {
		avg = ScoreMin
	}
	return avg
}
