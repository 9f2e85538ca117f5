package domain

import "time"

// ProductRatingSummary is the per-product aggregate kept in sync with the
// approved-review set. AverageRating is a rounded integer in 0..ScoreMax:
// exactly 0 when no approved reviews exist, never below ScoreMin otherwise.
type ProductRatingSummary struct {
	ProductID     string    `json:"product_id"`
	ReviewCount   int       `json:"review_count"`
	AverageRating int       `json:"average_rating"`
	UpdatedAt     time.Time `json:"updated_at"`
}
