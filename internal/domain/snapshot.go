package domain

import "time"

// ReviewSnapshot is the denormalized read model for a review: the display
// fields plus the attribute scores and characteristic values folded into
// JSONB maps, so a product's review listing is a single-table read.
//
// The snapshot is written in the same transaction as the review and is
// rebuilt whenever the review is edited or its status changes.
type ReviewSnapshot struct {
	ReviewID             int64            `json:"review_id"`
	ProductID            string           `json:"product_id"`
	AuthorID             string           `json:"author_id,omitempty"`
	AuthorName           string           `json:"author_name"`
	Title                string           `json:"title"`
	Slug                 string           `json:"slug"`
	Summary              string           `json:"summary,omitempty"`
	Body                 string           `json:"body"`
	Status               string           `json:"status"`
	Verified             bool             `json:"verified"`
	TotalScore           int              `json:"total_score"`
	AttributeScores      map[int64]int    `json:"attribute_scores"`
	CharacteristicValues map[int64]string `json:"characteristic_values"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// BuildSnapshot folds a review and its rating and author meta rows into a
// snapshot. The overall score row is excluded from AttributeScores since the
// review already carries it as TotalScore.
func BuildSnapshot(review *Review, ratings []Rating, meta []AuthorMeta) *ReviewSnapshot {
	scores := make(map[int64]int, len(ratings))
	for _, r := range ratings {
		if r.AttributeID == OverallAttributeID {
			continue
		}
		scores[r.AttributeID] = r.Score
	}

	values := make(map[int64]string, len(meta))
	for _, m := range meta {
		values[m.CharacteristicID] = m.Value
	}

	return &ReviewSnapshot{
		ReviewID:             review.ID,
		ProductID:            review.ProductID,
		AuthorID:             review.AuthorID,
		AuthorName:           review.AuthorName,
		Title:                review.Title,
		Slug:                 review.Slug,
		Summary:              review.Summary,
		Body:                 review.Body,
		Status:               review.Status,
		Verified:             review.Verified,
		TotalScore:           review.TotalScore,
		AttributeScores:      scores,
		CharacteristicValues: values,
		CreatedAt:            review.CreatedAt,
		UpdatedAt:            review.UpdatedAt,
	}
}
