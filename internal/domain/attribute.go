package domain

import "time"

// Attribute is an admin-defined scoring dimension (e.g. "Durability") rated
// ScoreMin..ScoreMax per review. ProductID scopes the attribute to a single
// product; nil means the attribute applies site-wide.
//
// Deleting an attribute does not cascade to existing rating rows. Orphaned
// attribute IDs simply fail to resolve when display views merge in labels.
type Attribute struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	MinLabel    string    `json:"min_label,omitempty"`
	MaxLabel    string    `json:"max_label,omitempty"`
	ProductID   *string   `json:"product_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AppliesTo reports whether the attribute is available for the given product.
func (a *Attribute) AppliesTo(productID string) bool {
	return a.ProductID == nil || *a.ProductID == productID
}
