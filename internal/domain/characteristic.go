package domain

import "time"

// Characteristic field type constants. FieldType is carried for forward
// compatibility with richer input widgets; only select is rendered today.
const (
	FieldTypeSelect = "select"
	FieldTypeRadio  = "radio"
)

// CharacteristicValue is one selectable option of a characteristic. Key is
// the stable stored value; Label is what gets displayed.
type CharacteristicValue struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Characteristic is an admin-defined reviewer demographic dimension (e.g.
// "Skin type") with a fixed set of selectable values. Reviewers pick one
// value per characteristic at submission time.
//
// Like Attribute, deletion does not cascade to existing author meta rows.
type Characteristic struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Slug        string                `json:"slug"`
	Description string                `json:"description,omitempty"`
	Values      []CharacteristicValue `json:"values"`
	FieldType   string                `json:"field_type"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// HasValue reports whether key is a member of the characteristic's value set.
func (c *Characteristic) HasValue(key string) bool {
	for _, v := range c.Values {
		if v.Key == key {
			return true
		}
	}
	return false
}

// LabelFor returns the display label for a stored value key. Falls back to
// the raw key when it no longer resolves (edited or orphaned value sets).
func (c *Characteristic) LabelFor(key string) string {
	for _, v := range c.Values {
		if v.Key == key {
			return v.Label
		}
	}
	return key
}

// ValidFieldTypes returns the set of valid characteristic field types.
func ValidFieldTypes() []string {
	return []string{FieldTypeSelect, FieldTypeRadio}
}

// IsValidFieldType checks whether the given string is a valid field type.
func IsValidFieldType(t string) bool {
	for _, v := range ValidFieldTypes() {
		if v == t {
			return true
		}
	}
	return false
}
