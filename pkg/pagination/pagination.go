// Package pagination parses list pagination query parameters.
package pagination

import (
	"net/http"
	"strconv"
)

// Defaults match the storefront's review listing widget: one page of twenty
// snapshots. MaxPerPage caps what a single request may pull regardless of
// what the query string asks for.
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds the parsed page window.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// FromRequest reads page and per_page from the query string. Values that are
// absent, non-numeric, zero, or negative fall back to the defaults; per_page
// above MaxPerPage is clamped to it.
func FromRequest(r *http.Request) Params {
	p := Params{Page: DefaultPage, PerPage: DefaultPerPage}

	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Page = v
		}
	}

	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.PerPage = min(v, MaxPerPage)
		}
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}
