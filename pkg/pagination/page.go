// Package pagination carries page/limit inputs and response metadata.
package pagination

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Page holds offset pagination inputs for listings that report totals.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page to >= 1 and the limit to (0, maxLimit].
func (p Page) Normalize(maxLimit int) Page {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta describes a page of results for API responses.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewMeta computes page counts from a total row count.
func NewMeta(p Page, total int64) Meta {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Meta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}
