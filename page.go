package repokit

import (
	"fmt"
	"math"
)

// Page size bounds applied by Query.Paginate when the caller passes a
// non-positive or oversized page size.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is one window of a paginated query together with its metadata. It is
// shaped for direct embedding in API responses.
type Page[T any] struct {
	// Records holds the page's records, in query order.
	Records []T `json:"records"`
	// Total is the number of matching records across all pages.
	Total int `json:"total"`
	// Page is the current page number (1-based).
	Page int `json:"page"`
	// PageSize is the number of records per page.
	PageSize int `json:"page_size"`
	// TotalPages is the number of pages at this page size.
	TotalPages int `json:"total_pages"`
	// HasNext reports whether a later page exists.
	HasNext bool `json:"has_next"`
	// HasPrev reports whether an earlier page exists.
	HasPrev bool `json:"has_prev"`
}

func newPage[T any](records []T, page, size, total int) Page[T] {
	totalPages := int(math.Ceil(float64(total) / float64(size)))
	if totalPages < 1 {
		totalPages = 1
	}

	return Page[T]{
		Records:    records,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// String returns a short human-readable description of the page.
func (p Page[T]) String() string {
	return fmt.Sprintf("page %d of %d (total: %d, size: %d)", p.Page, p.TotalPages, p.Total, p.PageSize)
}
