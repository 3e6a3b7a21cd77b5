package models

import (
	"errors"
	"math"
	"strconv"
)

const (
	DefaultItemsPerPage         = 12
	DefaultNotificationsPerPage = 10
	MaxPerPage                  = 100
	// MaxPage bounds page numbers so Skip never overflows.
	MaxPage = math.MaxInt32
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// ParsePage reads page/limit query values. Missing, non-numeric or
// non-positive values fall back to page 1 and defaultLimit. Oversized values
// are clamped to MaxPage and MaxPerPage.
func ParsePage(page, limit string, defaultLimit int) Page {
	p := Page{Number: 1, Limit: defaultLimit}
	if n, ok := positiveInt(page); ok {
		p.Number = min(n, MaxPage)
	}
	if n, ok := positiveInt(limit); ok {
		p.Limit = n
	}
	if p.Limit > MaxPerPage {
		p.Limit = MaxPerPage
	}
	return p
}

// positiveInt parses s, saturating out-of-range values.
func positiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return n, n > 0
}

// Skip is the number of records before the page. Page numbers are clamped
// to MaxPage and limits to MaxPerPage first.
func (p Page) Skip() int64 {
	number := min(max(p.Number, 1), MaxPage)
	limit := min(max(p.Limit, 0), MaxPerPage)
	return int64(number-1) * int64(limit)
}

// Pagination describes a page within a listing.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination computes the page counts for total records.
func NewPagination(p Page, total int64) Pagination {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		CurrentPage: p.Number,
		TotalPages:  totalPages,
		TotalCount:  total,
		Limit:       p.Limit,
		HasNextPage: p.Number < totalPages,
		HasPrevPage: p.Number > 1,
	}
}
