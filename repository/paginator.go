package repository

import (
	"errors"
	"strconv"
	"strings"
)

// Page describes one page of a paginated listing.
type Page struct {
	Number      int   `json:"page"`
	NumPages    int   `json:"total_pages"`
	PageSize    int   `json:"page_size"`
	Total       int64 `json:"total"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// Offset is the number of rows preceding this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PageSize
}

// NewPage resolves the raw page parameter against the row count.
// Missing, non-integer and non-positive values give page 1; values past the end, including
// ones too large for an int, give the last page.
// An empty collection still has one (empty) page.
func NewPage(raw string, total int64, size int) Page {
	if size <= 0 {
		size = 1
	}
	numPages := int((total + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}

	raw = strings.TrimSpace(raw)
	number := 1
	n, err := strconv.Atoi(raw)
	switch {
	case err == nil && n > 0:
		number = n
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
		number = numPages
	}
	if number > numPages {
		number = numPages
	}

	return Page{
		Number:      number,
		NumPages:    numPages,
		PageSize:    size,
		Total:       total,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
}
