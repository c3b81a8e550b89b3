// Package pagination splits ordered result sets into 1-indexed pages.
//
// Out-of-range requests are clamped to the nearest valid page instead of
// failing: a non-numeric or non-positive page is page 1, a page past the end
// is the last page, and an empty result set still has exactly one (empty)
// page.
//
// # Usage
//
//	p := pagination.Clamp(pagination.ParsePage(c.Query("page")), size, total)
//	err := query.Limit(p.Limit()).Offset(p.Offset()).Find(&items).Error
//	page := pagination.NewPage(items, p)
package pagination

import (
	"strconv"
	"strings"
)

// DefaultPage is the starting page (1-indexed).
const DefaultPage = 1

// Params is a resolved page request: a page number that is valid for Total.
type Params struct {
	Number int
	Size   int
	Total  int64
}

// ParsePage parses a "page" query value. Anything that is not a positive
// integer yields DefaultPage.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return DefaultPage
	}
	return n
}

// Clamp resolves the requested page against a result set of total items.
func Clamp(requested, size int, total int64) Params {
	if size < 1 {
		size = 1
	}
	p := Params{Number: requested, Size: size, Total: total}
	if p.Number < 1 {
		p.Number = DefaultPage
	}
	if last := p.NumPages(); p.Number > last {
		p.Number = last
	}
	return p
}

// NumPages is at least 1, even for an empty result set.
func (p Params) NumPages() int {
	if p.Total <= 0 {
		return 1
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

func (p Params) Limit() int {
	return p.Size
}

func (p Params) Offset() int {
	return (p.Number - 1) * p.Size
}

// Page is one slice of an ordered result set plus navigation metadata.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Number   int   `json:"page"`
	Size     int   `json:"page_size"`
	Total    int64 `json:"total"`
	NumPages int   `json:"total_pages"`
}

func NewPage[T any](items []T, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Number:   p.Number,
		Size:     p.Size,
		Total:    p.Total,
		NumPages: p.NumPages(),
	}
}

func (p Page[T]) HasPrevious() bool {
	return p.Number > 1
}

func (p Page[T]) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page[T]) PreviousPageNumber() int {
	if !p.HasPrevious() {
		return p.Number
	}
	return p.Number - 1
}

func (p Page[T]) NextPageNumber() int {
	if !p.HasNext() {
		return p.Number
	}
	return p.Number + 1
}

// IsPaginated reports whether there is more than one page, which is when
// templates render the navigation block.
func (p Page[T]) IsPaginated() bool {
	return p.NumPages > 1
}
