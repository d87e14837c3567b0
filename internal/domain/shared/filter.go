package shared

import "strings"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter is the paging, ordering and free-text part of a list query.
// OrderBy is not checked here; repositories whitelist it against their
// own sortable columns.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// DefaultFilter is the first page, newest first
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize, OrderBy: "created_at", OrderDir: "desc"}
}

// Normalize clamps the page into range and folds OrderDir to asc or desc
func (f *Filter) Normalize() {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	if strings.EqualFold(strings.TrimSpace(f.OrderDir), "asc") {
		f.OrderDir = "asc"
	} else {
		f.OrderDir = "desc"
	}
}

// Offset is the number of rows before the current page
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
