package persistence

import (
	"slices"
	"strings"
)

// SortColumns whitelists the columns a list query may order by. Anything
// else would be interpolated into ORDER BY, so unknown input falls back.
type SortColumns []string

// ReturnSortFields are the columns ListReturns can sort on
var ReturnSortFields = SortColumns{
	"created_at",
	"updated_at",
	"return_date",
	"return_number",
	"status",
	"refund_amount",
	"total_amount",
}

// ValidateSortOrder folds dir to ASC, or DESC for anything else
func ValidateSortOrder(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns field when allowed lists it, else fallback
func ValidateSortField(field string, allowed SortColumns, fallback string) string {
	field = strings.TrimSpace(field)
	if slices.Contains(allowed, field) {
		return field
	}
	return fallback
}
