// Package query computes the dashboard view of a fuel record snapshot:
// free-text filtering, sorting, aggregate statistics and price trends.
// Every function is pure; callers pass the full view state on each call.
package query

import (
	"strings"

	fuel "fuel-registry/internal/fuel/domain"
)

// Filter returns the records where the needle is a case-insensitive substring
// of at least one of the given fields. An empty needle returns records as is.
func Filter(records []fuel.Record, needle string, fields []fuel.Field) []fuel.Record {
	if needle == "" {
		return records
	}
	needle = strings.ToLower(needle)

	out := make([]fuel.Record, 0, len(records))
	for _, record := range records {
		if matches(record, needle, fields) {
			out = append(out, record)
		}
	}
	return out
}

func matches(record fuel.Record, needle string, fields []fuel.Field) bool {
	for _, field := range fields {
		value, ok := record.TextField(field)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}
