package query

import (
	fuel "fuel-registry/internal/fuel/domain"
)

// ViewState is everything the dashboard table depends on besides the snapshot.
type ViewState struct {
	Filter     string        `json:"filter"`
	Sort       SortDirective `json:"sort"`
	SelectedID string        `json:"selectedId,omitempty"`
}

// Apply filters then sorts a snapshot for display.
func Apply(records []fuel.Record, state ViewState, fields []fuel.Field) []fuel.Record {
	return Sort(Filter(records, state.Filter, fields), state.Sort)
}
