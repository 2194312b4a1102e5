package query

import (
	fuel "fuel-registry/internal/fuel/domain"
)

// MostRecentlyUpdated returns the record with the latest updatedAt. Records
// without a timestamp are ignored; ties go to the first record in input order.
func MostRecentlyUpdated(records []fuel.Record) (fuel.Record, bool) {
	var latest fuel.Record
	found := false
	for _, record := range records {
		if record.UpdatedAt.IsZero() {
			continue
		}
		if !found || record.UpdatedAt.After(latest.UpdatedAt) {
			latest = record
			found = true
		}
	}
	return latest, found
}
