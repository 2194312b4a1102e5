package query

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fuel "fuel-registry/internal/fuel/domain"
)

func stations(names ...string) []fuel.Record {
	out := make([]fuel.Record, 0, len(names))
	for i, name := range names {
		out = append(out, fuel.Record{ID: string(rune('a' + i)), Name: name, Price: "100.00"})
	}
	return out
}

func labels(records []fuel.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Label())
	}
	return out
}

func TestFilter_EmptyNeedleIsIdentity(t *testing.T) {
	records := stations("Shell", "Caltex", "IOC")
	got := Filter(records, "", fuel.VariantStation.SearchableFields())
	if diff := cmp.Diff(records, got); diff != "" {
		t.Fatalf("filter changed records (-want +got):\n%s", diff)
	}
}

func TestFilter_CaseInsensitiveSubstringThenCodePointSort(t *testing.T) {
	records := stations("Beta", "alpha", "Gamma")

	filtered := Filter(records, "a", fuel.VariantStation.SearchableFields())
	assert.Equal(t, []string{"Beta", "alpha", "Gamma"}, labels(filtered))

	sorted := Sort(filtered, SortDirective{Key: fuel.FieldName, Direction: Ascending})
	assert.Equal(t, []string{"Beta", "Gamma", "alpha"}, labels(sorted))
}

func TestFilter_MatchesAnySearchableField(t *testing.T) {
	records := []fuel.Record{
		{ID: "1", Name: "Shell", Address: "Galle Road"},
		{ID: "2", Name: "Caltex", Address: "Kandy Road"},
		{ID: "3", Name: "Lanka IOC", Address: "Main Street"},
	}

	got := Filter(records, "ROAD", fuel.VariantStation.SearchableFields())
	assert.Equal(t, []string{"Shell", "Caltex"}, labels(got))

	got = Filter(records, "ioc", fuel.VariantStation.SearchableFields())
	assert.Equal(t, []string{"Lanka IOC"}, labels(got))
}

func TestFilter_FuelTypeVariantIgnoresName(t *testing.T) {
	records := []fuel.Record{
		{ID: "1", Type: "Petrol 92", Name: "diesel depot"},
		{ID: "2", Type: "Super Diesel"},
	}
	got := Filter(records, "diesel", fuel.VariantFuelType.SearchableFields())
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestFilter_PartitionsRecords(t *testing.T) {
	records := []fuel.Record{
		{ID: "1", Type: "Petrol 92"},
		{ID: "2", Type: "Petrol 95"},
		{ID: "3", Type: "Diesel"},
		{ID: "4", Type: "Kerosene"},
		{ID: "5", Type: "Auto Gas"},
	}
	fields := fuel.VariantFuelType.SearchableFields()
	for _, needle := range []string{"e", "PETROL", "9", "gas", "zzz"} {
		kept := map[string]bool{}
		for _, r := range Filter(records, needle, fields) {
			kept[r.ID] = true
			assert.Contains(t, strings.ToLower(r.Type), strings.ToLower(needle))
		}
		for _, r := range records {
			if !kept[r.ID] {
				assert.NotContains(t, strings.ToLower(r.Type), strings.ToLower(needle))
			}
		}
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	records := stations("b", "a", "c")
	before := append([]fuel.Record(nil), records...)
	_ = Filter(records, "a", fuel.VariantStation.SearchableFields())
	_ = Sort(records, SortDirective{Key: fuel.FieldName, Direction: Ascending})
	assert.Equal(t, before, records)
}

func TestFilter_EmptySnapshot(t *testing.T) {
	assert.Empty(t, Filter(nil, "x", fuel.VariantStation.SearchableFields()))
	assert.Empty(t, Sort([]fuel.Record{}, SortDirective{Key: fuel.FieldPrice}))
}
