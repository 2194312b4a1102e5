package query

import (
	"slices"
	"strings"

	fuel "fuel-registry/internal/fuel/domain"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// SortKey is a sortable column. The zero value means no active sort.
type SortKey = fuel.Field

// SortDirective is the active sort column and direction.
type SortDirective struct {
	Key       SortKey   `json:"key,omitempty"`
	Direction Direction `json:"direction"`
}

// Toggle returns the directive after a click on the key's column header:
// the active ascending key flips to descending, anything else resets to
// ascending on the new key.
func (d SortDirective) Toggle(key SortKey) SortDirective {
	if d.Key == key && d.Direction != Descending {
		return SortDirective{Key: key, Direction: Descending}
	}
	return SortDirective{Key: key, Direction: Ascending}
}

// Active reports whether the directive names a known key.
func (d SortDirective) Active() bool {
	_, ok := comparators[d.Key]
	return ok
}

// ParseSortKey maps a wire name to a sort key. Unknown names are not sortable.
func ParseSortKey(value string) (SortKey, bool) {
	key := SortKey(strings.TrimSpace(value))
	if strings.EqualFold(string(key), "updated_at") {
		key = fuel.FieldUpdatedAt
	}
	if _, ok := comparators[key]; !ok {
		return "", false
	}
	return key, true
}

// ParseDirection maps a wire name to a direction, defaulting to ascending.
func ParseDirection(value string) Direction {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "desc", "descending":
		return Descending
	default:
		return Ascending
	}
}

// comparator compares two records on one key. ok is false when either side has
// no comparable value for the key.
type comparator func(a, b fuel.Record) (cmp int, aOK, bOK bool)

var comparators = map[SortKey]comparator{
	fuel.FieldName:      textComparator(fuel.FieldName),
	fuel.FieldType:      textComparator(fuel.FieldType),
	fuel.FieldAddress:   textComparator(fuel.FieldAddress),
	fuel.FieldPrice:     comparePrice,
	fuel.FieldUpdatedAt: compareUpdatedAt,
}

// textComparator compares byte-wise, so upper case sorts before lower case.
func textComparator(field fuel.Field) comparator {
	return func(a, b fuel.Record) (int, bool, bool) {
		av, _ := a.TextField(field)
		bv, _ := b.TextField(field)
		return strings.Compare(av, bv), true, true
	}
}

func comparePrice(a, b fuel.Record) (int, bool, bool) {
	av, aErr := a.Price.Decimal()
	bv, bErr := b.Price.Decimal()
	if aErr != nil || bErr != nil {
		return 0, aErr == nil, bErr == nil
	}
	return av.Cmp(bv), true, true
}

func compareUpdatedAt(a, b fuel.Record) (int, bool, bool) {
	aOK, bOK := !a.UpdatedAt.IsZero(), !b.UpdatedAt.IsZero()
	if !aOK || !bOK {
		return 0, aOK, bOK
	}
	return a.UpdatedAt.Compare(b.UpdatedAt), true, true
}

// Sort returns a stably sorted copy of records. Records without a comparable
// value for the key keep their relative order after every comparable record,
// in both directions. An inactive directive returns records as is.
func Sort(records []fuel.Record, directive SortDirective) []fuel.Record {
	compare, ok := comparators[directive.Key]
	if !ok {
		return records
	}
	descending := directive.Direction == Descending

	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b fuel.Record) int {
		c, aOK, bOK := compare(a, b)
		switch {
		case aOK && !bOK:
			return -1
		case !aOK && bOK:
			return 1
		case !aOK && !bOK:
			return 0
		}
		if descending {
			return -c
		}
		return c
	})
	return out
}
