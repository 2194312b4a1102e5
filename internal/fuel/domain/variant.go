package fuel

import "strings"

// Variant selects the record schema the registry runs with.
type Variant string

const (
	// VariantStation records carry a station name, address and price.
	VariantStation Variant = "station"
	// VariantFuelType records carry a fuel type, price, updatedAt and history.
	VariantFuelType Variant = "fuel_type"
)

// Field names a record attribute used for search and sort.
type Field string

const (
	FieldName      Field = "name"
	FieldType      Field = "type"
	FieldAddress   Field = "address"
	FieldPrice     Field = "price"
	FieldUpdatedAt Field = "updatedAt"
)

// ParseVariant normalizes a variant name.
func ParseVariant(value string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(VariantFuelType), "fuel-type", "fueltype":
		return VariantFuelType, nil
	case string(VariantStation):
		return VariantStation, nil
	default:
		return "", ErrUnknownVariant
	}
}

// SearchableFields returns the fields the free-text filter matches against.
func (v Variant) SearchableFields() []Field {
	if v == VariantStation {
		return []Field{FieldName, FieldAddress}
	}
	return []Field{FieldType}
}

// TextField returns the string value of a text field.
func (r Record) TextField(field Field) (string, bool) {
	switch field {
	case FieldName:
		return r.Name, true
	case FieldType:
		return r.Type, true
	case FieldAddress:
		return r.Address, true
	default:
		return "", false
	}
}
