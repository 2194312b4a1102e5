package fuel

import (
	"encoding/json"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// PricePoint is one entry of a record's price history.
type PricePoint struct {
	Price float64   `json:"price"`
	Date  time.Time `json:"date"`
}

// UnmarshalJSON accepts RFC 3339 timestamps and bare dates.
func (p *PricePoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Price json.Number `json:"price"`
		Date  string      `json:"date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	price, err := Price(raw.Price.String()).Decimal()
	if err != nil {
		return err
	}
	date, err := ParseTimestamp(raw.Date)
	if err != nil {
		return err
	}
	p.Price, _ = price.Float64()
	p.Date = date
	return nil
}

// ParseTimestamp parses an ISO-8601 timestamp or date. Empty input is the zero time.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Record is one fuel station or fuel type entry in the registry.
type Record struct {
	ID           string       `json:"id"`
	Name         string       `json:"name,omitempty"`
	Type         string       `json:"type,omitempty"`
	Address      string       `json:"address,omitempty"`
	Price        Price        `json:"price"`
	UpdatedAt    time.Time    `json:"updatedAt,omitempty"`
	PriceHistory []PricePoint `json:"priceHistory"`
}

// Label returns the display label of the record for either schema variant.
func (r Record) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Type
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.PriceHistory != nil {
		out.PriceHistory = append([]PricePoint(nil), r.PriceHistory...)
	}
	return out
}

// AppendPrice sets the current price and appends it to the history.
func (r *Record) AppendPrice(price Price, at time.Time) error {
	value, err := price.Decimal()
	if err != nil {
		return err
	}
	f, _ := value.Float64()
	r.Price = Price(value.StringFixed(2))
	r.UpdatedAt = at.UTC()
	r.PriceHistory = append(r.PriceHistory, PricePoint{Price: f, Date: at.UTC()})
	return nil
}

// Validate checks record invariants for a schema variant.
func (r Record) Validate(variant Variant) error {
	if err := r.ValidateLabel(variant); err != nil {
		return err
	}
	if _, err := r.Price.Decimal(); err != nil {
		return invalid(err.Error())
	}
	if len(r.PriceHistory) == 0 {
		return invalid("empty price history")
	}
	return nil
}

// ValidateLabel checks only the id and the variant's label. Records pushed by
// the store are held to this; a malformed price stays in the table.
func (r Record) ValidateLabel(variant Variant) error {
	if r.ID == "" {
		return invalid("empty id")
	}
	switch variant {
	case VariantStation:
		if strings.TrimSpace(r.Name) == "" {
			return invalid("empty name")
		}
	case VariantFuelType:
		if strings.TrimSpace(r.Type) == "" {
			return invalid("empty type")
		}
	default:
		return ErrUnknownVariant
	}
	return nil
}

// SeedHistory gives a record without history a single entry at the current
// price. Records whose price does not parse are left without one.
func (r *Record) SeedHistory(at time.Time) {
	if len(r.PriceHistory) > 0 {
		return
	}
	value, ok := r.Price.Value()
	if !ok {
		return
	}
	r.PriceHistory = []PricePoint{{Price: value, Date: at.UTC()}}
}

// UnmarshalJSON decodes a record payload, accepting the timestamp forms the
// store may hand back. An unreadable updatedAt decodes as zero and unreadable
// history entries are dropped, so one bad value never rejects the record.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	var raw struct {
		alias
		UpdatedAt    string            `json:"updatedAt"`
		PriceHistory []json.RawMessage `json:"priceHistory"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record(raw.alias)
	r.UpdatedAt, _ = ParseTimestamp(raw.UpdatedAt)
	r.PriceHistory = nil
	if raw.PriceHistory != nil {
		r.PriceHistory = make([]PricePoint, 0, len(raw.PriceHistory))
		for _, entry := range raw.PriceHistory {
			var point PricePoint
			if err := json.Unmarshal(entry, &point); err != nil {
				continue
			}
			r.PriceHistory = append(r.PriceHistory, point)
		}
	}
	return nil
}

// MarshalJSON omits a zero updatedAt.
func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	var updatedAt string
	if !r.UpdatedAt.IsZero() {
		updatedAt = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	history := r.PriceHistory
	if history == nil {
		history = []PricePoint{}
	}
	return json.Marshal(struct {
		alias
		UpdatedAt    string       `json:"updatedAt,omitempty"`
		PriceHistory []PricePoint `json:"priceHistory"`
	}{alias: alias(r), UpdatedAt: updatedAt, PriceHistory: history})
}

func invalid(detail string) error {
	return &ValidationError{Detail: detail}
}

// ValidationError describes a rejected write.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return ErrInvalidRecord.Error() + ": " + e.Detail
}

// Unwrap lets errors.Is match ErrInvalidRecord.
func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }
