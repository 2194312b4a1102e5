package fuel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is the stored price text. Stores hand it back either as a JSON string
// or as a JSON number; both decode to the same text.
type Price string

// NewPrice formats a float as a 2-decimal price text.
func NewPrice(value float64) Price {
	return Price(decimal.NewFromFloat(value).StringFixed(2))
}

// Decimal parses the price text. Negative or non-numeric text is malformed.
func (p Price) Decimal() (decimal.Decimal, error) {
	text := strings.TrimSpace(string(p))
	if text == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrMalformedPrice)
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedPrice, text)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative %q", ErrMalformedPrice, text)
	}
	return value, nil
}

// Value returns the parsed price and whether it is usable for numeric work.
func (p Price) Value() (float64, bool) {
	value, err := p.Decimal()
	if err != nil {
		return 0, false
	}
	f, _ := value.Float64()
	return f, true
}

// Normalize returns the price rounded to 2 decimals.
func (p Price) Normalize() (Price, error) {
	value, err := p.Decimal()
	if err != nil {
		return "", err
	}
	return Price(value.StringFixed(2)), nil
}

// String implements fmt.Stringer.
func (p Price) String() string { return string(p) }

// MarshalJSON keeps the price as text.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON accepts a JSON string or number and never rejects the value.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*p = Price(text)
		return nil
	}
	// Numbers keep their literal text. Any other value is kept as-is and
	// fails to parse later, like a malformed string.
	*p = Price(data)
	return nil
}

// FormatAmount renders a value with 2 decimals for display.
func FormatAmount(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(2)
}
