package fuel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_Value(t *testing.T) {
	cases := []struct {
		in   Price
		want float64
		ok   bool
	}{
		{"350.00", 350, true},
		{" 12.5 ", 12.5, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := tc.in.Value()
		assert.Equal(t, tc.ok, ok, "price %q", tc.in)
		assert.Equal(t, tc.want, got, "price %q", tc.in)
	}
}

func TestPrice_NormalizeAndMalformed(t *testing.T) {
	p, err := Price("299.999").Normalize()
	require.NoError(t, err)
	assert.Equal(t, Price("300.00"), p)

	_, err = Price("ten").Normalize()
	assert.ErrorIs(t, err, ErrMalformedPrice)

	assert.Equal(t, Price("301.50"), NewPrice(301.5))
	assert.Equal(t, "7.10", FormatAmount(7.1))
}

func TestPrice_UnmarshalStringOrNumber(t *testing.T) {
	var payload struct {
		A Price `json:"a"`
		B Price `json:"b"`
		C Price `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"350.00","b":349.5,"c":null}`), &payload))
	assert.Equal(t, Price("350.00"), payload.A)
	assert.Equal(t, Price("349.5"), payload.B)
	assert.Equal(t, Price(""), payload.C)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"350.00","b":"349.5","c":""}`, string(data))
}
