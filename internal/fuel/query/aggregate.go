package query

import (
	"errors"

	"github.com/shopspring/decimal"

	fuel "fuel-registry/internal/fuel/domain"
)

// ErrNoPricedRecords is returned when there is no parsable price to aggregate.
// Statistics over an empty set are undefined, not zero.
var ErrNoPricedRecords = errors.New("query: no priced records")

// Stats is the summary shown on the dashboard cards.
type Stats struct {
	// Count is the number of records in the input, priced or not.
	Count int `json:"count"`
	// Priced is the number of records whose price parsed.
	Priced        int         `json:"priced"`
	Average       float64     `json:"average"`
	Min           float64     `json:"min"`
	Max           float64     `json:"max"`
	Range         float64     `json:"range"`
	Cheapest      fuel.Record `json:"cheapest"`
	MostExpensive fuel.Record `json:"mostExpensive"`
}

// RoundedAverage returns the average rounded to 2 decimal places.
func (s Stats) RoundedAverage() float64 {
	f, _ := decimal.NewFromFloat(s.Average).Round(2).Float64()
	return f
}

// Aggregate computes count, mean, extrema and range over the parsed prices.
// Records with malformed prices count toward Count only. On equal extreme
// prices the first record in input order wins.
func Aggregate(records []fuel.Record) (Stats, error) {
	stats := Stats{Count: len(records)}

	sum := decimal.Zero
	var minValue, maxValue decimal.Decimal
	for _, record := range records {
		value, err := record.Price.Decimal()
		if err != nil {
			continue
		}
		if stats.Priced == 0 || value.LessThan(minValue) {
			minValue = value
			stats.Cheapest = record
		}
		if stats.Priced == 0 || value.GreaterThan(maxValue) {
			maxValue = value
			stats.MostExpensive = record
		}
		sum = sum.Add(value)
		stats.Priced++
	}
	if stats.Priced == 0 {
		return Stats{}, ErrNoPricedRecords
	}

	stats.Average, _ = sum.Div(decimal.NewFromInt(int64(stats.Priced))).Float64()
	stats.Min, _ = minValue.Float64()
	stats.Max, _ = maxValue.Float64()
	stats.Range, _ = maxValue.Sub(minValue).Float64()
	return stats, nil
}
