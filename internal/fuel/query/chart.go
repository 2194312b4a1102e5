package query

import (
	"strconv"

	fuel "fuel-registry/internal/fuel/domain"
)

// ChartSeries is one data series of a chart.
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points"`
}

// ChartPoint is a labelled value.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// CurrentPriceSeries returns one bar per record with a parsable price.
func CurrentPriceSeries(records []fuel.Record) ChartSeries {
	series := ChartSeries{Name: "Current Price", Points: make([]ChartPoint, 0, len(records))}
	for _, record := range records {
		value, ok := record.Price.Value()
		if !ok {
			continue
		}
		series.Points = append(series.Points, ChartPoint{Label: record.Label(), Value: value})
	}
	return series
}

// HistorySeries returns the record's price history in append order, labelled
// by update number.
func HistorySeries(record fuel.Record) ChartSeries {
	series := ChartSeries{
		Name:   "Price History for " + record.Label(),
		Points: make([]ChartPoint, 0, len(record.PriceHistory)),
	}
	for i, point := range record.PriceHistory {
		series.Points = append(series.Points, ChartPoint{
			Label: "Update " + strconv.Itoa(i+1),
			Value: point.Price,
		})
	}
	return series
}
