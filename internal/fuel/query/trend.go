package query

import (
	"time"

	fuel "fuel-registry/internal/fuel/domain"
)

// DefaultTrendWindowDays is the lookback of the dashboard trend card.
const DefaultTrendWindowDays = 30

// TrendDirection is the sign of a price change.
type TrendDirection string

const (
	TrendIncrease TrendDirection = "increase"
	TrendDecrease TrendDirection = "decrease"
	TrendFlat     TrendDirection = "flat"
)

// Outlook tells the operator whether a direction is good news. Rising fuel
// prices are bad for a taxi operator.
type Outlook string

const (
	OutlookBad     Outlook = "bad"
	OutlookGood    Outlook = "good"
	OutlookNeutral Outlook = "neutral"
)

// TrendSummary is the average percent change across records with a defined trend.
type TrendSummary struct {
	PercentChange float64        `json:"percentChange"`
	Direction     TrendDirection `json:"direction"`
	Outlook       Outlook        `json:"outlook"`
	// Records is the number of records that contributed.
	Records    int       `json:"records"`
	WindowDays int       `json:"windowDays"`
	AsOf       time.Time `json:"asOf"`
}

// Trend returns the percent change of a record's price over the window ending
// at asOf. The reference point is the first appended entry dated on or before
// the window start, else the first entry; the latest point is the last
// appended entry. The trend is undefined with fewer than two entries or a zero
// reference price.
func Trend(record fuel.Record, windowDays int, asOf time.Time) (float64, bool) {
	history := record.PriceHistory
	if len(history) < 2 {
		return 0, false
	}
	cutoff := asOf.AddDate(0, 0, -windowDays)

	old := history[0]
	for _, point := range history {
		if !point.Date.After(cutoff) {
			old = point
			break
		}
	}
	recent := history[len(history)-1]
	if old.Price == 0 {
		return 0, false
	}
	return (recent.Price - old.Price) / old.Price * 100, true
}

// AverageTrend averages Trend over the records where it is defined. Records
// without a trend are left out rather than counted as zero. ok is false when
// no record has a trend.
func AverageTrend(records []fuel.Record, windowDays int, asOf time.Time) (TrendSummary, bool) {
	var sum float64
	var n int
	for _, record := range records {
		change, ok := Trend(record, windowDays, asOf)
		if !ok {
			continue
		}
		sum += change
		n++
	}
	if n == 0 {
		return TrendSummary{}, false
	}
	avg := sum / float64(n)
	direction := DirectionOf(avg)
	return TrendSummary{
		PercentChange: avg,
		Direction:     direction,
		Outlook:       direction.Outlook(),
		Records:       n,
		WindowDays:    windowDays,
		AsOf:          asOf.UTC(),
	}, true
}

// DirectionOf classifies a percent change.
func DirectionOf(change float64) TrendDirection {
	switch {
	case change > 0:
		return TrendIncrease
	case change < 0:
		return TrendDecrease
	default:
		return TrendFlat
	}
}

// Outlook maps a direction to the operator's point of view.
func (d TrendDirection) Outlook() Outlook {
	switch d {
	case TrendIncrease:
		return OutlookBad
	case TrendDecrease:
		return OutlookGood
	default:
		return OutlookNeutral
	}
}
