package view

import (
	"time"
)

// Timeframe is a preset date range for the transactions list.
type Timeframe int

const (
	TimeframeAll Timeframe = iota
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeThisYear
)

var timeframes = []Timeframe{TimeframeAll, TimeframeThisMonth, TimeframeLastMonth, TimeframeThisYear}

func (t Timeframe) String() string {
	switch t {
	case TimeframeAll:
		return "All Time"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeThisYear:
		return "This Year"
	}

	return "Unknown"
}

// Next cycles to the following preset.
func (t Timeframe) Next() Timeframe {
	return timeframes[(int(t)+1)%len(timeframes)]
}

// Range returns the inclusive day bounds of t relative to now. Both are nil
// for TimeframeAll.
func (t Timeframe) Range(now time.Time) (*time.Time, *time.Time) {
	var start, end time.Time

	switch t {
	case TimeframeThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	case TimeframeLastMonth:
		start = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	case TimeframeThisYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		return nil, nil
	}

	return &start, &end
}
