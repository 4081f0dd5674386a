// Package analytics derives KPI status, trends, forecasts and
// natural-language insights from KPI facts and work items. Everything in it is
// pure: callers load the data, analytics classifies it.
package analytics

import (
	"github.com/montanaflynn/stats"

	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// DefaultTrendPeriods is the recent-window length used when none is given.
const DefaultTrendPeriods = 7

// TrendBand is the percentage change beyond which a series counts as moving.
const TrendBand = 5.0

// Trend is the classification of a KPI series.
type Trend struct {
	Direction types.TrendDirection `json:"direction"`
	Change    float64              `json:"change_percent"`
}

// IsPositive reports whether the series is rising.
func (t Trend) IsPositive() bool { return t.Direction == types.TrendUp }

// IsNegative reports whether the series is falling.
func (t Trend) IsNegative() bool { return t.Direction == types.TrendDown }

// ClassifyTrend compares the mean of the last periods values with a baseline
// and reports the percentage change. The series must be in time order.
//
// The baseline is the mean of every value before the recent window, or the
// first value when the series is no longer than the window. A zero baseline
// yields TrendNew; fewer than two points yield TrendStable.
func ClassifyTrend(series []float64, periods int) Trend {
	if periods <= 0 {
		periods = DefaultTrendPeriods
	}
	if len(series) < 2 {
		return Trend{Direction: types.TrendStable}
	}

	recentStart := len(series) - periods
	if recentStart < 0 {
		recentStart = 0
	}
	recent := mean(series[recentStart:])

	var previous float64
	if len(series) > periods {
		previous = mean(series[:recentStart])
	} else {
		previous = series[0]
	}
	if previous == 0 {
		return Trend{Direction: types.TrendNew}
	}

	change := (recent - previous) / previous * 100
	switch {
	case change > TrendBand:
		return Trend{Direction: types.TrendUp, Change: change}
	case change < -TrendBand:
		return Trend{Direction: types.TrendDown, Change: change}
	default:
		return Trend{Direction: types.TrendStable, Change: change}
	}
}

// RollingMean returns the trailing mean over window points for each position.
// Positions with fewer than window points behind them average what exists.
func RollingMean(series []float64, window int) []float64 {
	if window <= 0 {
		window = 1
	}
	out := make([]float64, len(series))
	for i := range series {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		out[i] = mean(series[start : i+1])
	}
	return out
}

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return 0
	}
	return m
}
