package indicator

import (
	"fmt"
	"math"
	"time"

	"stockanalyzer/internal/finance"
)

const tradingDaysPerYear = 252.0

// Metrics summarizes how a security performed over the fetched window.
// Returns and volatility are percentages.
type Metrics struct {
	DailyReturn   float64
	MonthlyReturn float64
	YTDReturn     float64
	AnnualReturn  float64
	Volatility    float64 // annualized
	SharpeRatio   float64 // risk-free rate assumed to be 0
	MaxDrawdown   float64
	Returns       []float64 // daily returns, percent
	NumDays       int
}

// Performance computes Metrics from daily bars. now anchors the year-to-date
// figure.
func Performance(bars []finance.Bar, now time.Time) (*Metrics, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 bars for performance metrics, got %d", ErrNotEnoughData, len(bars))
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			return nil, fmt.Errorf("invalid close on %s: %f", b.Time.Format(time.DateOnly), b.Close)
		}
		closes[i] = b.Close
	}
	n := len(closes)
	last := closes[n-1]

	returns := make([]float64, n-1)
	for i := 1; i < n; i++ {
		returns[i-1] = (closes[i]/closes[i-1] - 1) * 100
	}

	m := &Metrics{
		DailyReturn: returns[len(returns)-1],
		Returns:     returns,
		NumDays:     n,
		MaxDrawdown: maxDrawdown(closes) * 100,
	}

	// Monthly: 30 bars back when available, else the whole window.
	if n >= 30 {
		m.MonthlyReturn = pctChange(closes[n-30], last)
	} else {
		m.MonthlyReturn = pctChange(closes[0], last)
	}
	if n > int(tradingDaysPerYear) {
		m.AnnualReturn = pctChange(closes[n-int(tradingDaysPerYear)], last)
	} else {
		m.AnnualReturn = pctChange(closes[0], last)
	}

	startOfYear := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	for i, b := range bars {
		if !b.Time.Before(startOfYear) {
			m.YTDReturn = pctChange(closes[i], last)
			break
		}
	}

	mean, std := meanStd(returns)
	m.Volatility = std * math.Sqrt(tradingDaysPerYear)
	if std > 0 {
		m.SharpeRatio = mean / std * math.Sqrt(tradingDaysPerYear)
	}
	return m, nil
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to/from - 1) * 100
}

// meanStd returns the mean and the sample standard deviation (N-1).
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)
	return mean, math.Sqrt(variance)
}

// maxDrawdown is the largest peak-to-trough decline as a fraction.
func maxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	worst := 0.0
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
