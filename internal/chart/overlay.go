package chart

import (
	"fmt"

	"stockanalyzer/internal/finance"
	"stockanalyzer/internal/indicator"
)

// Overlay is a line drawn over the price, aligned to the series bars. NaN
// points are not drawn.
type Overlay struct {
	Name   string
	Color  string
	Values []float64
}

var maColors = map[int]string{
	20:  "rgba(46, 160, 67, 0.8)",
	50:  "rgba(255, 165, 0, 0.8)",
	200: "rgba(0, 0, 255, 0.8)",
}

// MovingAverage builds the N-day simple moving average overlay for s.
func MovingAverage(s *finance.Series, window int) (Overlay, error) {
	values, err := indicator.SMA(s.Closes(), window)
	if err != nil {
		return Overlay{}, err
	}
	color, ok := maColors[window]
	if !ok {
		color = "rgba(128, 0, 128, 0.8)"
	}
	return Overlay{Name: fmt.Sprintf("%d-Day MA", window), Color: color, Values: values}, nil
}
