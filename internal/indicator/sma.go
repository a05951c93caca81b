// Package indicator derives technical overlays and performance figures from
// price series.
package indicator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWindow is returned for a non-positive averaging window.
var ErrInvalidWindow = errors.New("window must be positive")

// ErrNotEnoughData is returned when a series is too short to compute from.
var ErrNotEnoughData = errors.New("not enough data")

// SMA returns the simple moving average of values over window, aligned to the
// input. The first window-1 points have no value and are NaN.
func SMA(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}

// Defined reports whether v carries a value.
func Defined(v float64) bool { return !math.IsNaN(v) }
