package finance

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrLookup covers unknown tickers and an unreachable provider.
	ErrLookup = errors.New("lookup failed")
	// ErrInvalidInput is returned before any request is made.
	ErrInvalidInput = errors.New("invalid input")
)

var reTicker = regexp.MustCompile(`^[A-Z0-9.^=_+-]{1,15}$`)

// NormalizeTicker trims and upper-cases raw and checks it looks like a symbol.
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return "", fmt.Errorf("%w: empty ticker", ErrInvalidInput)
	}
	if !reTicker.MatchString(t) {
		return "", fmt.Errorf("%w: malformed ticker %q", ErrInvalidInput, raw)
	}
	return t, nil
}
