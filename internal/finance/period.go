package finance

import (
	"fmt"
	"strings"
	"time"
)

// Period is a named lookback window.
type Period struct {
	Label string
	Code  string
	Days  int
}

// Periods lists the selectable windows, shortest first.
var Periods = []Period{
	{Label: "1 Month", Code: "1m", Days: 30},
	{Label: "3 Months", Code: "3m", Days: 90},
	{Label: "6 Months", Code: "6m", Days: 180},
	{Label: "1 Year", Code: "1y", Days: 365},
	{Label: "2 Years", Code: "2y", Days: 730},
	{Label: "5 Years", Code: "5y", Days: 1825},
}

// DefaultPeriod is one year.
var DefaultPeriod = Periods[3]

// ParsePeriod accepts a label ("1 Year") or a short code ("1y").
func ParsePeriod(s string) (Period, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, p := range Periods {
		if v == strings.ToLower(p.Label) || v == p.Code {
			return p, nil
		}
	}
	return Period{}, fmt.Errorf("%w: unknown period %q", ErrInvalidInput, s)
}

// Range returns [now-Days, now].
func (p Period) Range(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -p.Days), now
}
