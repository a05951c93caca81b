package finance

import (
	"sort"
	"time"
)

func valueAt(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}

// buildBars zips Yahoo's parallel arrays into bars. Points without a close
// (holidays, halted sessions) and points with negative prices are dropped, and
// the result is sorted by time.
func buildBars(ts []int64, open, high, low, cl, vol []*float64, loc *time.Location) []Bar {
	out := make([]Bar, 0, len(ts))
	for i, t := range ts {
		c, ok := valueAt(cl, i)
		if !ok || c < 0 {
			continue
		}
		o, ok := valueAt(open, i)
		if !ok {
			o = c
		}
		h, ok := valueAt(high, i)
		if !ok {
			h = max(o, c)
		}
		l, ok := valueAt(low, i)
		if !ok {
			l = min(o, c)
		}
		if o < 0 || h < 0 || l < 0 {
			continue
		}
		v, _ := valueAt(vol, i)
		out = append(out, Bar{
			Time:   time.Unix(t, 0).In(loc),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
