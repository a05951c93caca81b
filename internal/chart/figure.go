package chart

import (
	"fmt"
	"time"

	"stockanalyzer/internal/finance"
	"stockanalyzer/internal/indicator"
)

// Figure is a plotly.js figure: traces plus layout, ready to be marshaled to
// JSON and handed to Plotly.newPlot.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type   string     `json:"type"`
	Name   string     `json:"name,omitempty"`
	X      any        `json:"x,omitempty"`
	Y      []*float64 `json:"y,omitempty"`
	Open   []float64  `json:"open,omitempty"`
	High   []float64  `json:"high,omitempty"`
	Low    []float64  `json:"low,omitempty"`
	Close  []float64  `json:"close,omitempty"`
	YAxis  string     `json:"yaxis,omitempty"`
	NBinsX int        `json:"nbinsx,omitempty"`
	Marker *Marker    `json:"marker,omitempty"`
	Line   *Line      `json:"line,omitempty"`
}

type Marker struct {
	Color string `json:"color,omitempty"`
}

type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

type Font struct {
	Color string `json:"color,omitempty"`
}

type RangeSlider struct {
	Visible bool `json:"visible"`
}

type Axis struct {
	Title       Text         `json:"title"`
	RangeSlider *RangeSlider `json:"rangeslider,omitempty"`
	Overlaying  string       `json:"overlaying,omitempty"`
	Side        string       `json:"side,omitempty"`
	ShowGrid    *bool        `json:"showgrid,omitempty"`
	GridColor   string       `json:"gridcolor,omitempty"`
}

type Legend struct {
	Orientation string  `json:"orientation"`
	YAnchor     string  `json:"yanchor"`
	Y           float64 `json:"y"`
	XAnchor     string  `json:"xanchor"`
	X           float64 `json:"x"`
}

type Layout struct {
	Title        Text    `json:"title"`
	Height       int     `json:"height"`
	XAxis        Axis    `json:"xaxis"`
	YAxis        Axis    `json:"yaxis"`
	YAxis2       *Axis   `json:"yaxis2,omitempty"`
	Legend       *Legend `json:"legend,omitempty"`
	PaperBGColor string  `json:"paper_bgcolor"`
	PlotBGColor  string  `json:"plot_bgcolor"`
	Font         Font    `json:"font"`
}

func dateLabels(bars []finance.Bar) []string {
	out := make([]string, len(bars))
	for i, b := range bars {
		out[i] = b.Time.Format(time.DateOnly)
	}
	return out
}

// nullable turns NaN into JSON null.
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if indicator.Defined(v) {
			v := v
			out[i] = &v
		}
	}
	return out
}

func themedLayout(t Theme, title string, height int) Layout {
	p := t.palette()
	return Layout{
		Title:        Text{Text: title},
		Height:       height,
		PaperBGColor: p.paper,
		PlotBGColor:  p.plot,
		Font:         Font{Color: p.font},
		XAxis:        Axis{GridColor: p.grid},
		YAxis:        Axis{GridColor: p.grid},
	}
}

// PriceFigure builds the candlestick chart with volume on a secondary axis and
// one line per overlay.
func PriceFigure(s *finance.Series, overlays []Overlay, t Theme) Figure {
	x := dateLabels(s.Bars)
	n := len(s.Bars)
	open, high, low, cl := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	vol := make([]float64, n)
	for i, b := range s.Bars {
		open[i], high[i], low[i], cl[i], vol[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}

	traces := []Trace{
		{Type: "candlestick", Name: "Price", X: x, Open: open, High: high, Low: low, Close: cl},
		{Type: "bar", Name: "Volume", X: x, Y: nullable(vol), YAxis: "y2",
			Marker: &Marker{Color: "rgba(128, 128, 128, 0.5)"}},
	}
	for _, o := range overlays {
		traces = append(traces, Trace{
			Type: "scatter",
			Name: o.Name,
			X:    x,
			Y:    nullable(o.Values),
			Line: &Line{Color: o.Color, Width: 2},
		})
	}

	noGrid := false
	layout := themedLayout(t, fmt.Sprintf("%s Stock Price and Volume", s.Ticker), 600)
	layout.XAxis.Title = Text{Text: "Date"}
	layout.XAxis.RangeSlider = &RangeSlider{Visible: false}
	layout.YAxis.Title = Text{Text: "Price ($)"}
	layout.YAxis2 = &Axis{Title: Text{Text: "Volume"}, Overlaying: "y", Side: "right", ShowGrid: &noGrid}
	layout.Legend = &Legend{Orientation: "h", YAnchor: "bottom", Y: 1.02, XAnchor: "right", X: 1}
	return Figure{Data: traces, Layout: layout}
}

// ReturnsFigure builds the daily returns distribution.
func ReturnsFigure(ticker string, returns []float64, t Theme) Figure {
	layout := themedLayout(t, fmt.Sprintf("%s Daily Returns Distribution", ticker), 400)
	layout.XAxis.Title = Text{Text: "Daily Return (%)"}
	layout.YAxis.Title = Text{Text: "Frequency"}
	return Figure{
		Data: []Trace{{
			Type:   "histogram",
			Name:   "Daily Returns",
			X:      returns,
			NBinsX: 50,
			Marker: &Marker{Color: "rgba(0, 123, 255, 0.6)"},
		}},
		Layout: layout,
	}
}
