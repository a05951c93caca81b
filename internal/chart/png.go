package chart

import (
	"fmt"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"stockanalyzer/internal/finance"
	"stockanalyzer/internal/indicator"
)

func pngLabels(bars []finance.Bar) []string {
	layout := "Jan 02"
	if len(bars) > 0 && bars[len(bars)-1].Time.Sub(bars[0].Time).Hours() > 24*400 {
		layout = "Jan 2006"
	}
	out := make([]string, len(bars))
	for i, b := range bars {
		out[i] = b.Time.Format(layout)
	}
	return out
}

// RenderPricePNG draws the close price, the overlays and the volume bars.
func RenderPricePNG(s *finance.Series, overlays []Overlay, t Theme) ([]byte, error) {
	if s == nil || len(s.Bars) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 price points", indicator.ErrNotEnoughData)
	}
	closes := s.Closes()
	vol := make([]float64, len(s.Bars))
	yMin, yMax := closes[0], closes[0]
	for i, b := range s.Bars {
		vol[i] = b.Volume
		yMin = min(yMin, b.Close)
		yMax = max(yMax, b.Close)
	}

	values := [][]float64{closes}
	names := []string{"Close"}
	for _, o := range overlays {
		line := make([]float64, len(o.Values))
		defined := 0
		for i, v := range o.Values {
			if !indicator.Defined(v) {
				line[i] = charts.GetNullValue()
				continue
			}
			defined++
			line[i] = v
			yMin = min(yMin, v)
			yMax = max(yMax, v)
		}
		// a window longer than the series draws nothing
		if defined == 0 {
			continue
		}
		values = append(values, line)
		names = append(names, o.Name)
	}

	pad := (yMax - yMin) * 0.05
	if pad < yMax*0.002 {
		pad = yMax * 0.002
	}
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
		seriesList[i].AxisIndex = 0
	}
	volume := charts.NewSeriesFromValues(vol, charts.ChartTypeBar)
	volume.Name = "Volume"
	volume.AxisIndex = 1
	seriesList = append(seriesList, volume)
	names = append(names, "Volume")

	title := strings.ToUpper(s.Ticker)
	if s.Name != "" {
		title += " • " + s.Name
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: pngLabels(s.Bars), BoundaryGap: charts.FalseFlag(), SplitNumber: 8}),
		charts.YAxisOptionFunc(
			charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5},
			charts.YAxisOption{DivideCount: 5, Position: charts.PositionRight},
		),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(t.goCharts()),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(560),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// RenderReturnsPNG draws the distribution of daily returns as bars.
func RenderReturnsPNG(ticker string, returns []float64, t Theme) ([]byte, error) {
	bins := indicator.Histogram(returns, 30)
	if len(bins) == 0 {
		return nil, fmt.Errorf("%w: no returns to plot", indicator.ErrNotEnoughData)
	}
	counts := make([]float64, len(bins))
	labels := make([]string, len(bins))
	for i, b := range bins {
		counts[i] = float64(b.Count)
		labels[i] = fmt.Sprintf("%.1f", (b.Lo+b.Hi)/2)
	}
	painter, err := charts.BarRender([][]float64{counts},
		charts.TitleTextOptionFunc(strings.ToUpper(ticker)+" Daily Returns Distribution", "daily return, %"),
		charts.XAxisDataOptionFunc(labels),
		charts.ThemeOptionFunc(t.goCharts()),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(400),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}
