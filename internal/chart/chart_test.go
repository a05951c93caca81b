package chart

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"stockanalyzer/internal/finance"
)

func testSeries(closes ...float64) *finance.Series {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := &finance.Series{Ticker: "AAPL", Name: "Apple Inc."}
	for i, c := range closes {
		s.Bars = append(s.Bars, finance.Bar{
			Time: start.AddDate(0, 0, i), Open: c - 1, High: c + 2, Low: c - 2, Close: c, Volume: 1000 * float64(i+1),
		})
	}
	return s
}

func TestMovingAverage(t *testing.T) {
	o, err := MovingAverage(testSeries(10, 20, 30, 40), 3)
	if err != nil {
		t.Fatal(err)
	}
	if o.Name != "3-Day MA" {
		t.Errorf("name = %q", o.Name)
	}
	if !math.IsNaN(o.Values[1]) || o.Values[3] != 30 {
		t.Errorf("values = %v", o.Values)
	}
	if _, err := MovingAverage(testSeries(1, 2), 0); err == nil {
		t.Error("expected error for window 0")
	}
	ma50, _ := MovingAverage(testSeries(1), 50)
	if ma50.Color != "rgba(255, 165, 0, 0.8)" {
		t.Errorf("MA50 color = %q", ma50.Color)
	}
}

func TestPriceFigure_JSON(t *testing.T) {
	s := testSeries(10, 20, 30, 40)
	ma, _ := MovingAverage(s, 3)
	fig := PriceFigure(s, []Overlay{ma}, ThemeDark)

	if len(fig.Data) != 3 {
		t.Fatalf("traces = %d, want candlestick, volume, overlay", len(fig.Data))
	}
	if fig.Data[0].Type != "candlestick" || fig.Data[1].YAxis != "y2" {
		t.Errorf("unexpected traces: %+v", fig.Data[:2])
	}

	raw, err := json.Marshal(fig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc struct {
		Data []struct {
			Type string     `json:"type"`
			Y    []*float64 `json:"y"`
		} `json:"data"`
		Layout struct {
			Title struct {
				Text string `json:"text"`
			} `json:"title"`
			XAxis struct {
				RangeSlider struct {
					Visible bool `json:"visible"`
				} `json:"rangeslider"`
			} `json:"xaxis"`
			PaperBGColor string `json:"paper_bgcolor"`
		} `json:"layout"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	y := doc.Data[2].Y
	if y[0] != nil || y[1] != nil || y[2] == nil || *y[2] != 20 || *y[3] != 30 {
		t.Errorf("overlay y = %s", raw)
	}
	if doc.Layout.Title.Text != "AAPL Stock Price and Volume" {
		t.Errorf("title = %q", doc.Layout.Title.Text)
	}
	if doc.Layout.XAxis.RangeSlider.Visible {
		t.Error("range slider should be hidden")
	}
	if doc.Layout.PaperBGColor != "#0e1117" {
		t.Errorf("dark background = %q", doc.Layout.PaperBGColor)
	}
}

func TestReturnsFigure(t *testing.T) {
	fig := ReturnsFigure("KO", []float64{0.5, -1.2, 0.3}, ThemeLight)
	raw, err := json.Marshal(fig)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"nbinsx":50`) || !strings.Contains(string(raw), `"type":"histogram"`) {
		t.Errorf("figure = %s", raw)
	}
}

func TestParseTheme(t *testing.T) {
	if ParseTheme("Dark") != ThemeDark || ParseTheme("") != ThemeLight || ParseTheme("neon") != ThemeLight {
		t.Error("ParseTheme mapping")
	}
}

func TestCache(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", []byte{1, 2, 3})
	img, ok := c.Get("k")
	if !ok || len(img) != 3 {
		t.Fatalf("Get = %v, %v", img, ok)
	}
	img[0] = 9
	again, _ := c.Get("k")
	if again[0] != 1 {
		t.Error("cache returned shared slice")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
}

func TestRenderPricePNG(t *testing.T) {
	s := testSeries(10, 12, 11, 13, 15, 14, 16)
	ma, _ := MovingAverage(s, 3)
	img, err := RenderPricePNG(s, []Overlay{ma}, ThemeLight)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(img) < 8 || string(img[1:4]) != "PNG" {
		t.Errorf("not a PNG: % x", img[:min(8, len(img))])
	}
	if _, err := RenderPricePNG(testSeries(10), nil, ThemeLight); err == nil {
		t.Error("expected error for single bar")
	}
}

func TestRenderReturnsPNG(t *testing.T) {
	img, err := RenderReturnsPNG("AAPL", []float64{-1, 0.2, 0.5, 1.3, -0.7}, ThemeDark)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(img) == 0 {
		t.Error("empty image")
	}
	if _, err := RenderReturnsPNG("AAPL", nil, ThemeDark); err == nil {
		t.Error("expected error without returns")
	}
}
