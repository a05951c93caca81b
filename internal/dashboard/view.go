package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"

	"stockanalyzer/internal/chart"
	"stockanalyzer/internal/finance"
	"stockanalyzer/internal/indicator"
)

// View is everything the dashboard shows for one ticker.
type View struct {
	Ticker    string
	Name      string
	Currency  string
	Period    string
	Start     time.Time
	End       time.Time
	Last      finance.Bar
	Change    float64
	ChangePct float64

	Figure  chart.Figure
	Returns *chart.Figure
	Recent  []finance.Bar // newest first
	Metrics *indicator.Metrics

	Profile     *finance.Profile
	SummaryHTML template.HTML
	DigestHTML  template.HTML
}

func (svc *Service) build(ctx context.Context, s *Session, force bool) (*View, error) {
	snap, err := svc.load(ctx, s, force)
	if err != nil {
		return nil, err
	}
	series := snap.series
	overlays, err := svc.overlays(s, series)
	if err != nil {
		return nil, err
	}

	start, end := s.Range(svc.now())
	v := &View{
		Ticker:   series.Ticker,
		Name:     series.Name,
		Currency: series.Currency,
		Period:   s.Period.Label,
		Start:    start,
		End:      end,
		Figure:   chart.PriceFigure(series, overlays, s.Theme),
		Profile:  snap.profile,
	}
	if !s.Start.IsZero() {
		v.Period = "Custom"
	}
	if v.Ticker == "" {
		v.Ticker = s.Ticker
	}
	last, _ := series.Last()
	v.Last = last
	if n := len(series.Bars); n > 1 {
		prev := series.Bars[n-2].Close
		v.Change = last.Close - prev
		if prev != 0 {
			v.ChangePct = v.Change / prev * 100
		}
	}
	for i := len(series.Bars) - 1; i >= 0 && len(v.Recent) < recentBars; i-- {
		v.Recent = append(v.Recent, series.Bars[i])
	}

	if m, err := indicator.Performance(series.Bars, svc.now()); err != nil {
		log.Printf("dashboard: metrics %s: %v", s.Ticker, err)
	} else {
		v.Metrics = m
		rf := chart.ReturnsFigure(v.Ticker, m.Returns, s.Theme)
		v.Returns = &rf
	}

	if snap.profile != nil {
		if v.Name == "" {
			v.Name = snap.profile.Name
		}
		v.SummaryHTML = markdown(snap.profile.Summary)
	}
	v.DigestHTML = markdown(snap.digest)
	return v, nil
}

// markdown renders text to HTML. Raw HTML in text is not passed through.
func markdown(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

func money(v float64) string {
	if v < 0 {
		return "-$" + humanize.CommafWithDigits(-v, 2)
	}
	return "$" + humanize.CommafWithDigits(v, 2)
}

func signedMoney(v float64) string {
	if v > 0 {
		return "+" + money(v)
	}
	return money(v)
}

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v) }

func signedPct(v float64) string { return fmt.Sprintf("%+.2f%%", v) }

func volume(v float64) string { return humanize.Comma(int64(v)) }

func marketCap(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return "$" + humanize.Comma(int64(v))
}

func ratio(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return humanize.FtoaWithDigits(v, 2)
}

func yield(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return pct(v * 100)
}

func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// Caption is a one-line summary of the last close.
func (v *View) Caption() string {
	var b strings.Builder
	b.WriteString(v.Ticker)
	if v.Name != "" {
		b.WriteString(" • " + v.Name)
	}
	b.WriteString(" • " + v.Period)
	fmt.Fprintf(&b, "\nLast close %s (%s, %s) on %s", money(v.Last.Close), signedMoney(v.Change),
		signedPct(v.ChangePct), v.Last.Time.Format("Jan 2, 2006"))
	return b.String()
}

// Overview is the plain-text company overview.
func (v *View) Overview() string {
	p := v.Profile
	if p == nil {
		return "Unable to fetch company information for " + v.Ticker
	}
	var b strings.Builder
	name := p.Name
	if name == "" {
		name = v.Ticker
	}
	fmt.Fprintf(&b, "%s (%s)\n", name, v.Ticker)
	line := func(label, value string) {
		if value != "" && value != "N/A" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	line("Sector", p.Sector)
	line("Industry", p.Industry)
	line("Country", p.Country)
	line("Exchange", p.Exchange)
	line("Website", p.Website)
	line("Market Cap", marketCap(p.MarketCap))
	line("P/E Ratio", ratio(p.TrailingPE))
	line("Dividend Yield", yield(p.DividendYield))
	if p.FiftyTwoWeekHigh > 0 {
		line("52 Week Range", money(p.FiftyTwoWeekLow)+" - "+money(p.FiftyTwoWeekHigh))
	}
	if p.Summary != "" {
		b.WriteString("\n" + p.Summary + "\n")
	}
	return b.String()
}
