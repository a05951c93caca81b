package finance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"
)

// History fetches daily bars for ticker between start and end.
func (c *Client) History(ctx context.Context, ticker string, start, end time.Time) (*Series, error) {
	sym, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidInput,
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")

	var yc yahooChartResp
	if err := c.getJSON(ctx, sym, "/v8/finance/chart/"+url.PathEscape(sym), q, &yc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLookup, sym, err)
	}
	if yc.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrLookup, sym, yc.Chart.Error.Description)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no data found for %s", ErrLookup, sym)
	}
	res := yc.Chart.Result[0]
	q0 := res.Indicators.Quote[0]
	loc := exchangeLocation(res.Meta.ExchangeTimezoneName)
	bars := buildBars(res.Timestamp, q0.Open, q0.High, q0.Low, q0.Close, q0.Volume, loc)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no data found for %s", ErrLookup, sym)
	}
	name := res.Meta.LongName
	if name == "" {
		name = res.Meta.ShortName
	}
	return &Series{
		Ticker:   sym,
		Name:     name,
		Currency: res.Meta.Currency,
		Location: loc,
		Bars:     bars,
	}, nil
}

// Profile fetches company metadata. The quoteSummary endpoint and the quote
// snapshot complement each other; either one is enough.
func (c *Client) Profile(ctx context.Context, ticker string) (*Profile, error) {
	sym, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	p := &Profile{Symbol: sym}

	summaryErr := c.fillSummary(ctx, sym, p)
	if summaryErr != nil {
		log.Printf("finance: quoteSummary %s: %v", sym, summaryErr)
	}
	quoteErr := errors.New("quote source disabled")
	if c.quotes != nil {
		var q *Quote
		q, quoteErr = c.quotes.Quote(ctx, sym)
		if quoteErr == nil {
			p.merge(q)
		} else {
			log.Printf("finance: quote %s: %v", sym, quoteErr)
		}
	}
	if summaryErr != nil && quoteErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLookup, sym, summaryErr)
	}
	return p, nil
}

func (c *Client) fillSummary(ctx context.Context, sym string, p *Profile) error {
	q := url.Values{}
	q.Set("modules", "assetProfile,price,summaryDetail")
	var ys yahooSummaryResp
	if err := c.getJSON(ctx, sym, "/v10/finance/quoteSummary/"+url.PathEscape(sym), q, &ys); err != nil {
		return err
	}
	if ys.QuoteSummary.Error != nil {
		return errors.New(ys.QuoteSummary.Error.Description)
	}
	if len(ys.QuoteSummary.Result) == 0 {
		return errors.New("empty quoteSummary result")
	}
	r := ys.QuoteSummary.Result[0]
	p.Name = r.Price.LongName
	if p.Name == "" {
		p.Name = r.Price.ShortName
	}
	p.Sector = r.AssetProfile.Sector
	p.Industry = r.AssetProfile.Industry
	p.Country = r.AssetProfile.Country
	p.Website = r.AssetProfile.Website
	p.Summary = r.AssetProfile.LongBusinessSummary
	p.Exchange = r.Price.ExchangeName
	p.Currency = r.Price.Currency
	p.Price = r.Price.RegularMarketPrice.Raw
	p.MarketCap = r.Price.MarketCap.Raw
	p.TrailingPE = r.SummaryDetail.TrailingPE.Raw
	p.DividendYield = r.SummaryDetail.DividendYield.Raw
	p.FiftyTwoWeekHigh = r.SummaryDetail.FiftyTwoWeekHigh.Raw
	p.FiftyTwoWeekLow = r.SummaryDetail.FiftyTwoWeekLow.Raw
	return nil
}

// merge fills fields the profile is still missing from a quote snapshot.
func (p *Profile) merge(q *Quote) {
	if q == nil {
		return
	}
	setS := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	setF := func(dst *float64, v float64) {
		if *dst == 0 {
			*dst = v
		}
	}
	setS(&p.Name, q.Name)
	setS(&p.Exchange, q.Exchange)
	setS(&p.Currency, q.Currency)
	setF(&p.Price, q.Price)
	setF(&p.MarketCap, q.MarketCap)
	setF(&p.TrailingPE, q.TrailingPE)
	setF(&p.DividendYield, q.DividendYield)
	setF(&p.FiftyTwoWeekHigh, q.FiftyTwoWeekHigh)
	setF(&p.FiftyTwoWeekLow, q.FiftyTwoWeekLow)
}
