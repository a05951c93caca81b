package finance

import (
	"context"
	"fmt"

	yfin "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
)

// Quote is a point-in-time snapshot of a listed equity.
type Quote struct {
	Symbol           string
	Name             string
	Exchange         string
	Currency         string
	Price            float64
	MarketCap        float64
	TrailingPE       float64
	DividendYield    float64
	FiftyTwoWeekHigh float64
	FiftyTwoWeekLow  float64
}

// QuoteSource returns quote snapshots.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
}

// EquityQuotes reads quotes through piquette/finance-go.
type EquityQuotes struct{}

func (EquityQuotes) Quote(_ context.Context, symbol string) (*Quote, error) {
	eq, err := equity.Get(symbol)
	if err != nil {
		return nil, err
	}
	if eq == nil {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}
	return quoteFromEquity(eq), nil
}

func quoteFromEquity(eq *yfin.Equity) *Quote {
	name := eq.LongName
	if name == "" {
		name = eq.ShortName
	}
	return &Quote{
		Symbol:           eq.Symbol,
		Name:             name,
		Exchange:         eq.FullExchangeName,
		Currency:         eq.CurrencyID,
		Price:            eq.RegularMarketPrice,
		MarketCap:        float64(eq.MarketCap),
		TrailingPE:       eq.TrailingPE,
		DividendYield:    eq.TrailingAnnualDividendYield,
		FiftyTwoWeekHigh: eq.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  eq.FiftyTwoWeekLow,
	}
}
