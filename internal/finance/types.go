package finance

import "time"

// Bar is one daily candle.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is a time-ordered price history for one ticker.
type Series struct {
	Ticker   string
	Name     string
	Currency string
	Location *time.Location
	Bars     []Bar
}

// Closes returns the close prices in bar order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Last returns the most recent bar.
func (s *Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Profile is the company metadata shown next to the chart. Zero numbers mean
// the provider did not report them.
type Profile struct {
	Symbol           string
	Name             string
	Sector           string
	Industry         string
	Country          string
	Exchange         string
	Currency         string
	Website          string
	Summary          string
	Price            float64
	MarketCap        float64
	TrailingPE       float64
	DividendYield    float64
	FiftyTwoWeekHigh float64
	FiftyTwoWeekLow  float64
}

// yahooError is the error object embedded in Yahoo API envelopes.
type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yahooChartResp mirrors Yahoo v8 chart response (trimmed to needed fields)
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				Currency             string `json:"currency"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				LongName             string `json:"longName"`
				ShortName            string `json:"shortName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// yahooRaw is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper.
type yahooRaw struct {
	Raw float64 `json:"raw"`
}

// yahooSummaryResp mirrors Yahoo v10 quoteSummary (trimmed)
type yahooSummaryResp struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector              string `json:"sector"`
				Industry            string `json:"industry"`
				Country             string `json:"country"`
				Website             string `json:"website"`
				LongBusinessSummary string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
			Price struct {
				LongName           string   `json:"longName"`
				ShortName          string   `json:"shortName"`
				ExchangeName       string   `json:"exchangeName"`
				Currency           string   `json:"currency"`
				MarketCap          yahooRaw `json:"marketCap"`
				RegularMarketPrice yahooRaw `json:"regularMarketPrice"`
			} `json:"price"`
			SummaryDetail struct {
				TrailingPE       yahooRaw `json:"trailingPE"`
				DividendYield    yahooRaw `json:"dividendYield"`
				FiftyTwoWeekHigh yahooRaw `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  yahooRaw `json:"fiftyTwoWeekLow"`
			} `json:"summaryDetail"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}
