// Package dashboard wires the market data gateway, the indicators, the chart
// renderer and the preference store behind per-user sessions.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"stockanalyzer/internal/chart"
	"stockanalyzer/internal/finance"
	"stockanalyzer/internal/indicator"
	"stockanalyzer/internal/storage"
)

// Market fetches price history and company metadata.
type Market interface {
	History(ctx context.Context, ticker string, start, end time.Time) (*finance.Series, error)
	Profile(ctx context.Context, ticker string) (*finance.Profile, error)
}

// Preferences is the persistent side of a session.
type Preferences interface {
	AddToWatchlist(ticker, name string) (bool, error)
	RemoveFromWatchlist(ticker string) (bool, error)
	Watchlist() ([]storage.WatchlistEntry, error)
	RecordSearch(ticker string) error
	RecentSearches(limit int) ([]storage.RecentSearch, error)
	SetPreferences(prefs map[string]string) error
	Preferences() (map[string]string, error)
}

// Digester condenses a company summary.
type Digester interface {
	Digest(ctx context.Context, company, summary string) (string, error)
}

type Options struct {
	DefaultTicker    string
	DefaultPeriod    string
	Theme            string
	DefaultWatchlist []string
	PopularTickers   []string
	RecentShown      int
	ChartCacheTTL    time.Duration
}

const (
	snapshotTTL = 5 * time.Minute
	recentScan  = 50
	recentBars  = 10
)

// Service runs dashboard interactions. Callers hold the session lock (see Do)
// while calling the session methods.
type Service struct {
	market   Market
	store    Preferences
	digest   Digester
	opts     Options
	sessions *Sessions
	charts   *chart.Cache
	now      func() time.Time
}

// NewService builds a Service. store and digest may be nil: without a store
// the watchlist and recent searches live in the session only.
func NewService(market Market, store Preferences, digest Digester, opts Options) *Service {
	if opts.DefaultTicker == "" {
		opts.DefaultTicker = "AAPL"
	}
	if opts.RecentShown <= 0 {
		opts.RecentShown = 6
	}
	if store == nil {
		log.Printf("dashboard: storage disabled, sessions keep their own watchlist")
	}
	return &Service{
		market:   market,
		store:    store,
		digest:   digest,
		opts:     opts,
		sessions: NewSessions(),
		charts:   chart.NewCache(opts.ChartCacheTTL),
		now:      time.Now,
	}
}

// Session returns the session with id, creating it on first use.
func (svc *Service) Session(id string) *Session {
	if s, ok := svc.sessions.get(id); ok {
		return s
	}
	return svc.sessions.put(svc.NewSession(id))
}

// Do runs fn with exclusive access to the session id.
func (svc *Service) Do(id string, fn func(*Session) error) error {
	s := svc.Session(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// NewSession starts a session from the configured defaults overridden by the
// stored preferences. An empty stored watchlist is seeded with the defaults.
func (svc *Service) NewSession(id string) *Session {
	period, err := finance.ParsePeriod(svc.opts.DefaultPeriod)
	if err != nil {
		period = finance.DefaultPeriod
	}
	s := &Session{
		ID:             id,
		Ticker:         svc.opts.DefaultTicker,
		Period:         period,
		ShowMA50:       true,
		ShowMA200:      true,
		Theme:          chart.ParseTheme(svc.opts.Theme),
		StorageEnabled: svc.store != nil,
		watchlist:      append([]string(nil), svc.opts.DefaultWatchlist...),
	}
	if !s.StorageEnabled {
		s.notify("warning", "Using default preferences - database connection unavailable.")
		return s
	}

	prefs, err := svc.store.Preferences()
	if err != nil {
		svc.storageFailed(s, err)
		return s
	}
	applyPreferences(s, prefs)

	list, err := svc.store.Watchlist()
	if err != nil {
		svc.storageFailed(s, err)
		return s
	}
	if len(list) == 0 {
		for _, t := range svc.opts.DefaultWatchlist {
			if _, err := svc.store.AddToWatchlist(t, ""); err != nil {
				svc.storageFailed(s, err)
				break
			}
		}
	}
	return s
}

func applyPreferences(s *Session, prefs map[string]string) {
	if v, ok := prefs[storage.PrefDefaultTicker]; ok {
		if t, err := finance.NormalizeTicker(v); err == nil {
			s.Ticker = t
		}
	}
	if v, ok := prefs[storage.PrefDefaultPeriod]; ok {
		if p, err := finance.ParsePeriod(v); err == nil {
			s.Period = p
		}
	}
	if v, ok := prefs[storage.PrefTheme]; ok {
		s.Theme = chart.ParseTheme(v)
	}
	if v, ok := prefs[storage.PrefShowMA50]; ok {
		s.ShowMA50 = v == "1"
	}
	if v, ok := prefs[storage.PrefShowMA200]; ok {
		s.ShowMA200 = v == "1"
	}
}

// storageFailed disables the store for this session only.
func (svc *Service) storageFailed(s *Session, err error) {
	log.Printf("dashboard: session %s: %v", s.ID, err)
	if s.StorageEnabled {
		s.StorageEnabled = false
		s.notify("warning", "Database unavailable: watchlist and recent searches are kept for this session only.")
	}
}

// fail turns err into a notice and returns it.
func (svc *Service) fail(s *Session, err error) error {
	switch {
	case errors.Is(err, storage.ErrStorage):
		svc.storageFailed(s, err)
	case errors.Is(err, finance.ErrInvalidInput), errors.Is(err, indicator.ErrInvalidWindow),
		errors.Is(err, indicator.ErrNotEnoughData):
		s.notify("error", err.Error())
	case errors.Is(err, finance.ErrLookup):
		log.Printf("dashboard: lookup %s: %v", s.Ticker, err)
		s.notify("error", err.Error())
	default:
		log.Printf("dashboard: session %s: %v", s.ID, err)
		s.notify("error", "An error occurred: "+err.Error())
	}
	return err
}

// Lookup switches the session to ticker. The search is recorded only when
// data was found.
func (svc *Service) Lookup(ctx context.Context, s *Session, ticker string) (*View, error) {
	t, err := finance.NormalizeTicker(ticker)
	if err != nil {
		return nil, svc.fail(s, err)
	}
	prev := s.Ticker
	s.Ticker = t
	v, err := svc.build(ctx, s, true)
	if err != nil {
		s.Ticker = prev
		return nil, svc.fail(s, err)
	}
	svc.recordSearch(s, t)
	return v, nil
}

// Refresh refetches and rebuilds the view of the current ticker.
func (svc *Service) Refresh(ctx context.Context, s *Session) (*View, error) {
	v, err := svc.build(ctx, s, true)
	if err != nil {
		return nil, svc.fail(s, err)
	}
	return v, nil
}

// Current builds the view of the current ticker, reusing recently fetched
// data when the ticker and range are unchanged.
func (svc *Service) Current(ctx context.Context, s *Session) (*View, error) {
	v, err := svc.build(ctx, s, false)
	if err != nil {
		return nil, svc.fail(s, err)
	}
	return v, nil
}

func (svc *Service) recordSearch(s *Session, ticker string) {
	s.rememberSearch(ticker)
	if !s.StorageEnabled {
		return
	}
	if err := svc.store.RecordSearch(ticker); err != nil {
		svc.storageFailed(s, err)
	}
}

// load returns the market data for the session's ticker and range.
func (svc *Service) load(ctx context.Context, s *Session, force bool) (*snapshot, error) {
	now := svc.now()
	key := s.dataKey(now)
	if !force && s.last != nil && s.last.key == key && now.Sub(s.last.fetchedAt) < snapshotTTL {
		return s.last, nil
	}
	start, end := s.Range(now)
	series, err := svc.market.History(ctx, s.Ticker, start, end)
	if err != nil {
		return nil, err
	}
	if len(series.Bars) == 0 {
		return nil, fmt.Errorf("%w: no data found for %s, please check the ticker symbol", finance.ErrLookup, s.Ticker)
	}
	snap := &snapshot{key: key, series: series, fetchedAt: now}

	profile, err := svc.market.Profile(ctx, s.Ticker)
	if err != nil {
		log.Printf("dashboard: profile %s: %v", s.Ticker, err)
		s.notify("warning", "Unable to fetch company information for "+s.Ticker)
	} else {
		snap.profile = profile
		snap.digest = svc.digestOf(ctx, profile)
	}
	s.last = snap
	return snap, nil
}

func (svc *Service) digestOf(ctx context.Context, p *finance.Profile) string {
	if svc.digest == nil || strings.TrimSpace(p.Summary) == "" {
		return ""
	}
	name := p.Name
	if name == "" {
		name = p.Symbol
	}
	d, err := svc.digest.Digest(ctx, name, p.Summary)
	if err != nil {
		log.Printf("dashboard: digest %s: %v", p.Symbol, err)
		return ""
	}
	return d
}

func (svc *Service) overlays(s *Session, series *finance.Series) ([]chart.Overlay, error) {
	var windows []int
	if s.ShowMA50 {
		windows = append(windows, 50)
	}
	if s.ShowMA200 {
		windows = append(windows, 200)
	}
	if s.ExtraMA > 0 && s.ExtraMA != 50 && s.ExtraMA != 200 {
		windows = append(windows, s.ExtraMA)
	}
	out := make([]chart.Overlay, 0, len(windows))
	for _, w := range windows {
		o, err := chart.MovingAverage(series, w)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// AddToWatchlist adds ticker after checking that it has recent data.
func (svc *Service) AddToWatchlist(ctx context.Context, s *Session, ticker string) error {
	t, err := finance.NormalizeTicker(ticker)
	if err != nil {
		return svc.fail(s, err)
	}
	end := svc.now()
	series, err := svc.market.History(ctx, t, end.AddDate(0, 0, -7), end)
	if err == nil && len(series.Bars) == 0 {
		err = fmt.Errorf("%w: invalid ticker: %s", finance.ErrLookup, t)
	}
	if err != nil {
		return svc.fail(s, err)
	}

	var added bool
	if s.StorageEnabled {
		added, err = svc.store.AddToWatchlist(t, series.Name)
		if err != nil {
			svc.storageFailed(s, err)
			added = s.memoryWatch(t)
		}
	} else {
		added = s.memoryWatch(t)
	}
	if added {
		s.notify("success", "Added "+t+" to watchlist")
	} else {
		s.notify("info", t+" is already in your watchlist")
	}
	return nil
}

// RemoveFromWatchlist removes ticker; removing an absent ticker is not an error.
func (svc *Service) RemoveFromWatchlist(s *Session, ticker string) error {
	t, err := finance.NormalizeTicker(ticker)
	if err != nil {
		return svc.fail(s, err)
	}
	var removed bool
	if s.StorageEnabled {
		removed, err = svc.store.RemoveFromWatchlist(t)
		if err != nil {
			svc.storageFailed(s, err)
			removed = s.memoryUnwatch(t)
		}
	} else {
		removed = s.memoryUnwatch(t)
	}
	if removed {
		s.notify("success", "Removed "+t+" from watchlist")
	} else {
		s.notify("info", t+" is not in your watchlist")
	}
	return nil
}

// WatchItem is one watchlist row.
type WatchItem struct {
	Ticker  string
	Name    string
	AddedAt time.Time // zero for session-only entries
}

// Watchlist returns the session's watchlist in insertion order.
func (svc *Service) Watchlist(s *Session) []WatchItem {
	if s.StorageEnabled {
		list, err := svc.store.Watchlist()
		if err == nil {
			out := make([]WatchItem, len(list))
			for i, e := range list {
				out[i] = WatchItem{Ticker: e.Ticker, Name: e.Name, AddedAt: e.AddedAt}
			}
			return out
		}
		svc.storageFailed(s, err)
	}
	out := make([]WatchItem, len(s.watchlist))
	for i, t := range s.watchlist {
		out[i] = WatchItem{Ticker: t}
	}
	return out
}

// RecentTickers returns up to n distinct recently searched tickers, newest
// first, leaving out the current one. n <= 0 uses the configured count.
func (svc *Service) RecentTickers(s *Session, n int) []string {
	if n <= 0 {
		n = svc.opts.RecentShown
	}
	searched := s.searched
	if s.StorageEnabled {
		rows, err := svc.store.RecentSearches(recentScan)
		if err != nil {
			svc.storageFailed(s, err)
		} else {
			searched = make([]string, len(rows))
			for i, r := range rows {
				searched[i] = r.Ticker
			}
		}
	}
	seen := map[string]bool{s.Ticker: true}
	var out []string
	for _, t := range searched {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == n {
			break
		}
	}
	return out
}

// Choices lists the popular tickers merged with the watchlist, sorted.
func (svc *Service) Choices(s *Session) []string {
	set := map[string]bool{}
	for _, t := range svc.opts.PopularTickers {
		set[t] = true
	}
	for _, w := range svc.Watchlist(s) {
		set[w.Ticker] = true
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Settings are the per-session display controls.
type Settings struct {
	Period    string
	Start     string // YYYY-MM-DD; Start and End override Period when both are set
	End       string
	ShowMA50  bool
	ShowMA200 bool
	ExtraMA   int
	Theme     string
}

// Settings returns the session's current display controls.
func (s *Session) Settings() Settings {
	out := Settings{
		Period:    s.Period.Label,
		ShowMA50:  s.ShowMA50,
		ShowMA200: s.ShowMA200,
		ExtraMA:   s.ExtraMA,
		Theme:     string(s.Theme),
	}
	if !s.Start.IsZero() {
		out.Start = s.Start.Format(time.DateOnly)
		out.End = s.End.Format(time.DateOnly)
	}
	return out
}

// UpdateSettings validates and applies in for this session only.
func (svc *Service) UpdateSettings(s *Session, in Settings) error {
	if in.ExtraMA < 0 {
		return svc.fail(s, fmt.Errorf("%w: got %d", indicator.ErrInvalidWindow, in.ExtraMA))
	}
	period := s.Period
	if in.Period != "" {
		p, err := finance.ParsePeriod(in.Period)
		if err != nil {
			return svc.fail(s, err)
		}
		period = p
	}
	var start, end time.Time
	if in.Start != "" || in.End != "" {
		var err error
		if start, err = time.ParseInLocation(time.DateOnly, in.Start, time.Local); err != nil {
			return svc.fail(s, fmt.Errorf("%w: start date %q", finance.ErrInvalidInput, in.Start))
		}
		if end, err = time.ParseInLocation(time.DateOnly, in.End, time.Local); err != nil {
			return svc.fail(s, fmt.Errorf("%w: end date %q", finance.ErrInvalidInput, in.End))
		}
		if !start.Before(end) {
			return svc.fail(s, fmt.Errorf("%w: start date must be before end date", finance.ErrInvalidInput))
		}
		// include the whole end day
		end = end.Add(24*time.Hour - time.Second)
	}
	s.Period = period
	s.Start, s.End = start, end
	s.ShowMA50 = in.ShowMA50
	s.ShowMA200 = in.ShowMA200
	s.ExtraMA = in.ExtraMA
	if in.Theme != "" {
		s.Theme = chart.ParseTheme(in.Theme)
	}
	return nil
}

// Prefs are the settings persisted across sessions.
type Prefs struct {
	Theme         string
	DefaultTicker string
	DefaultPeriod string
	ShowMA50      bool
	ShowMA200     bool
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// SavePreferences stores p and applies its display parts to the session.
// Without a store they last for the session only.
func (svc *Service) SavePreferences(s *Session, p Prefs) error {
	ticker, err := finance.NormalizeTicker(p.DefaultTicker)
	if err != nil {
		return svc.fail(s, err)
	}
	period, err := finance.ParsePeriod(p.DefaultPeriod)
	if err != nil {
		return svc.fail(s, err)
	}
	theme := chart.ParseTheme(p.Theme)
	s.Theme = theme
	s.ShowMA50 = p.ShowMA50
	s.ShowMA200 = p.ShowMA200

	if !s.StorageEnabled {
		s.notify("success", "Preferences saved to session!")
		return nil
	}
	err = svc.store.SetPreferences(map[string]string{
		storage.PrefTheme:         string(theme),
		storage.PrefDefaultTicker: ticker,
		storage.PrefDefaultPeriod: period.Label,
		storage.PrefShowMA50:      flag(p.ShowMA50),
		storage.PrefShowMA200:     flag(p.ShowMA200),
	})
	if err != nil {
		s.notify("error", "Could not save preferences to database.")
		svc.storageFailed(s, err)
		return err
	}
	s.notify("success", "Preferences saved!")
	return nil
}

func (svc *Service) chartKey(kind string, s *Session) string {
	return fmt.Sprintf("%s|%s|%s|%t|%t|%d", kind, s.dataKey(svc.now()), s.Theme, s.ShowMA50, s.ShowMA200, s.ExtraMA)
}

// PriceChartPNG renders the price chart of the current view as PNG.
func (svc *Service) PriceChartPNG(ctx context.Context, s *Session) ([]byte, error) {
	key := svc.chartKey("price", s)
	if img, ok := svc.charts.Get(key); ok {
		return img, nil
	}
	snap, err := svc.load(ctx, s, false)
	if err != nil {
		return nil, svc.fail(s, err)
	}
	overlays, err := svc.overlays(s, snap.series)
	if err != nil {
		return nil, svc.fail(s, err)
	}
	img, err := chart.RenderPricePNG(snap.series, overlays, s.Theme)
	if err != nil {
		return nil, svc.fail(s, err)
	}
	svc.charts.Set(key, img)
	return img, nil
}

// ReturnsChartPNG renders the daily returns distribution as PNG.
func (svc *Service) ReturnsChartPNG(ctx context.Context, s *Session) ([]byte, error) {
	key := svc.chartKey("returns", s)
	if img, ok := svc.charts.Get(key); ok {
		return img, nil
	}
	snap, err := svc.load(ctx, s, false)
	if err != nil {
		return nil, svc.fail(s, err)
	}
	m, err := indicator.Performance(snap.series.Bars, svc.now())
	if err != nil {
		return nil, svc.fail(s, err)
	}
	img, err := chart.RenderReturnsPNG(s.Ticker, m.Returns, s.Theme)
	if err != nil {
		return nil, svc.fail(s, err)
	}
	svc.charts.Set(key, img)
	return img, nil
}
