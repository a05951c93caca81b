package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stockanalyzer/internal/dashboard"
	"stockanalyzer/internal/finance"
	"stockanalyzer/internal/storage"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want command
		ok   bool
	}{
		{"/stock aapl", command{name: "stock", symbol: "AAPL"}, true},
		{"/stock@MyBot brk-b 6m", command{name: "stock", symbol: "BRK-B", arg: "6m"}, true},
		{"/stock AAPL 10y", command{}, false},
		{"/info msft", command{name: "info", symbol: "MSFT"}, true},
		{"/watch ^gspc", command{name: "watch", symbol: "^GSPC"}, true},
		{"/unwatch KO", command{name: "unwatch", symbol: "KO"}, true},
		{"/watchlist", command{name: "watchlist"}, true},
		{"/recent@MyBot", command{name: "recent"}, true},
		{"/theme dark", command{name: "theme", arg: "dark"}, true},
		{"/theme neon", command{}, false},
		{"/start", command{name: "help"}, true},
		{"  /help  ", command{name: "help"}, true},
		{"what's up with AAPL?", command{}, false},
	}
	for _, tc := range cases {
		got, ok := parseCommand(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseCommand(%q) = %+v, %v; want %+v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

type recorder struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (r *recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, c)
	return tgbotapi.Message{}, nil
}

// drain returns what was sent since the last call, photos as "photo:<caption>".
func (r *recorder) drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.sent {
		switch v := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, v.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, "photo:"+v.Caption)
		default:
			out = append(out, fmt.Sprintf("%T", c))
		}
	}
	r.sent = nil
	return out
}

type market struct{}

func (market) History(_ context.Context, ticker string, start, end time.Time) (*finance.Series, error) {
	names := map[string]string{"KO": "Coca-Cola", "TSLA": "Tesla, Inc.", "AAPL": "Apple Inc."}
	name, ok := names[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: yahoo: No data found, symbol may be delisted", finance.ErrLookup)
	}
	s := &finance.Series{Ticker: ticker, Name: name}
	for i, d := 0, start; !d.After(end); i, d = i+1, d.AddDate(0, 0, 1) {
		c := 50 + float64(i%7)
		s.Bars = append(s.Bars, finance.Bar{Time: d, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 5e5})
	}
	return s, nil
}

func (market) Profile(_ context.Context, ticker string) (*finance.Profile, error) {
	return &finance.Profile{Symbol: ticker, Name: "Coca-Cola", Sector: "Consumer Defensive"}, nil
}

func newTestHandlers(t *testing.T) (*Handlers, *recorder) {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "bot.db"), 10)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	svc := dashboard.NewService(market{}, store, nil, dashboard.Options{
		DefaultTicker:    "AAPL",
		DefaultPeriod:    "1 Year",
		DefaultWatchlist: []string{"AAPL"},
	})
	rec := &recorder{}
	return NewHandlers(rec, svc), rec
}

func say(h *Handlers, text string) {
	h.HandleMessage(context.Background(), &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 42}})
}

func TestHandleMessage_Watchlist(t *testing.T) {
	h, rec := newTestHandlers(t)

	say(h, "/watch tsla")
	if got := rec.drain(); len(got) != 1 || got[0] != "Added TSLA to watchlist" {
		t.Errorf("watch replies = %q", got)
	}
	say(h, "/watch TSLA")
	if got := rec.drain(); len(got) != 1 || got[0] != "TSLA is already in your watchlist" {
		t.Errorf("duplicate watch replies = %q", got)
	}
	say(h, "/watchlist")
	got := rec.drain()
	if len(got) != 1 || !strings.Contains(got[0], "AAPL") || !strings.Contains(got[0], "TSLA • Tesla, Inc.") {
		t.Errorf("watchlist reply = %q", got)
	}
	say(h, "/unwatch NFLX")
	if got := rec.drain(); len(got) != 1 || got[0] != "NFLX is not in your watchlist" {
		t.Errorf("unwatch replies = %q", got)
	}
}

func TestHandleMessage_Stock(t *testing.T) {
	h, rec := newTestHandlers(t)

	say(h, "/stock ko 3m")
	got := rec.drain()
	if len(got) != 1 || !strings.HasPrefix(got[0], "photo:KO • Coca-Cola • 3 Months") {
		t.Fatalf("stock replies = %q", got)
	}

	say(h, "/stock ZZZZ")
	got = rec.drain()
	if len(got) != 1 || !strings.Contains(got[0], "No data found") {
		t.Errorf("unknown ticker replies = %q", got)
	}

	say(h, "/recent")
	if got := rec.drain(); len(got) != 1 || got[0] != "Your recent searches will appear here." {
		t.Errorf("recent replies = %q", got)
	}
	say(h, "/info TSLA")
	rec.drain()
	say(h, "/recent")
	if got := rec.drain(); len(got) != 1 || got[0] != "Recent searches: KO" {
		t.Errorf("recent replies = %q", got)
	}
}

func TestHandleMessage_ThemeAndHelp(t *testing.T) {
	h, rec := newTestHandlers(t)
	say(h, "/theme dark")
	if got := rec.drain(); len(got) != 1 || !strings.Contains(got[0], "dark theme") {
		t.Errorf("theme replies = %q", got)
	}
	say(h, "/help")
	got := rec.drain()
	if len(got) != 1 || !strings.HasPrefix(got[0], "Commands") {
		t.Fatalf("help replies = %q", got)
	}
	if strings.Contains(got[0], "candles") || !strings.Contains(got[0], "Close price line") {
		t.Errorf("help misdescribes /stock: %q", got[0])
	}
	say(h, "hello there")
	if got := rec.drain(); len(got) != 0 {
		t.Errorf("plain text answered: %q", got)
	}
}

func TestWebhookHandler(t *testing.T) {
	h, rec := newTestHandlers(t)
	b := &Bot{h: h, webhook: true}

	for _, body := range []string{
		`{"update_id":1,"message":{"message_id":7,"text":"/help"}}`,
		`{"update_id":2,"edited_message":{"message_id":7,"text":"/help"}}`,
	} {
		w := httptest.NewRecorder()
		b.WebhookHandler(w, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body)))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d for %s", w.Code, body)
		}
	}
	if got := rec.drain(); len(got) != 0 {
		t.Errorf("replied without a chat: %q", got)
	}

	w := httptest.NewRecorder()
	b.WebhookHandler(w, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", w.Code)
	}
}
