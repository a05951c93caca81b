package dashboard

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockanalyzer/internal/chart"
	"stockanalyzer/internal/finance"
)

// Notice is a message shown once to the user after an interaction.
type Notice struct {
	Level string // "success", "info", "warning" or "error"
	Text  string
}

// Session is the state of one dashboard user (a browser or a chat).
type Session struct {
	mu sync.Mutex

	ID        string
	Ticker    string
	Period    finance.Period
	Start     time.Time // custom range; zero when the period applies
	End       time.Time
	ShowMA50  bool
	ShowMA200 bool
	ExtraMA   int // extra moving average window, 0 for none
	Theme     chart.Theme

	// StorageEnabled turns false after the store fails once; the session then
	// keeps its watchlist in memory.
	StorageEnabled bool
	watchlist      []string
	searched       []string

	last    *snapshot
	notices []Notice
}

// snapshot is the market data behind the last rendered view.
type snapshot struct {
	key       string
	fetchedAt time.Time
	series    *finance.Series
	profile   *finance.Profile
	digest    string
}

func (s *Session) notify(level, text string) {
	s.notices = append(s.notices, Notice{Level: level, Text: text})
}

// TakeNotices returns the pending notices and clears them.
func (s *Session) TakeNotices() []Notice {
	n := s.notices
	s.notices = nil
	return n
}

// Range returns the window of bars the session shows.
func (s *Session) Range(now time.Time) (time.Time, time.Time) {
	if !s.Start.IsZero() && !s.End.IsZero() {
		return s.Start, s.End
	}
	return s.Period.Range(now)
}

func (s *Session) dataKey(now time.Time) string {
	start, end := s.Range(now)
	return s.Ticker + "|" + start.Format(time.DateOnly) + "|" + end.Format(time.DateOnly)
}

func (s *Session) rememberSearch(ticker string) {
	s.searched = append([]string{ticker}, s.searched...)
	if len(s.searched) > 50 {
		s.searched = s.searched[:50]
	}
}

func (s *Session) memoryWatch(ticker string) bool {
	for _, t := range s.watchlist {
		if t == ticker {
			return false
		}
	}
	s.watchlist = append(s.watchlist, ticker)
	return true
}

func (s *Session) memoryUnwatch(ticker string) bool {
	for i, t := range s.watchlist {
		if t == ticker {
			s.watchlist = append(s.watchlist[:i], s.watchlist[i+1:]...)
			return true
		}
	}
	return false
}

// Sessions is a concurrency-safe registry of sessions keyed by id.
type Sessions struct {
	mu sync.Mutex
	m  map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{m: map[string]*Session{}}
}

// NewSessionID returns a random id for browser sessions.
func NewSessionID() string { return uuid.NewString() }

// ChatSessionID is the session id used for a chat.
func ChatSessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (r *Sessions) get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	return s, ok
}

// put stores s unless a session with the same id won the race; the stored one
// is returned.
func (r *Sessions) put(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.m[s.ID]; ok {
		return existing
	}
	r.m[s.ID] = s
	return s
}

// Len reports the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
