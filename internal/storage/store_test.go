package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, recentCap int) *Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "test.db"), recentCap)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func tickers(entries []WatchlistEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Ticker
	}
	return out
}

func searched(rows []RecentSearch) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Ticker
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddToWatchlist_Duplicate(t *testing.T) {
	s := openTestStore(t, 10)

	added, err := s.AddToWatchlist("aapl", "Apple Inc.")
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	added, err = s.AddToWatchlist("AAPL ", "")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if added {
		t.Error("second add reported a new entry")
	}

	list, err := s.Watchlist()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(list))
	}
	if list[0].Name != "Apple Inc." {
		t.Errorf("name = %q, want the original one", list[0].Name)
	}
}

func TestRemoveFromWatchlist_Absent(t *testing.T) {
	s := openTestStore(t, 10)
	for _, tk := range []string{"MSFT", "GOOGL"} {
		if _, err := s.AddToWatchlist(tk, ""); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.RemoveFromWatchlist("TSLA")
	if err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if removed {
		t.Error("remove absent reported a deletion")
	}
	list, _ := s.Watchlist()
	if got := tickers(list); !equal(got, []string{"MSFT", "GOOGL"}) {
		t.Errorf("watchlist = %v", got)
	}

	removed, err = s.RemoveFromWatchlist("msft")
	if err != nil || !removed {
		t.Fatalf("remove present: removed=%v err=%v", removed, err)
	}
	list, _ = s.Watchlist()
	if got := tickers(list); !equal(got, []string{"GOOGL"}) {
		t.Errorf("watchlist = %v", got)
	}
}

func TestEmptyTicker(t *testing.T) {
	s := openTestStore(t, 10)
	if _, err := s.AddToWatchlist("  ", ""); !errors.Is(err, ErrEmptyTicker) {
		t.Errorf("add: got %v", err)
	}
	if err := s.RecordSearch(""); !errors.Is(err, ErrEmptyTicker) {
		t.Errorf("record: got %v", err)
	}
}

func TestRecordSearch_EvictsOldest(t *testing.T) {
	s := openTestStore(t, 10)
	var all []string
	for i := 0; i < 15; i++ {
		tk := string(rune('A'+i)) + "X"
		all = append(all, tk)
		if err := s.RecordSearch(tk); err != nil {
			t.Fatalf("record %s: %v", tk, err)
		}
	}

	var count int64
	if err := s.db.Model(&RecentSearch{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 10 {
		t.Fatalf("stored %d rows, want 10", count)
	}

	rows, err := s.RecentSearches(100)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]string, 0, 10)
	for i := len(all) - 1; i >= 5; i-- {
		want = append(want, all[i])
	}
	if got := searched(rows); !equal(got, want) {
		t.Errorf("recent = %v, want %v", got, want)
	}
}

func TestRecentSearches_NewestFirst(t *testing.T) {
	s := openTestStore(t, 10)
	for _, tk := range []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"} {
		if err := s.RecordSearch(tk); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := s.RecentSearches(5)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"FFF", "EEE", "DDD", "CCC", "BBB"}
	if got := searched(rows); !equal(got, want) {
		t.Errorf("recent = %v, want %v", got, want)
	}

	rows, err = s.RecentSearches(0)
	if err != nil || len(rows) != 0 {
		t.Errorf("limit 0: rows=%v err=%v", rows, err)
	}
}

func TestRecentSearches_SameInstant(t *testing.T) {
	s := openTestStore(t, 10)
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	for _, tk := range []string{"AAA", "BBB", "CCC"} {
		if err := s.RecordSearch(tk); err != nil {
			t.Fatal(err)
		}
	}
	rows, _ := s.RecentSearches(3)
	if got := searched(rows); !equal(got, []string{"CCC", "BBB", "AAA"}) {
		t.Errorf("recent = %v", got)
	}
}

func TestPreferenceUpsert(t *testing.T) {
	s := openTestStore(t, 10)

	if _, ok, err := s.GetPreference(PrefTheme); err != nil || ok {
		t.Fatalf("unset preference: ok=%v err=%v", ok, err)
	}
	if err := s.SetPreference(PrefTheme, "dark"); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := s.GetPreference(PrefTheme); !ok || v != "dark" {
		t.Errorf("theme = %q ok=%v, want dark", v, ok)
	}
	if err := s.SetPreference(PrefTheme, "light"); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := s.GetPreference(PrefTheme); v != "light" {
		t.Errorf("theme = %q, want light", v)
	}

	var count int64
	s.db.Model(&UserPreference{}).Where("name = ?", PrefTheme).Count(&count)
	if count != 1 {
		t.Errorf("theme rows = %d, want 1", count)
	}
}

func TestSetPreferences(t *testing.T) {
	s := openTestStore(t, 10)
	err := s.SetPreferences(map[string]string{
		PrefDefaultTicker: "NVDA",
		PrefShowMA50:      "0",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetPreferences(map[string]string{PrefShowMA50: "1"}); err != nil {
		t.Fatal(err)
	}
	prefs, err := s.Preferences()
	if err != nil {
		t.Fatal(err)
	}
	if prefs[PrefDefaultTicker] != "NVDA" || prefs[PrefShowMA50] != "1" {
		t.Errorf("prefs = %v", prefs)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.db")
	s, err := OpenSQLite(path, 5)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddToWatchlist("KO", ""); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(path, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	list, _ := s.Watchlist()
	if got := tickers(list); !equal(got, []string{"KO"}) {
		t.Errorf("watchlist after reopen = %v", got)
	}
}

func TestRecordSearch_ClockFallsBack(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s := openTestStore(t, 2)
	// 01:50 EDT, then 01:10 and 01:20 EST on the night clocks go back.
	clock := []time.Time{
		time.Date(2024, 11, 3, 5, 50, 0, 0, time.UTC).In(ny),
		time.Date(2024, 11, 3, 6, 10, 0, 0, time.UTC).In(ny),
		time.Date(2024, 11, 3, 6, 20, 0, 0, time.UTC).In(ny),
	}
	for i, tk := range []string{"OLD", "MID", "NEW"} {
		now := clock[i]
		s.now = func() time.Time { return now }
		if err := s.RecordSearch(tk); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := s.RecentSearches(10)
	if err != nil {
		t.Fatal(err)
	}
	if got := searched(rows); !equal(got, []string{"NEW", "MID"}) {
		t.Errorf("recent = %v, want [NEW MID]", got)
	}
	if !rows[0].SearchedAt.Equal(clock[2]) {
		t.Errorf("searched_at = %s", rows[0].SearchedAt)
	}
}
