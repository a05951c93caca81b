package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrStorage wraps every failure of the underlying database.
	ErrStorage = errors.New("storage failure")
	// ErrEmptyTicker is returned when a blank ticker reaches the store.
	ErrEmptyTicker = errors.New("empty ticker")
)

// DefaultRecentCap bounds the search history when no cap is configured.
const DefaultRecentCap = 50

// Store persists the watchlist, the recent searches and user preferences.
type Store struct {
	db        *gorm.DB
	recentCap int
	now       func() time.Time
}

// NewStore wraps an open gorm handle and ensures the schema exists.
func NewStore(db *gorm.DB, recentCap int) (*Store, error) {
	if recentCap <= 0 {
		recentCap = DefaultRecentCap
	}
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db, recentCap: recentCap, now: time.Now}, nil
}

// RecentCap reports how many searches are retained.
func (s *Store) RecentCap() int { return s.recentCap }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return sqlDB.Close()
}

func normalize(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", ErrEmptyTicker
	}
	return t, nil
}

// AddToWatchlist inserts ticker unless it is already present. The returned
// flag is false when the ticker was already on the list.
func (s *Store) AddToWatchlist(ticker, name string) (bool, error) {
	t, err := normalize(ticker)
	if err != nil {
		return false, err
	}
	entry := WatchlistEntry{Ticker: t, Name: strings.TrimSpace(name), AddedAt: s.now().UTC()}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}},
		DoNothing: true,
	}).Create(&entry)
	if res.Error != nil {
		return false, fmt.Errorf("%w: add %s to watchlist: %w", ErrStorage, t, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RemoveFromWatchlist deletes ticker. Removing an absent ticker is not an error.
func (s *Store) RemoveFromWatchlist(ticker string) (bool, error) {
	t, err := normalize(ticker)
	if err != nil {
		return false, err
	}
	res := s.db.Where("ticker = ?", t).Delete(&WatchlistEntry{})
	if res.Error != nil {
		return false, fmt.Errorf("%w: remove %s from watchlist: %w", ErrStorage, t, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Watchlist returns all entries in insertion order.
func (s *Store) Watchlist() ([]WatchlistEntry, error) {
	var out []WatchlistEntry
	if err := s.db.Order("id asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list watchlist: %w", ErrStorage, err)
	}
	return out, nil
}

// RecordSearch appends a lookup and trims the history to the configured cap,
// dropping the oldest rows first. Ids grow with insertion, so they order the
// history even when the wall clock goes backwards.
func (s *Store) RecordSearch(ticker string) error {
	t, err := normalize(ticker)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&RecentSearch{Ticker: t, SearchedAt: s.now().UTC()}).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&RecentSearch{}).Count(&count).Error; err != nil {
			return err
		}
		excess := int(count) - s.recentCap
		if excess <= 0 {
			return nil
		}
		var stale []uint
		if err := tx.Model(&RecentSearch{}).
			Order("id asc").
			Limit(excess).
			Pluck("id", &stale).Error; err != nil {
			return err
		}
		return tx.Delete(&RecentSearch{}, stale).Error
	})
	if err != nil {
		return fmt.Errorf("%w: record search %s: %w", ErrStorage, t, err)
	}
	return nil
}

// RecentSearches returns up to limit searches, newest first.
func (s *Store) RecentSearches(limit int) ([]RecentSearch, error) {
	if limit <= 0 {
		return nil, nil
	}
	var out []RecentSearch
	err := s.db.Order("id desc").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list recent searches: %w", ErrStorage, err)
	}
	return out, nil
}

// SetPreference upserts a single named value.
func (s *Store) SetPreference(name, value string) error {
	if err := s.upsertPreference(s.db, name, value); err != nil {
		return fmt.Errorf("%w: set preference %s: %w", ErrStorage, name, err)
	}
	return nil
}

// SetPreferences upserts every pair in one transaction.
func (s *Store) SetPreferences(prefs map[string]string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for name, value := range prefs {
			if err := s.upsertPreference(tx, name, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: set preferences: %w", ErrStorage, err)
	}
	return nil
}

func (s *Store) upsertPreference(db *gorm.DB, name, value string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&UserPreference{Name: name, Value: value, UpdatedAt: s.now().UTC()}).Error
}

// GetPreference reads a named value; ok is false when it was never set.
func (s *Store) GetPreference(name string) (value string, ok bool, err error) {
	var p UserPreference
	err = s.db.Where("name = ?", name).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get preference %s: %w", ErrStorage, name, err)
	}
	return p.Value, true, nil
}

// Preferences returns every stored setting.
func (s *Store) Preferences() (map[string]string, error) {
	var rows []UserPreference
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list preferences: %w", ErrStorage, err)
	}
	out := make(map[string]string, len(rows))
	for _, p := range rows {
		out[p.Name] = p.Value
	}
	return out, nil
}
