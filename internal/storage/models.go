package storage

import "time"

// WatchlistEntry is a ticker the user chose to keep an eye on.
type WatchlistEntry struct {
	ID      uint      `gorm:"primaryKey"`
	Ticker  string    `gorm:"size:16;not null;uniqueIndex"`
	Name    string    `gorm:"size:128"`
	AddedAt time.Time `gorm:"not null"`
}

func (WatchlistEntry) TableName() string { return "watchlists" }

// RecentSearch is one successful ticker lookup.
type RecentSearch struct {
	ID         uint      `gorm:"primaryKey"`
	Ticker     string    `gorm:"size:16;not null;index"`
	SearchedAt time.Time `gorm:"not null;index"`
}

func (RecentSearch) TableName() string { return "search_history" }

// UserPreference stores a single named setting.
type UserPreference struct {
	Name      string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (UserPreference) TableName() string { return "user_preferences" }

// Preference names understood by the dashboard.
const (
	PrefTheme         = "theme"
	PrefDefaultTicker = "default_ticker"
	PrefDefaultPeriod = "default_period"
	PrefShowMA50      = "show_ma50"
	PrefShowMA200     = "show_ma200"
)
