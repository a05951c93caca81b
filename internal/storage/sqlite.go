package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens the database file at path, creating its parent directory,
// and returns a Store with the schema migrated.
func OpenSQLite(path string, recentCap int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create data dir: %w", ErrStorage, err)
		}
	}
	sqlDB, err := sql.Open("sqlite3", "file:"+path+"?_fk=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrStorage, err)
	}
	// One writer keeps transactions on the file serialized.
	sqlDB.SetMaxOpenConns(1)

	db, err := gorm.Open(sqlite.New(sqlite.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.New(log.New(os.Stderr, "db: ", log.LstdFlags), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: open gorm: %w", ErrStorage, err)
	}
	s, err := NewStore(db, recentCap)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the watchlist, search history and preference tables.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&WatchlistEntry{}, &RecentSearch{}, &UserPreference{}); err != nil {
		return fmt.Errorf("%w: migrate: %w", ErrStorage, err)
	}
	return nil
}
