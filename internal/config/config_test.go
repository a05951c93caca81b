package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := chdirTemp(t)
	for _, k := range []string{"PORT", "DB_PATH", "RECENT_SEARCH_CAP", "MARKET_RETRIES", "OPENAI_API_KEY", "TELEGRAM_BOT_TOKEN"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8501" || cfg.Database.Path != "data/stockanalyzer.db" || cfg.Database.RecentCap != 50 {
		t.Errorf("defaults = %+v", cfg)
	}
	if len(cfg.Dashboard.DefaultWatchlist) != 5 || cfg.Dashboard.DefaultPeriod != "1 Year" {
		t.Errorf("dashboard defaults = %+v", cfg.Dashboard)
	}
	if !cfg.Market.QuoteSnapshot || cfg.Market.Retries != 2 {
		t.Errorf("market defaults = %+v", cfg.Market)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "config.yaml")
	yml := `
port: "9000"
database:
  path: /tmp/x.db
  recent_cap: 10
market:
  quote_snapshot: false
dashboard:
  theme: dark
  default_watchlist: [KO, PEP]
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("MARKET_RETRIES", "")
	t.Setenv("RECENT_SEARCH_CAP", "25")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" || cfg.Database.Path != "/tmp/x.db" {
		t.Errorf("file values = %+v", cfg)
	}
	if cfg.Database.RecentCap != 25 {
		t.Errorf("env override recent cap = %d", cfg.Database.RecentCap)
	}
	if cfg.Dashboard.Theme != "dark" || len(cfg.Dashboard.DefaultWatchlist) != 2 || cfg.Market.QuoteSnapshot {
		t.Errorf("dashboard = %+v market = %+v", cfg.Dashboard, cfg.Market)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MARKET_RETRIES=4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MARKET_RETRIES", "")
	os.Unsetenv("MARKET_RETRIES")

	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Market.Retries != 4 {
		t.Errorf("retries = %d, want value from .env", cfg.Market.Retries)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("RECENT_SEARCH_CAP", "many")
	if _, err := Load(filepath.Join(dir, "none.yaml")); err == nil {
		t.Error("expected error for non-numeric cap")
	}
}

func TestValidate(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("RECENT_SEARCH_CAP", "")
	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Dashboard.Theme = "neon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected theme error")
	}
	cfg.Dashboard.Theme = "light"
	cfg.Port = "http"
	if err := cfg.Validate(); err == nil {
		t.Error("expected port error")
	}
}
