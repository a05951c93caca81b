package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port     string `yaml:"port"`
	Database struct {
		Path      string `yaml:"path"`
		RecentCap int    `yaml:"recent_cap"`
	} `yaml:"database"`
	Market struct {
		Retries        int    `yaml:"retries"`
		BackoffMillis  int    `yaml:"backoff_ms"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Proxy          string `yaml:"proxy"`
		QuoteSnapshot  bool   `yaml:"quote_snapshot"`
	} `yaml:"market"`
	Dashboard struct {
		DefaultTicker    string   `yaml:"default_ticker"`
		DefaultPeriod    string   `yaml:"default_period"`
		Theme            string   `yaml:"theme"`
		DefaultWatchlist []string `yaml:"default_watchlist"`
		PopularTickers   []string `yaml:"popular_tickers"`
		RecentShown      int      `yaml:"recent_shown"`
		ChartCacheSecs   int      `yaml:"chart_cache_seconds"`
	} `yaml:"dashboard"`
	Telegram struct {
		BotToken         string `yaml:"bot_token"`
		WebhookPublicURL string `yaml:"webhook_public_url"`
	} `yaml:"telegram"`
	OpenAI struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
}

// Load reads .env (if present), then the YAML file at path (if present), then
// applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := &Config{}
	cfg.Market.Retries = 2
	cfg.Market.QuoteSnapshot = true
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RECENT_SEARCH_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RECENT_SEARCH_CAP: %w", err)
		}
		cfg.Database.RecentCap = n
	}
	if v := os.Getenv("MARKET_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MARKET_RETRIES: %w", err)
		}
		cfg.Market.Retries = n
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Market.Proxy = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("WEBHOOK_PUBLIC_URL"); v != "" {
		cfg.Telegram.WebhookPublicURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}

	// Defaults
	if cfg.Port == "" {
		cfg.Port = "8501"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/stockanalyzer.db"
	}
	if cfg.Database.RecentCap == 0 {
		cfg.Database.RecentCap = 50
	}
	if cfg.Market.BackoffMillis == 0 {
		cfg.Market.BackoffMillis = 300
	}
	if cfg.Market.TimeoutSeconds == 0 {
		cfg.Market.TimeoutSeconds = 20
	}
	if cfg.Dashboard.DefaultTicker == "" {
		cfg.Dashboard.DefaultTicker = "AAPL"
	}
	if cfg.Dashboard.DefaultPeriod == "" {
		cfg.Dashboard.DefaultPeriod = "1 Year"
	}
	if cfg.Dashboard.Theme == "" {
		cfg.Dashboard.Theme = "light"
	}
	if cfg.Dashboard.DefaultWatchlist == nil {
		cfg.Dashboard.DefaultWatchlist = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META"}
	}
	if cfg.Dashboard.PopularTickers == nil {
		cfg.Dashboard.PopularTickers = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA",
			"JPM", "DIS", "NFLX", "INTC", "AMD", "BA", "KO", "PEP"}
	}
	if cfg.Dashboard.RecentShown == 0 {
		cfg.Dashboard.RecentShown = 6
	}
	if cfg.Dashboard.ChartCacheSecs == 0 {
		cfg.Dashboard.ChartCacheSecs = 60
	}
	return cfg, nil
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port %q is not a number", c.Port)
	}
	if c.Database.RecentCap < 1 {
		return fmt.Errorf("database.recent_cap must be positive")
	}
	if c.Market.Retries < 0 {
		return fmt.Errorf("market.retries must not be negative")
	}
	if c.Dashboard.RecentShown < 1 {
		return fmt.Errorf("dashboard.recent_shown must be positive")
	}
	switch strings.ToLower(c.Dashboard.Theme) {
	case "light", "dark":
	default:
		return fmt.Errorf("dashboard.theme must be light or dark, got %q", c.Dashboard.Theme)
	}
	return nil
}
