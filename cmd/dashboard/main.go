package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockanalyzer/internal/config"
	"stockanalyzer/internal/dashboard"
	"stockanalyzer/internal/finance"
	"stockanalyzer/internal/openai"
	"stockanalyzer/internal/server"
	"stockanalyzer/internal/storage"
	"stockanalyzer/internal/telegram"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "configs/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The dashboard keeps working without the database.
	var prefs dashboard.Preferences
	store, err := storage.OpenSQLite(cfg.Database.Path, cfg.Database.RecentCap)
	if err != nil {
		log.Printf("db: %v; watchlist and recent searches are disabled", err)
	} else {
		defer store.Close()
		log.Printf("db: opened sqlite at %s", cfg.Database.Path)
		prefs = store
	}

	opts := finance.Options{
		Retries: cfg.Market.Retries,
		Backoff: time.Duration(cfg.Market.BackoffMillis) * time.Millisecond,
		Timeout: time.Duration(cfg.Market.TimeoutSeconds) * time.Second,
		Proxy:   cfg.Market.Proxy,
	}
	if cfg.Market.QuoteSnapshot {
		opts.Quotes = finance.EquityQuotes{}
	}
	market := finance.NewClient(opts)

	var digest dashboard.Digester
	if cfg.OpenAI.APIKey != "" {
		digest = openai.NewSummarizer(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		log.Printf("openai: summary digests enabled")
	}

	svc := dashboard.NewService(market, prefs, digest, dashboard.Options{
		DefaultTicker:    cfg.Dashboard.DefaultTicker,
		DefaultPeriod:    cfg.Dashboard.DefaultPeriod,
		Theme:            cfg.Dashboard.Theme,
		DefaultWatchlist: cfg.Dashboard.DefaultWatchlist,
		PopularTickers:   cfg.Dashboard.PopularTickers,
		RecentShown:      cfg.Dashboard.RecentShown,
		ChartCacheTTL:    time.Duration(cfg.Dashboard.ChartCacheSecs) * time.Second,
	})

	var webhook http.HandlerFunc
	if cfg.Telegram.BotToken != "" {
		tg, err := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.WebhookPublicURL, svc)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("telegram: bot initialized")
		if tg.UsesWebhook() {
			webhook = tg.WebhookHandler
		} else {
			go tg.Run(ctx)
		}
	}

	mux := server.NewHTTPMux(dashboard.NewHandler(svc), telegram.WebhookPath, webhook)
	if err := server.ListenAndServe(ctx, ":"+cfg.Port, mux); err != nil {
		log.Println("server error:", err)
		os.Exit(1)
	}
}
