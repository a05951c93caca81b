package telegram

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stockanalyzer/internal/dashboard"
)

// WebhookPath is where the webhook handler is mounted.
const WebhookPath = "/telegram/webhook"

type Bot struct {
	api     *tgbotapi.BotAPI
	h       *Handlers
	webhook bool
}

// NewBot connects to the Bot API. With a public URL updates arrive on the
// webhook; otherwise Run long-polls.
func NewBot(token, webhookURL string, svc *dashboard.Service) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	if webhookURL != "" {
		webhook, err := tgbotapi.NewWebhook(webhookURL + WebhookPath)
		if err != nil {
			return nil, err
		}
		if _, err := api.Request(webhook); err != nil {
			return nil, err
		}
		log.Printf("telegram: webhook set to %s%s", webhookURL, WebhookPath)
	} else {
		if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return nil, err
		}
		log.Printf("telegram: no webhook url, using long polling")
	}

	return &Bot{api: api, h: NewHandlers(api, svc), webhook: webhookURL != ""}, nil
}

// UsesWebhook reports whether updates arrive through WebhookHandler.
func (b *Bot) UsesWebhook() bool { return b.webhook }

// Run long-polls for updates until ctx is done. It returns at once in webhook
// mode.
func (b *Bot) Run(ctx context.Context) {
	if b.webhook {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message != nil {
				b.h.HandleMessage(ctx, update.Message)
			}
		}
	}
}

// Webhook HTTP handler (registered at WebhookPath)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message == nil || update.Message.Chat == nil {
		log.Printf("webhook: update without a chat message received")
		w.WriteHeader(http.StatusOK)
		return
	}
	log.Printf("webhook: chat_id=%d text=%q", update.Message.Chat.ID, update.Message.Text)
	go b.h.HandleMessage(context.Background(), update.Message)
	w.WriteHeader(http.StatusOK)
}
