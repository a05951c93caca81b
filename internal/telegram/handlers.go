package telegram

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stockanalyzer/internal/dashboard"
)

var (
	// /stock SYMBOL [1m|3m|6m|1y|2y|5y]
	reStock = regexp.MustCompile(`^/stock(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)(?:\s+(1m|3m|6m|1y|2y|5y))?$`)
	// /info, /watch and /unwatch take one symbol
	reSymbol = regexp.MustCompile(`^/(info|watch|unwatch)(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)$`)
	reList   = regexp.MustCompile(`^/(watchlist|recent)(?:@[\w_]+)?$`)
	reTheme  = regexp.MustCompile(`^/theme(?:@[\w_]+)?\s+(light|dark)$`)
	reHelp   = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// command is a parsed chat command.
type command struct {
	name   string
	symbol string
	arg    string
}

func parseCommand(text string) (command, bool) {
	txt := strings.TrimSpace(text)
	switch {
	case reStock.MatchString(txt):
		g := reStock.FindStringSubmatch(txt)
		return command{name: "stock", symbol: strings.ToUpper(g[1]), arg: g[2]}, true
	case reSymbol.MatchString(txt):
		g := reSymbol.FindStringSubmatch(txt)
		return command{name: g[1], symbol: strings.ToUpper(g[2])}, true
	case reList.MatchString(txt):
		return command{name: reList.FindStringSubmatch(txt)[1]}, true
	case reTheme.MatchString(txt):
		return command{name: "theme", arg: reTheme.FindStringSubmatch(txt)[1]}, true
	case reHelp.MatchString(txt):
		return command{name: "help"}, true
	}
	return command{}, false
}

// Sender delivers messages to a chat.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Handlers struct {
	out Sender
	svc *dashboard.Service
}

func NewHandlers(out Sender, svc *dashboard.Service) *Handlers {
	return &Handlers{out: out, svc: svc}
}

func (h *Handlers) HandleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	cmd, ok := parseCommand(m.Text)
	if !ok {
		return
	}
	chatID := m.Chat.ID
	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	id := dashboard.ChatSessionID(chatID)
	var notices []dashboard.Notice
	h.svc.Do(id, func(s *dashboard.Session) error {
		defer func() { notices = s.TakeNotices() }()
		switch cmd.name {
		case "stock":
			h.handleStock(ctx, chatID, s, cmd)
		case "info":
			h.handleInfo(ctx, chatID, s, cmd.symbol)
		case "watch":
			h.svc.AddToWatchlist(ctx, s, cmd.symbol)
		case "unwatch":
			h.svc.RemoveFromWatchlist(s, cmd.symbol)
		case "watchlist":
			h.handleWatchlist(chatID, s)
		case "recent":
			h.handleRecent(chatID, s)
		case "theme":
			settings := s.Settings()
			settings.Theme = cmd.arg
			if h.svc.UpdateSettings(s, settings) == nil {
				h.reply(chatID, "Charts will use the "+cmd.arg+" theme.")
			}
		case "help":
			h.handleHelp(chatID)
		}
		return nil
	})
	for _, n := range notices {
		h.reply(chatID, n.Text)
	}
}

func (h *Handlers) handleStock(ctx context.Context, chatID int64, s *dashboard.Session, cmd command) {
	if cmd.arg != "" {
		settings := s.Settings()
		settings.Period = cmd.arg
		settings.Start, settings.End = "", ""
		if h.svc.UpdateSettings(s, settings) != nil {
			return
		}
	}
	v, err := h.svc.Lookup(ctx, s, cmd.symbol)
	if err != nil {
		return
	}
	img, err := h.svc.PriceChartPNG(ctx, s)
	if err != nil {
		log.Printf("telegram: chart %s: %v", cmd.symbol, err)
		h.reply(chatID, v.Caption())
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: v.Ticker + ".png", Bytes: img})
	photo.Caption = v.Caption()
	h.send(photo)
}

func (h *Handlers) handleInfo(ctx context.Context, chatID int64, s *dashboard.Session, symbol string) {
	v, err := h.svc.Lookup(ctx, s, symbol)
	if err != nil {
		return
	}
	h.reply(chatID, v.Overview())
}

func (h *Handlers) handleWatchlist(chatID int64, s *dashboard.Session) {
	list := h.svc.Watchlist(s)
	if len(list) == 0 {
		h.reply(chatID, "Your watchlist is empty. Add one with /watch SYMBOL")
		return
	}
	var b strings.Builder
	b.WriteString("Watchlist\n")
	for _, w := range list {
		b.WriteString("\n" + w.Ticker)
		if w.Name != "" {
			b.WriteString(" • " + w.Name)
		}
		if !w.AddedAt.IsZero() {
			b.WriteString(" (added " + humanize.Time(w.AddedAt) + ")")
		}
	}
	h.reply(chatID, b.String())
}

func (h *Handlers) handleRecent(chatID int64, s *dashboard.Session) {
	recent := h.svc.RecentTickers(s, 0)
	if len(recent) == 0 {
		h.reply(chatID, "Your recent searches will appear here.")
		return
	}
	h.reply(chatID, fmt.Sprintf("Recent searches: %s", strings.Join(recent, ", ")))
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /stock SYMBOL [1m|3m|6m|1y|2y|5y] - Close price line with volume and your moving averages (default: your current period)\n" +
		"- /info SYMBOL - Company overview\n" +
		"- /watch SYMBOL - Add to your watchlist\n" +
		"- /unwatch SYMBOL - Remove from your watchlist\n" +
		"- /watchlist - Show your watchlist\n" +
		"- /recent - Show your recent searches\n" +
		"- /theme light|dark - Chart theme\n" +
		"\nData provided by Yahoo Finance. For informational purposes only, not investment advice."
	h.reply(chatID, help)
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.out.Send(c); err != nil {
		log.Printf("telegram: send: %v", err)
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}
