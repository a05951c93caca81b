package dashboard

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockanalyzer/internal/finance"
	"stockanalyzer/internal/indicator"
)

//go:embed templates/*.html
var templateFS embed.FS

const cookieName = "sid"

// Handler serves the dashboard pages.
type Handler struct {
	svc  *Service
	tmpl *template.Template
	mux  *http.ServeMux
}

func NewHandler(svc *Service) *Handler {
	funcs := template.FuncMap{
		"money":     money,
		"signed":    signedMoney,
		"pct":       pct,
		"signedPct": signedPct,
		"volume":    volume,
		"marketCap": marketCap,
		"ratio":     ratio,
		"yield":     yield,
		"ago":       ago,
		"date":      func(t time.Time) string { return t.Format(time.DateOnly) },
		"up":        func(v float64) bool { return v >= 0 },
	}
	h := &Handler{
		svc:  svc,
		tmpl: template.Must(template.New("index.html").Funcs(funcs).ParseFS(templateFS, "templates/index.html")),
		mux:  http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /{$}", h.index)
	h.mux.HandleFunc("GET /figure.json", h.figure)
	h.mux.HandleFunc("GET /chart.png", h.pricePNG)
	h.mux.HandleFunc("GET /returns.png", h.returnsPNG)
	h.mux.HandleFunc("POST /ticker", h.lookup)
	h.mux.HandleFunc("POST /refresh", h.refresh)
	h.mux.HandleFunc("POST /settings", h.settings)
	h.mux.HandleFunc("POST /watchlist/add", h.watch)
	h.mux.HandleFunc("POST /watchlist/remove", h.unwatch)
	h.mux.HandleFunc("POST /preferences", h.preferences)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// sessionID reads the session cookie, issuing a new one when it is missing
// or malformed.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func backHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, finance.ErrInvalidInput), errors.Is(err, indicator.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, indicator.ErrNotEnoughData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, finance.ErrLookup):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type page struct {
	View           *View
	FigureJSON     template.JS
	ReturnsJSON    template.JS
	Settings       Settings
	Periods        []finance.Period
	Watchlist      []WatchItem
	Recent         []string
	Choices        []string
	Notices        []Notice
	Ticker         string
	Theme          string
	StorageEnabled bool
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	var p page
	h.svc.Do(id, func(s *Session) error {
		v, err := h.svc.Current(r.Context(), s)
		if err == nil {
			p.View = v
			if b, err := json.Marshal(v.Figure); err == nil {
				p.FigureJSON = template.JS(b)
			}
			if v.Returns != nil {
				if b, err := json.Marshal(v.Returns); err == nil {
					p.ReturnsJSON = template.JS(b)
				}
			}
		}
		p.Settings = s.Settings()
		p.Periods = finance.Periods
		p.Watchlist = h.svc.Watchlist(s)
		p.Recent = h.svc.RecentTickers(s, 0)
		p.Choices = h.svc.Choices(s)
		p.Ticker = s.Ticker
		p.Theme = string(s.Theme)
		p.StorageEnabled = s.StorageEnabled
		p.Notices = s.TakeNotices()
		return nil
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, p); err != nil {
		log.Printf("http: render index: %v", err)
	}
}

func (h *Handler) figure(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	var v *View
	err := h.svc.Do(id, func(s *Session) error {
		var err error
		v, err = h.svc.Current(r.Context(), s)
		return err
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v.Figure)
}

func (h *Handler) png(w http.ResponseWriter, r *http.Request, render func(*Session) ([]byte, error)) {
	id := sessionID(w, r)
	var img []byte
	err := h.svc.Do(id, func(s *Session) error {
		var err error
		img, err = render(s)
		return err
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}

func (h *Handler) pricePNG(w http.ResponseWriter, r *http.Request) {
	h.png(w, r, func(s *Session) ([]byte, error) { return h.svc.PriceChartPNG(r.Context(), s) })
}

func (h *Handler) returnsPNG(w http.ResponseWriter, r *http.Request) {
	h.png(w, r, func(s *Session) ([]byte, error) { return h.svc.ReturnsChartPNG(r.Context(), s) })
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	ticker := r.FormValue("ticker")
	if ticker == "" {
		ticker = r.FormValue("choice")
	}
	h.svc.Do(id, func(s *Session) error {
		_, err := h.svc.Lookup(r.Context(), s, ticker)
		return err
	})
	backHome(w, r)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	h.svc.Do(id, func(s *Session) error {
		_, err := h.svc.Refresh(r.Context(), s)
		return err
	})
	backHome(w, r)
}

func checked(r *http.Request, name string) bool {
	v := r.FormValue(name)
	return v == "on" || v == "1" || v == "true"
}

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	h.svc.Do(id, func(s *Session) error {
		in := Settings{
			Period:    r.FormValue("period"),
			Start:     r.FormValue("start"),
			End:       r.FormValue("end"),
			ShowMA50:  checked(r, "ma50"),
			ShowMA200: checked(r, "ma200"),
			Theme:     r.FormValue("theme"),
		}
		if v := strings.TrimSpace(r.FormValue("extra_ma")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				s.notify("error", "moving average window must be a whole number")
				return err
			}
			in.ExtraMA = n
		}
		return h.svc.UpdateSettings(s, in)
	})
	backHome(w, r)
}

func (h *Handler) watch(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	h.svc.Do(id, func(s *Session) error {
		return h.svc.AddToWatchlist(r.Context(), s, r.FormValue("ticker"))
	})
	backHome(w, r)
}

func (h *Handler) unwatch(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	h.svc.Do(id, func(s *Session) error {
		return h.svc.RemoveFromWatchlist(s, r.FormValue("ticker"))
	})
	backHome(w, r)
}

func (h *Handler) preferences(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	h.svc.Do(id, func(s *Session) error {
		return h.svc.SavePreferences(s, Prefs{
			Theme:         r.FormValue("theme"),
			DefaultTicker: r.FormValue("default_ticker"),
			DefaultPeriod: r.FormValue("default_period"),
			ShowMA50:      checked(r, "ma50"),
			ShowMA200:     checked(r, "ma200"),
		})
	})
	backHome(w, r)
}
