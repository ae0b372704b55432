package handlers

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/courtreserve/libs/httpx"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/booking"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/flash"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/policy"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/session"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// Booker is the booking workflow the pages drive.
type Booker interface {
	Submit(ctx context.Context, who model.Identity, sub booking.Submission) booking.Outcome
	Availability(ctx context.Context, date time.Time, duration int) (booking.DayAvailability, error)
}

type WeekReader interface {
	ListRange(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
}

type Users interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	Create(ctx context.Context, user model.User) error
}

type Auditor interface {
	Record(ctx context.Context, eventType string, actorID string, metadata map[string]any) error
	ListRecent(ctx context.Context, limit int) ([]storage.AuditEvent, error)
}

type Deps struct {
	Booking  Booker
	Week     WeekReader
	Users    Users
	Audit    Auditor
	Sessions *session.Manager
	Flash    *flash.Flasher
	Logger   *slog.Logger
	// LoginLimiter, when set, wraps POST /login.
	LoginLimiter httpx.Middleware
	Now          func() time.Time
}

type Handler struct {
	Deps
	pages map[string]*template.Template
}

func New(d Deps) (*Handler, error) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.LoginLimiter == nil {
		d.LoginLimiter = func(next http.Handler) http.Handler { return next }
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Handler{Deps: d, pages: pages}, nil
}

// Routes registers every page and API endpoint on mux. The returned handler
// attaches the session identity and must wrap mux.
func (h *Handler) Routes(mux *http.ServeMux) http.Handler {
	mux.Handle("GET /{$}", session.Require(http.HandlerFunc(h.Home)))
	mux.Handle("GET /reserve", session.Require(http.HandlerFunc(h.ReserveForm)))
	mux.Handle("POST /reserve", session.Require(http.HandlerFunc(h.Reserve)))

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.Handle("POST /login", h.LoginLimiter(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /logout", h.Logout)

	mux.Handle("GET /admin/register", session.Require(http.HandlerFunc(h.RegisterForm)))
	mux.Handle("POST /admin/register", session.Require(http.HandlerFunc(h.Register)))

	mux.HandleFunc("GET /api/v1/slots", h.Slots)

	return h.Sessions.Attach(mux)
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"levelClass": func(level string) string { return "flash-" + level },
	}
	pages := map[string]*template.Template{}
	for _, name := range []string{"week.html", "reserve.html", "login.html", "register.html"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

type page struct {
	Title       string
	Identity    model.Identity
	CanBook     bool
	CanRegister bool
	Messages    []flash.Message
	Body        any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	p.Identity = session.FromContext(r.Context())
	p.CanBook = policy.CanBook(p.Identity)
	p.CanRegister = policy.CanRegisterUsers(p.Identity)

	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout.html", p); err != nil {
		h.Logger.ErrorContext(r.Context(), "render failed",
			"template", name,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"err", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) audit(r *http.Request, eventType, actorID string, metadata map[string]any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), eventType, actorID, metadata); err != nil {
		h.Logger.WarnContext(r.Context(), "audit record failed", "event_type", eventType, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
