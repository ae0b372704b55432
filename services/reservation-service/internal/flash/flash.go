// Package flash stashes user-facing messages and submitted form values across
// one redirect. Whatever is stashed is handed out exactly once.
package flash

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelDanger  = "danger"
)

type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type Entry struct {
	Messages []Message        `json:"messages,omitempty"`
	Form     map[string]string `json:"form,omitempty"`
}

func (e Entry) Empty() bool { return len(e.Messages) == 0 && len(e.Form) == 0 }

// Store keeps entries by an opaque key. Take removes the entry it returns.
type Store interface {
	Put(ctx context.Context, key string, e Entry) error
	Take(ctx context.Context, key string) (Entry, bool, error)
}

const CookieName = "flash_id"

// Flasher binds a Store to a per-browser cookie.
type Flasher struct {
	store  Store
	logger *slog.Logger
	secure bool
}

func New(store Store, logger *slog.Logger, secureCookie bool) *Flasher {
	return &Flasher{store: store, logger: logger, secure: secureCookie}
}

// Set stashes e for the browser behind r, replacing anything stashed before.
// Empty entries are dropped.
func (f *Flasher) Set(w http.ResponseWriter, r *http.Request, e Entry) {
	if e.Empty() {
		return
	}
	key := cookieKey(r)
	if key == "" {
		key = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    key,
			Path:     "/",
			HttpOnly: true,
			Secure:   f.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	if err := f.store.Put(r.Context(), key, e); err != nil {
		f.logger.WarnContext(r.Context(), "flash stash failed", "err", err)
	}
}

// Pop returns and clears the stashed entry. A store failure yields an empty
// entry: losing a message never fails the page.
func (f *Flasher) Pop(r *http.Request) Entry {
	key := cookieKey(r)
	if key == "" {
		return Entry{}
	}
	e, ok, err := f.store.Take(r.Context(), key)
	if err != nil {
		f.logger.WarnContext(r.Context(), "flash read failed", "err", err)
		return Entry{}
	}
	if !ok {
		return Entry{}
	}
	return e
}

func cookieKey(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

var errEmptyKey = errors.New("flash: empty key")

const defaultTTL = 10 * time.Minute
