// Package session carries the signed-in identity in an HttpOnly cookie holding
// an HS256 token.
package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/md-rashed-zaman/courtreserve/libs/auth"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
)

const CookieName = "session"

const LoginPath = "/login"

var ErrNoSession = errors.New("no session")

type ctxKey struct{}

func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached by Manager.Attach, or the zero
// (anonymous) identity.
func FromContext(ctx context.Context) model.Identity {
	id, _ := ctx.Value(ctxKey{}).(model.Identity)
	return id
}

type Manager struct {
	secret string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration, secureCookie bool) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{secret: secret, ttl: ttl, secure: secureCookie, now: time.Now}
}

// Issue signs a token for user and sets it as the session cookie.
func (m *Manager) Issue(w http.ResponseWriter, user model.User) error {
	now := m.now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:      user.ID,
		Username: user.Username,
		Role:     user.Role,
		Iat:      now.Unix(),
		Exp:      now.Add(m.ttl).Unix(),
	}, m.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Identify verifies the session cookie of r.
func (m *Manager) Identify(r *http.Request) (model.Identity, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return model.Identity{}, ErrNoSession
	}
	claims, err := auth.ParseAndVerifyHS256(c.Value, m.secret, m.now())
	if err != nil {
		return model.Identity{}, err
	}
	id := model.Identity{UserID: claims.Sub, Username: claims.Username, Role: claims.Role}
	if id.Anonymous() {
		return model.Identity{}, auth.ErrInvalidToken
	}
	return id, nil
}

// Attach puts the identity of a valid session on the request context. Requests
// without one pass through anonymously.
func (m *Manager) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.Identify(r)
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				m.Clear(w)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Require redirects anonymous requests to the login page, remembering where
// they were headed. It expects Attach to have run.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()).Anonymous() {
			http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SafeNext keeps post-login redirects on this site.
func SafeNext(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" || u.IsAbs() || u.Host != "" || len(u.Path) == 0 || u.Path[0] != '/' || (len(u.Path) > 1 && u.Path[1] == '/') {
		return "/"
	}
	return u.RequestURI()
}
