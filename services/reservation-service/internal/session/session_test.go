package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
)

func issue(t *testing.T, m *Manager) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := m.Issue(rec, model.User{ID: "u-1", Username: "ana", Role: model.RoleClient}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].HttpOnly {
		t.Fatalf("expected one http-only cookie, got %v", cookies)
	}
	return cookies[0]
}

func TestIssueIdentifyRoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(issue(t, m))

	id, err := m.Identify(r)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if id.UserID != "u-1" || id.Username != "ana" || id.Role != model.RoleClient {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestIdentifyRejectsOtherSecretAndExpiry(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	cookie := issue(t, m)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	if _, err := NewManager("other", time.Hour, false).Identify(r); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := m.Identify(r); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestRequireRedirectsAnonymous(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	h := m.Attach(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(FromContext(r.Context()).Username))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reserve?date=2024-06-03", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/login?next=") {
		t.Fatalf("unexpected location %q", loc)
	}

	r := httptest.NewRequest(http.MethodGet, "/reserve", nil)
	r.AddCookie(issue(t, m))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK || rec.Body.String() != "ana" {
		t.Fatalf("signed-in request should pass, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAttachClearsBadCookie(t *testing.T) {
	m := NewManager("secret", time.Hour, false)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	m.Attach(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, r)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected the bad cookie to be cleared, got %v", cookies)
	}
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                   "/",
		"/reserve?date=x":    "/reserve?date=x",
		"https://evil.test/": "/",
		"//evil.test/path":   "/",
		"relative":           "/",
	}
	for in, want := range cases {
		if got := SafeNext(in); got != want {
			t.Fatalf("SafeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
