package httpx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter decides whether one more request under key fits the current
// window. retryAfter is how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// RateLimitPolicy configures RateLimit.
type RateLimitPolicy struct {
	Limiter Limiter
	// FailOpen lets requests through when the limiter errors; otherwise
	// they get a 503.
	FailOpen bool
	// TrustForwardedFor keys clients on X-Forwarded-For instead of the
	// socket peer. Enable it only behind a proxy that appends the header.
	TrustForwardedFor bool
}

// RateLimit answers 429 once a client exceeds the limiter's budget for a path.
func RateLimit(p RateLimitPolicy, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.URL.Path + ":" + ClientIP(r, p.TrustForwardedFor)
			ok, retryAfter, err := p.Limiter.Allow(r.Context(), key)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter error", "path", r.URL.Path, "err", err)
				if p.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}
			if !ok {
				w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
				http.Error(w, "too many attempts, please wait", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MemoryLimiter is a per-process fixed-window limiter, used when no Redis is
// configured.
type MemoryLimiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]fixedWindow
	sweepAt time.Time
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	limit, window = limiterDefaults(limit, window)
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: map[string]fixedWindow{},
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !now.Before(m.sweepAt) {
		for k, w := range m.windows {
			if !now.Before(w.resetAt) {
				delete(m.windows, k)
			}
		}
		m.sweepAt = now.Add(m.window)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = fixedWindow{resetAt: now.Add(m.window)}
	}
	w.count++
	m.windows[key] = w
	return w.count <= m.limit, w.resetAt.Sub(now), nil
}

func limiterDefaults(limit int, window time.Duration) (int, time.Duration) {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return limit, window
}

// retryAfterSeconds rounds d up to whole seconds, at least one.
func retryAfterSeconds(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// ClientIP returns the socket peer of r. With trustForwarded it returns the
// last X-Forwarded-For entry instead, the one appended by our own proxy;
// earlier entries are whatever the client sent.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if fwd := r.Header.Values("X-Forwarded-For"); len(fwd) > 0 {
			last := fwd[len(fwd)-1]
			if i := strings.LastIndexByte(last, ','); i >= 0 {
				last = last[i+1:]
			}
			if ip := strings.TrimSpace(last); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
