package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/evcraddock/commentbox/internal/user"
)

type userKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user set by RequireAPIKey.
func UserFromContext(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(userKey{}).(user.User)
	return u, ok
}

// UserLookup finds the user an API key belongs to.
type UserLookup interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// RateConfig sets the per-client request rate on API routes.
type RateConfig struct {
	RPS   float64
	Burst int
}

// limiterPool hands out one token bucket per client address.
type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg RateConfig
}

func newLimiterPool(cfg RateConfig) *limiterPool {
	return &limiterPool{m: make(map[string]*rate.Limiter), cfg: cfg}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// RequireAPIKey is middleware that validates Bearer token auth for /api/ routes
// and puts the key's user in the request context. Non-API routes pass through
// untouched. Returns 401 for missing/invalid keys, 429 for clients over the
// rate limit.
func RequireAPIKey(apiKeys *APIKeyStore, users UserLookup, cfg RateConfig, next http.Handler) http.Handler {
	limiter := newLimiterPool(cfg)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		if !limiter.Allow(clientIP(r)) {
			jsonError(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			jsonError(w, "authorization required", http.StatusUnauthorized)
			return
		}

		key := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := apiKeys.Validate(r.Context(), key)
		if err != nil {
			slog.Error("validating api key", "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		if userID == "" {
			jsonError(w, "invalid API key", http.StatusUnauthorized)
			return
		}

		u, err := users.Get(r.Context(), userID)
		if err != nil {
			slog.Warn("api key owner missing", "user", userID, "error", err)
			jsonError(w, "invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), *u)))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		slog.Error("encoding error response", "error", err)
	}
}
