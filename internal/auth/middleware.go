// internal/auth/middleware.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"realticket/internal/domain"
)

const (
	HeaderAccount = "X-Account"
	HeaderAPIKey  = "X-API-Key"
)

type callerKey struct{}

// WithCaller attaches the authenticated account to ctx.
func WithCaller(ctx context.Context, caller domain.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller returns the authenticated account, if any.
func Caller(ctx context.Context) (domain.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(domain.Address)
	return caller, ok && !caller.IsZero()
}

// Authenticate rejects requests whose account and API key do not match the keyring.
func Authenticate(keys *Keyring) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := domain.Address(r.Header.Get(HeaderAccount))
			secret := r.Header.Get(HeaderAPIKey)
			if account.IsZero() || secret == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing account or api key")
				return
			}
			if err := keys.Verify(account, secret); err != nil {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), account)))
		})
	}
}

// RateLimiter hands out one token bucket per account.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[domain.Address]*rate.Limiter
}

// NewRateLimiter allows perSecond requests per account with a burst of twice that.
func NewRateLimiter(perSecond float64) *RateLimiter {
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[domain.Address]*rate.Limiter),
	}
}

// Allow reports whether account may make a request now.
func (l *RateLimiter) Allow(account domain.Address) bool {
	l.mu.Lock()
	lim, ok := l.limiters[account]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[account] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Middleware limits authenticated callers. It must run after Authenticate.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := Caller(r.Context())
		if !l.Allow(caller) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
