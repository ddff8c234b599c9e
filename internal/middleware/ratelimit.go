package middleware

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/config"
	"github.com/iliyamo/clinic-patients/internal/ratelimit"
)

const (
	msgLoginRateLimited = "Demasiados intentos de inicio de sesión. Intenta de nuevo en 15 minutos."
	msgRateLimited      = "Demasiadas solicitudes. Intenta de nuevo más tarde."
)

// LoginLimiter counts every request per client address in a fixed
// window.  Once the count passes cfg.Max the request is refused before
// any credential check runs.  If the store fails the request is let
// through and a warning logged.
func LoginLimiter(cfg config.LoginRateLimitConfig, store ratelimit.Store, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			hit, err := store.Hit(c.Request().Context(), "login:"+ip, cfg.Window)
			if err != nil {
				log.Warn().Err(err).Str("remote_ip", ip).Msg("login rate limiter unavailable, allowing request")
				return next(c)
			}

			remaining := cfg.Max - hit.Count
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if hit.Count > cfg.Max {
				secs := int(math.Ceil(time.Until(hit.ResetAt).Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				log.Info().Str("remote_ip", ip).Int("attempts", hit.Count).Msg("login rate limit exceeded")
				return apperror.TooManyRequests(msgLoginRateLimited)
			}
			return next(c)
		}
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter is a token bucket per client address for general API
// traffic.
type IPRateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewIPRateLimiter(cfg config.APIRateLimitConfig) *IPRateLimiter {
	return &IPRateLimiter{
		rps:      rate.Limit(cfg.RPS),
		burst:    cfg.Burst,
		visitors: make(map[string]*visitor),
	}
}

func (l *IPRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup forgets addresses idle for longer than maxIdle.
func (l *IPRateLimiter) Cleanup(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, v := range l.visitors {
		if time.Since(v.lastSeen) > maxIdle {
			delete(l.visitors, ip)
			n++
		}
	}
	return n
}

// RunJanitor calls Cleanup every interval until ctx is done.
func (l *IPRateLimiter) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Cleanup(maxIdle)
		}
	}
}

// Middleware returns the limiter as Echo middleware.  A zero rate
// disables limiting.
func (l *IPRateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l.rps <= 0 {
			return next
		}
		return func(c echo.Context) error {
			if !l.get(c.RealIP()).Allow() {
				c.Response().Header().Set("Retry-After", "1")
				return apperror.TooManyRequests(msgRateLimited)
			}
			return next(c)
		}
	}
}
