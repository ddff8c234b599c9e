package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/config"
	"github.com/iliyamo/clinic-patients/internal/model"
	"github.com/iliyamo/clinic-patients/internal/ratelimit"
	"github.com/iliyamo/clinic-patients/internal/utils"
)

func newCtx(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func assertAppError(t *testing.T, err error, kind apperror.Kind, msg string) {
	t.Helper()
	e, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.Error, got %v", err)
	assert.Equal(t, kind, e.Kind)
	assert.Equal(t, msg, e.Message)
}

func TestAuthenticator(t *testing.T) {
	now := time.Now()
	issuer := utils.NewTokenIssuer("secret", time.Hour).WithClock(func() time.Time { return now })
	tok, err := issuer.Issue(7, "doc@clinica.test", model.RoleDoctor)
	require.NoError(t, err)

	var got Identity
	h := NewAuthenticator(issuer).Wrap(func(c echo.Context, id Identity) error {
		got = id
		return c.NoContent(http.StatusNoContent)
	})

	t.Run("missing header", func(t *testing.T) {
		c, _ := newCtx(http.MethodGet, "/api/pacientes")
		assertAppError(t, h(c), apperror.KindAuthentication, msgNoToken)
	})

	t.Run("not bearer", func(t *testing.T) {
		c, _ := newCtx(http.MethodGet, "/api/pacientes")
		c.Request().Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		assertAppError(t, h(c), apperror.KindAuthentication, msgNoToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		c, _ := newCtx(http.MethodGet, "/api/pacientes")
		c.Request().Header.Set("Authorization", "Bearer not.a.jwt")
		assertAppError(t, h(c), apperror.KindAuthentication, msgTokenInvalid)
	})

	t.Run("valid", func(t *testing.T) {
		c, rec := newCtx(http.MethodGet, "/api/pacientes")
		c.Request().Header.Set("Authorization", "Bearer "+tok.Token)
		require.NoError(t, h(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, Identity{ID: 7, Email: "doc@clinica.test", Role: model.RoleDoctor}, got)
		stored, ok := IdentityFrom(c)
		require.True(t, ok)
		assert.Equal(t, got, stored)
	})

	t.Run("expired", func(t *testing.T) {
		issuer.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
		defer issuer.WithClock(func() time.Time { return now })
		c, _ := newCtx(http.MethodGet, "/api/pacientes")
		c.Request().Header.Set("Authorization", "Bearer "+tok.Token)
		assertAppError(t, h(c), apperror.KindAuthentication, msgTokenExpired)
	})
}

func TestRequireRole(t *testing.T) {
	called := false
	h := RequireRole(model.RoleAdmin, model.RoleDoctor)(func(c echo.Context, id Identity) error {
		called = true
		return nil
	})

	c, _ := newCtx(http.MethodPost, "/api/pacientes")
	err := h(c, Identity{ID: 3, Role: model.RoleReceptionist})
	assertAppError(t, err, apperror.KindAuthorization, "Acceso denegado. Requiere rol: admin o doctor")
	assert.False(t, called)

	err = h(c, Identity{ID: 3})
	assertAppError(t, err, apperror.KindAuthorization, msgRoleUnknown)
	assert.False(t, called)

	err = h(c, Identity{ID: 3, Role: model.Role("superusuario")})
	assertAppError(t, err, apperror.KindAuthorization, msgRoleUnknown)
	assert.False(t, called)

	require.NoError(t, h(c, Identity{ID: 1, Role: model.RoleDoctor}))
	assert.True(t, called)
}

func TestLoginLimiter_SixthAttemptRejected(t *testing.T) {
	cfg := config.LoginRateLimitConfig{Max: 5, Window: 15 * time.Minute}
	calls := 0
	h := LoginLimiter(cfg, ratelimit.NewMemoryStore(), zerolog.Nop())(func(c echo.Context) error {
		calls++
		return c.NoContent(http.StatusUnauthorized)
	})

	for i := 1; i <= 5; i++ {
		c, rec := newCtx(http.MethodPost, "/api/auth/login")
		require.NoError(t, h(c))
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(5-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	c, rec := newCtx(http.MethodPost, "/api/auth/login")
	err := h(c)
	assertAppError(t, err, apperror.KindRateLimit, msgLoginRateLimited)
	assert.Equal(t, 5, calls, "credentials are not checked once limited")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLoginLimiter_KeyedByAddress(t *testing.T) {
	cfg := config.LoginRateLimitConfig{Max: 1, Window: time.Minute}
	h := LoginLimiter(cfg, ratelimit.NewMemoryStore(), zerolog.Nop())(func(c echo.Context) error { return nil })

	c, _ := newCtx(http.MethodPost, "/api/auth/login")
	c.Request().RemoteAddr = "10.0.0.1:1234"
	require.NoError(t, h(c))

	c, _ = newCtx(http.MethodPost, "/api/auth/login")
	c.Request().RemoteAddr = "10.0.0.2:1234"
	require.NoError(t, h(c))

	c, _ = newCtx(http.MethodPost, "/api/auth/login")
	c.Request().RemoteAddr = "10.0.0.1:1234"
	assert.Error(t, h(c))
}

type brokenStore struct{}

func (brokenStore) Hit(context.Context, string, time.Duration) (ratelimit.Hit, error) {
	return ratelimit.Hit{}, errors.New("redis down")
}

func TestLoginLimiter_FailsOpen(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoginRateLimitConfig{Max: 1, Window: time.Minute}
	h := LoginLimiter(cfg, brokenStore{}, zerolog.New(&buf))(func(c echo.Context) error { return nil })

	for i := 0; i < 3; i++ {
		c, _ := newCtx(http.MethodPost, "/api/auth/login")
		require.NoError(t, h(c))
	}
	assert.Contains(t, buf.String(), "login rate limiter unavailable")
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(config.APIRateLimitConfig{RPS: 1, Burst: 2})
	h := l.Middleware()(func(c echo.Context) error { return nil })

	for i := 0; i < 2; i++ {
		c, _ := newCtx(http.MethodGet, "/api/pacientes")
		require.NoError(t, h(c))
	}
	c, rec := newCtx(http.MethodGet, "/api/pacientes")
	assert.Equal(t, apperror.KindRateLimit, apperror.KindOf(h(c)))
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, 0, l.Cleanup(time.Hour))
	assert.Equal(t, 1, l.Cleanup(-time.Second))
}

func TestIPRateLimiter_ZeroDisables(t *testing.T) {
	h := NewIPRateLimiter(config.APIRateLimitConfig{}).Middleware()(func(c echo.Context) error { return nil })
	for i := 0; i < 100; i++ {
		c, _ := newCtx(http.MethodGet, "/api/pacientes")
		require.NoError(t, h(c))
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(zerolog.New(&buf))(func(c echo.Context) error { panic("kaboom") })

	c, _ := newCtx(http.MethodGet, "/")
	c.Set("request_id", "req-123")
	err := h(c)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), "req-123")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	h := Logger(zerolog.New(&buf))(func(c echo.Context) error {
		return apperror.NotFound("Paciente no encontrado")
	})

	c, _ := newCtx(http.MethodGet, "/api/pacientes/9")
	c.Set("request_id", "req-abc")
	c.Set(identityKey, Identity{ID: 4, Role: model.RoleAdmin})
	require.Error(t, h(c))

	out := buf.String()
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"request_id":"req-abc"`)
	assert.Contains(t, out, `"user_id":"4"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestRequestID(t *testing.T) {
	h := RequestID()(func(c echo.Context) error {
		rid, _ := c.Get("request_id").(string)
		return c.String(http.StatusOK, rid)
	})

	c, rec := newCtx(http.MethodGet, "/")
	require.NoError(t, h(c))
	assert.Len(t, rec.Body.String(), 36)
	assert.Equal(t, rec.Body.String(), rec.Header().Get(echo.HeaderXRequestID))
}
