package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is a liveness probe.  It returns a plain text "ok" with 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ReadyHandler reports whether the service's backing stores answer.
type ReadyHandler struct {
	DB    Pinger
	Redis redis.UniversalClient // nil when rate limits are kept in memory
}

// Ready returns 200 when the database (and Redis, if configured) respond
// within two seconds and 503 otherwise.
func (h *ReadyHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "redis": "disabled"}
	ready := true
	if err := h.DB.PingContext(ctx); err != nil {
		checks["database"] = "unavailable"
		ready = false
	}
	if h.Redis != nil {
		checks["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unavailable"
			ready = false
		}
	}
	if !ready {
		return c.JSON(http.StatusServiceUnavailable, envelope{Success: false, Message: "Servicio no disponible", Data: checks})
	}
	return respond(c, http.StatusOK, "", checks)
}
