package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function, such as a Redis ping, to a health check.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	DB    Pinger
	Redis PingFunc // Optional, can be nil
}

func NewHealthHandler(db Pinger, redisPing PingFunc) *HealthHandler {
	return &HealthHandler{DB: db, Redis: redisPing}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok"}

	if h.DB != nil {
		if err := h.DB.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.Redis != nil {
		checks["redis"] = "ok"
		// Redis is optional; a failed ping degrades but does not fail health.
		if err := h.Redis(c.Request.Context()); err != nil {
			checks["redis"] = "unavailable"
		}
	}

	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}
