package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    float64           `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	db        Pinger
	cache     Pinger
	startedAt time.Time
	timeout   time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db, cache Pinger, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     cache,
		startedAt: time.Now(),
		timeout:   2 * time.Second,
		log:       log.With().Str("component", "health_handler").Logger(),
		now:       time.Now,
	}
}

// Health godoc
// GET /health
// 200 while the database answers, 503 otherwise. A cache outage only
// degrades the status.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	now := h.now()
	status := HealthStatus{
		Status:    statusHealthy,
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.startedAt).Seconds(),
		Checks: map[string]string{
			"database": h.check(ctx, "database", h.db),
			"cache":    h.check(ctx, "cache", h.cache),
		},
	}
	for _, v := range status.Checks {
		if v != statusHealthy {
			status.Status = statusDegraded
		}
	}

	code := http.StatusOK
	if status.Checks["database"] != statusHealthy {
		code = http.StatusServiceUnavailable
	}

	c.Header("X-Health-Check", "true")
	response.Success(c, code, status)
}

func (h *HealthHandler) check(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return statusUnhealthy
	}
	if err := p.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Str("check", name).Msg("Health check failed")
		return statusUnhealthy
	}
	return statusHealthy
}
