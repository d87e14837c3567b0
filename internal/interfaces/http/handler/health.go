package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/retailpos/backoffice/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Pinger is a dependency the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthData is the health endpoint body. Components maps each probed
// dependency to "ok" or "error".
type HealthData struct {
	Status     string            `json:"status" example:"healthy"`
	Time       string            `json:"time" example:"2026-01-02T15:04:05Z"`
	Components map[string]string `json:"components"`
}

// HealthHandler reports whether the service and its stores answer
type HealthHandler struct {
	components map[string]Pinger
	timeout    time.Duration
}

// NewHealthHandler probes every named component on each request
func NewHealthHandler(components map[string]Pinger) *HealthHandler {
	return &HealthHandler{components: components, timeout: 2 * time.Second}
}

// Check godoc
//
//	@ID				healthCheck
//	@Summary		Health check
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthData
//	@Failure		503	{object}	HealthData
//	@Router			/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	body := HealthData{
		Status:     "healthy",
		Time:       time.Now().UTC().Format(time.RFC3339),
		Components: make(map[string]string, len(h.components)),
	}
	status := http.StatusOK
	for name, p := range h.components {
		if err := p.Ping(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.String("component", name), zap.Error(err))
			body.Components[name] = "error"
			body.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		body.Components[name] = "ok"
	}

	c.JSON(status, body)
}
