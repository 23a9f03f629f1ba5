package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/service"
)

// Pinger verifies database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and dependency health.
type HealthHandler struct {
	db        Pinger
	publisher service.ReportPublisher // optional, may be nil
}

// NewHealthHandler creates a HealthHandler. publisher may be nil when report
// publishing is disabled.
func NewHealthHandler(db Pinger, publisher service.ReportPublisher) *HealthHandler {
	return &HealthHandler{
		db:        db,
		publisher: publisher,
	}
}

// Health reports process and dependency status. The process is degraded, not
// down, when the broker is unhealthy: cycles keep running without reports.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "up"
	}

	if h.publisher != nil {
		if h.publisher.IsHealthy() {
			checks["rabbitmq"] = "up"
		} else {
			checks["rabbitmq"] = "degraded"
		}
	}

	body := gin.H{
		"status": "running",
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}

	c.JSON(status, body)
}
