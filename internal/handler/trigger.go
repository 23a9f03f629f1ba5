// Package handler exposes the tracker's HTTP surface: manual cycle trigger,
// health, and Prometheus metrics.
package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/service"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/pkg/logger"
)

// CycleRunner starts a tracking cycle, rejecting concurrent runs.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*service.CycleStats, error)
}

// TriggerHandler serves the manual cycle trigger endpoint.
type TriggerHandler struct {
	tracker    CycleRunner
	triggerKey string
}

// NewTriggerHandler creates a TriggerHandler. An empty triggerKey disables
// the endpoint entirely.
func NewTriggerHandler(tracker CycleRunner, triggerKey string) *TriggerHandler {
	return &TriggerHandler{
		tracker:    tracker,
		triggerKey: triggerKey,
	}
}

// Trigger runs one tracking cycle synchronously and reports its stats. A
// request that arrives while a cycle is in progress gets 409 and does not
// disturb the running cycle.
func (h *TriggerHandler) Trigger(c *gin.Context) {
	if h.triggerKey == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "manual trigger is disabled"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(c.Query("key")), []byte(h.triggerKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid trigger key"})
		return
	}

	stats, err := h.tracker.RunCycle(c.Request.Context())
	switch {
	case errors.Is(err, service.ErrCycleRunning):
		c.JSON(http.StatusConflict, gin.H{"error": "a tracking cycle is already running"})
	case err != nil:
		logger.Log.Error("triggered cycle failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cycle failed"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"status": "completed",
			"cycle":  stats,
		})
	}
}
