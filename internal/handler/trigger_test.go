package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/service"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	m.Run()
}

type stubRunner struct {
	stats *service.CycleStats
	err   error
	calls int
}

func (s *stubRunner) RunCycle(context.Context) (*service.CycleStats, error) {
	s.calls++
	return s.stats, s.err
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

func triggerRequest(h *TriggerHandler, key string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/trigger", h.Trigger)

	url := "/trigger"
	if key != "" {
		url += "?key=" + key
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestTrigger_RunsCycle(t *testing.T) {
	runner := &stubRunner{stats: &service.CycleStats{CycleID: "c1", AccountsProcessed: 3, VideosWritten: 42}}
	h := NewTriggerHandler(runner, "s3cret")

	w := triggerRequest(h, "s3cret")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runner.calls)

	body := w.Body.String()
	assert.Equal(t, "completed", gjson.Get(body, "status").String())
	assert.Equal(t, "c1", gjson.Get(body, "cycle.cycle_id").String())
	assert.Equal(t, int64(42), gjson.Get(body, "cycle.videos_written").Int())
}

func TestTrigger_RejectsBadKey(t *testing.T) {
	runner := &stubRunner{}
	h := NewTriggerHandler(runner, "s3cret")

	w := triggerRequest(h, "wrong")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, runner.calls)
}

func TestTrigger_MissingKey(t *testing.T) {
	runner := &stubRunner{}
	h := NewTriggerHandler(runner, "s3cret")

	w := triggerRequest(h, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, runner.calls)
}

func TestTrigger_DisabledWithoutConfiguredKey(t *testing.T) {
	runner := &stubRunner{}
	h := NewTriggerHandler(runner, "")

	w := triggerRequest(h, "anything")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, runner.calls)
}

func TestTrigger_ConflictWhileCycleRunning(t *testing.T) {
	runner := &stubRunner{err: service.ErrCycleRunning}
	h := NewTriggerHandler(runner, "s3cret")

	w := triggerRequest(h, "s3cret")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTrigger_CycleError(t *testing.T) {
	runner := &stubRunner{err: errors.New("list accounts: connection refused")}
	h := NewTriggerHandler(runner, "s3cret")

	w := triggerRequest(h, "s3cret")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealth_AllUp(t *testing.T) {
	h := NewHealthHandler(&stubPinger{}, nil)

	router := gin.New()
	router.GET("/health", h.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, "running", gjson.Get(body, "status").String())
	assert.Equal(t, "up", gjson.Get(body, "checks.database").String())
	assert.False(t, gjson.Get(body, "checks.rabbitmq").Exists())
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := NewHealthHandler(&stubPinger{err: errors.New("connection refused")}, nil)

	router := gin.New()
	router.GET("/health", h.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := w.Body.String()
	assert.Equal(t, "unhealthy", gjson.Get(body, "status").String())
	assert.Equal(t, "down", gjson.Get(body, "checks.database").String())
}
