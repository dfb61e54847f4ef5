package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordToolCall(t *testing.T) {
	m := NewMetrics()

	m.RecordToolCall("move-file", OutcomeSuccess, 10*time.Millisecond)
	m.RecordToolCall("move-file", "FILE_NOT_FOUND", 30*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("move-file", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("move-file", "FILE_NOT_FOUND")))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.ToolCalls)
	assert.Equal(t, int64(1), s.FailedCalls)
	assert.InDelta(t, 20.0, s.AvgDurationMs, 0.001)
}

func TestSecurityCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordDenial("PATH_NOT_ALLOWED")
	m.RecordDenial("PATH_NOT_ALLOWED")
	m.RecordConfirmation("timeout")
	m.RecordBatch("delete", 2, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthDenials.WithLabelValues("PATH_NOT_ALLOWED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Confirmations.WithLabelValues("timeout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchItems.WithLabelValues("delete", "success")))
	assert.Equal(t, int64(2), m.Snapshot().Denials)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RecordDenial("PATH_NOT_ALLOWED")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AuthDenials.WithLabelValues("PATH_NOT_ALLOWED")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.POST("/tools/:name", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tools/move-file", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/tools/:name", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "fsguard_http_requests_total")
	assert.Contains(t, w.Body.String(), "fsguard_uptime_seconds")
}

func TestTimer(t *testing.T) {
	m := NewMetrics()
	d := NewTimer(m, "copy-file").Stop(OutcomeError)
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("copy-file", OutcomeError)))

	assert.NotPanics(t, func() { NewTimer(nil, "x").Stop(OutcomeSuccess) })
}
