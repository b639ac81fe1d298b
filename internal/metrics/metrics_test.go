package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaltestutil "github.com/GabrielNunesIT/plugin-pipeline/internal/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe("emojify", OutcomeDelivered, time.Millisecond)
	m.Observe("emojify", OutcomeDelivered, time.Millisecond)
	m.Observe("nginx-parser", OutcomeUnchanged, time.Millisecond)
	m.Observe("json2msgpack", OutcomeError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Invocations().WithLabelValues("emojify", OutcomeDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations().WithLabelValues("nginx-parser", OutcomeUnchanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations().WithLabelValues("json2msgpack", OutcomeError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Invocations().WithLabelValues("reverse", OutcomeRejected)))

	count, err := testutil.GatherAndCount(reg, "plugin_pipeline_unit_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestServer_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe("reverse", OutcomeDelivered, time.Microsecond)

	s := NewServer(":0", "/metrics", reg, internaltestutil.NewTestLogger())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `plugin_pipeline_unit_invocations_total{outcome="delivered",unit="reverse"} 1`)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NotPanics(t, func() { r.Observe("emojify", OutcomeDropped, time.Second) })
}
