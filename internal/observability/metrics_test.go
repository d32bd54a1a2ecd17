package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveMatch("matched")
	m.ObserveGenerationFallback("content")
	m.ObserveUpstream("openai", "embed", "ok", time.Second)
	m.ObserveVectorStoreOperation("memory", "search", "success", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCountersAreExported(t *testing.T) {
	m := New()
	m.ObserveMatch("matched")
	m.ObserveMatch("matched")
	m.ObserveMatch("failed")
	m.ObserveGenerationFallback("questions")
	m.ObserveVectorStoreOperation("qdrant", "search", "error", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.matchOutcomes.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationFallbacks.WithLabelValues("questions")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `mb_match_outcomes_total{outcome="failed"} 1`), body)
	assert.True(t, strings.Contains(body, `mb_vector_store_operations_total{operation="search",provider="qdrant",status="error"} 1`))
}

func TestSampleRatioBounds(t *testing.T) {
	assert.Equal(t, 0.1, sampleRatio(0))
	assert.Equal(t, 1.0, sampleRatio(3))
	assert.Equal(t, 0.5, sampleRatio(0.5))
}
