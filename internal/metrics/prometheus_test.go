package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.RecordFetchAttempt("ecos", true)
	r.RecordFetchAttempt("ecos", false)
	r.RecordFetchAttempt("ecos", false)
	r.RecordSeriesLength("fred", "FEDFUNDS", 36)
	r.RecordGeneration("positive", "report", true)
	r.RecordUpload(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchAttempts.WithLabelValues("ecos", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetchAttempts.WithLabelValues("ecos", "failure")))
	assert.Equal(t, 36.0, testutil.ToFloat64(r.seriesLength.WithLabelValues("fred", "FEDFUNDS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.generations.WithLabelValues("positive", "report", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.uploads.WithLabelValues("failure")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.RecordFetchAttempt("ecos", true)
	r.RecordSeriesLength("ecos", "x", 1)
	r.RecordGeneration("negative", "summary", false)
	r.RecordUpload(true)
	r.RecordRun(time.Second)
	assert.NotNil(t, r.Handler())
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.RecordUpload(true)
	r.RecordRun(2 * time.Second)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `macroagent_uploads_total{outcome="success"} 1`)
	assert.Contains(t, string(body), "macroagent_run_duration_seconds_count 1")
}
