package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/MacroAgent/consts"
	"github.com/dyike/MacroAgent/internal/metrics"
	"github.com/dyike/MacroAgent/internal/storage"
	"github.com/dyike/MacroAgent/models"
)

const (
	bucket = "quartz-bucket"
	folder = "macro-analysis/"
)

type countingRunner struct {
	calls  int32
	onCall func(n int32)
}

func (r *countingRunner) Execute(context.Context) *models.RunResult {
	n := atomic.AddInt32(&r.calls, 1)
	if r.onCall != nil {
		r.onCall(n)
	}
	return &models.RunResult{RunID: "run", Success: true, UploadedKeys: []string{"k"}}
}

func put(t *testing.T, store *storage.MemoryStore, key, body string) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), bucket, key, []byte(body), storage.MarkdownContentType))
}

func newTestServer(store storage.ObjectStore, runner Runner) (*Server, *Cache, *Jobs) {
	cache := NewCache(storage.NewArtifacts(store), bucket, folder, nil)
	cache.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	jobs := NewJobs(runner, nil)
	srv := NewServer(context.Background(), cache, jobs, metrics.New().Handler(), nil)
	return srv, cache, jobs
}

func do(t *testing.T, srv *Server, method, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestLiveness(t *testing.T) {
	srv, _, _ := newTestServer(storage.NewMemoryStore(), &countingRunner{})
	code, body := do(t, srv, http.MethodGet, "/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestReadinessBeforeRefresh(t *testing.T) {
	srv, _, _ := newTestServer(storage.NewMemoryStore(), &countingRunner{})
	code, body := do(t, srv, http.MethodGet, "/health/ready")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["data_available"])
	assert.Nil(t, body["last_update"])
	assert.NotContains(t, body, "last_run")
}

func TestAnalysisFallbackTexts(t *testing.T) {
	srv, _, _ := newTestServer(storage.NewMemoryStore(), &countingRunner{})
	code, body := do(t, srv, http.MethodGet, "/result/analysis")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, positiveFallback, body["positive_summary"])
	assert.Equal(t, negativeFallback, body["negative_summary"])
	assert.Equal(t, consts.BiasUncertain, body["market_bias_hint"])
	assert.Equal(t, "2025-03-04T05:06:07.000000Z", body["last_update"])
}

func TestAnalysisReadsLatestSummaries(t *testing.T) {
	store := storage.NewMemoryStore()
	put(t, store, folder+"Report_Positive_20250101_000000_short.md", "old")
	put(t, store, folder+"Report_Positive_20250301_000000_short.md", "성장 회복 증가")
	put(t, store, folder+"Report_Positive_20250401_000000.md", "full report, not a summary")
	put(t, store, folder+"Report_Negative_20250301_000000_short.md", "부담")

	srv, _, _ := newTestServer(store, &countingRunner{})
	_, body := do(t, srv, http.MethodGet, "/result/analysis")

	assert.Equal(t, "성장 회복 증가", body["positive_summary"])
	assert.Equal(t, "부담", body["negative_summary"])
	assert.Equal(t, consts.BiasBullish, body["market_bias_hint"])

	_, ready := do(t, srv, http.MethodGet, "/health/ready")
	assert.Equal(t, true, ready["data_available"])
}

func TestBiasNeedsBothSummaries(t *testing.T) {
	store := storage.NewMemoryStore()
	put(t, store, folder+"Report_Positive_20250301_000000_short.md", "성장")

	_, cache, _ := newTestServer(store, &countingRunner{})
	cache.Refresh(context.Background())

	snap := cache.Snapshot()
	assert.Equal(t, "성장", snap.PositiveSummary)
	assert.Empty(t, snap.NegativeSummary)
	assert.Equal(t, consts.BiasUncertain, snap.MarketBiasHint)
}

type flakyStore struct {
	*storage.MemoryStore
	fail bool
}

func (f *flakyStore) Get(ctx context.Context, b, key string) ([]byte, error) {
	if f.fail {
		return nil, errors.New("boom")
	}
	return f.MemoryStore.Get(ctx, b, key)
}

func TestRefreshKeepsPreviousOnReadFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	put(t, store.MemoryStore, folder+"Report_Positive_20250301_000000_short.md", "first")

	_, cache, _ := newTestServer(store, &countingRunner{})
	cache.Refresh(context.Background())
	require.Equal(t, "first", cache.Snapshot().PositiveSummary)

	store.fail = true
	cache.Refresh(context.Background())
	assert.Equal(t, "first", cache.Snapshot().PositiveSummary)
}

func TestRefreshEndpoint(t *testing.T) {
	store := storage.NewMemoryStore()
	put(t, store, folder+"Report_Negative_20250301_000000_short.md", "침체")

	srv, cache, _ := newTestServer(store, &countingRunner{})
	srv.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	code, body := do(t, srv, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "refreshed", body["status"])
	assert.Equal(t, "2025-03-04T05:06:07.000000Z", body["timestamp"])
	assert.Equal(t, "침체", cache.Snapshot().NegativeSummary)
}

func TestRunAnalysisStartsBackgroundJob(t *testing.T) {
	runner := &countingRunner{}
	srv, _, jobs := newTestServer(storage.NewMemoryStore(), runner)

	code, body := do(t, srv, http.MethodPost, "/run-analysis")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, "Analysis job started in background", body["message"])

	jobs.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&runner.calls))
	require.NotNil(t, jobs.Last())
	assert.Equal(t, "run", jobs.Last().RunID)

	_, ready := do(t, srv, http.MethodGet, "/health/ready")
	lastRun, ok := ready["last_run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run", lastRun["run_id"])
	assert.Equal(t, true, lastRun["success"])
	assert.Equal(t, []any{"k"}, lastRun["uploaded_files"])
}

func TestRunAnalysisRequiresPost(t *testing.T) {
	srv, _, _ := newTestServer(storage.NewMemoryStore(), &countingRunner{})
	code, _ := do(t, srv, http.MethodGet, "/run-analysis")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(storage.NewMemoryStore(), &countingRunner{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScheduleStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &countingRunner{onCall: func(n int32) {
		if n == 2 {
			cancel()
		}
	}}
	store := storage.NewMemoryStore()
	put(t, store, folder+"Report_Positive_20250301_000000_short.md", "회복")
	_, cache, jobs := newTestServer(store, runner)

	done := make(chan struct{})
	go func() {
		Schedule(ctx, jobs, cache, 0, time.Millisecond, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&runner.calls))
	assert.Equal(t, "회복", cache.Snapshot().PositiveSummary)
}

func TestJobsSerializeRuns(t *testing.T) {
	var active, maxActive int32
	runner := &countingRunner{onCall: func(int32) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}}
	jobs := NewJobs(runner, nil)
	for i := 0; i < 4; i++ {
		jobs.Start(context.Background())
	}
	jobs.Wait()

	assert.EqualValues(t, 4, atomic.LoadInt32(&runner.calls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&maxActive))
}
