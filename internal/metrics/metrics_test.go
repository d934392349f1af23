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

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordStoreOperation("add", true, 10*time.Millisecond)
	m.RecordStoreOperation("add", false, time.Millisecond)
	m.SetStoreEntries("documents", 42)
	m.AddChunksIngested(7)
	m.AddChunksIngested(-1)
	m.RecordSyncRun(true, time.Second)
	m.RecordSyncFile("new")
	m.RecordSyncFile("new")
	m.RecordToolCall("document_search", true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("add", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("add", "error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.StoreEntries.WithLabelValues("documents")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ChunksIngestedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncFilesTotal.WithLabelValues("new")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("document_search", "success")))
	assert.Greater(t, testutil.ToFloat64(m.SyncLastSuccessTS), 0.0)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStoreOperation("add", true, 0)
		m.SetStoreEntries("x", 1)
		m.AddChunksIngested(1)
		m.RecordSyncRun(false, 0)
		m.RecordSyncFile("failed")
		m.RecordToolCall("t", true, 0)
	})
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordSyncFile("skipped")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `docstore_sync_files_total{outcome="skipped"} 1`)
}
