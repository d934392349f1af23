// Package metrics provides Prometheus metrics for docstore.
//
// Every Metrics value owns a private registry, so tests and multiple servers
// in one process never collide on registration. All methods are safe to call
// on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for docstore
type Metrics struct {
	Registry *prometheus.Registry

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	StoreEntries           *prometheus.GaugeVec
	ChunksIngestedTotal    prometheus.Counter

	// Sync metrics
	SyncRunsTotal     *prometheus.CounterVec
	SyncDuration      prometheus.Histogram
	SyncFilesTotal    *prometheus.CounterVec
	SyncLastSuccessTS prometheus.Gauge

	// MCP tool metrics
	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec

	ServerStartTime time.Time
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		Registry:        reg,
		ServerStartTime: time.Now(),
	}

	m.StoreOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_store_operations_total",
			Help: "Total number of vector store operations",
		},
		[]string{"operation", "status"},
	)

	m.StoreOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_store_operation_duration_seconds",
			Help:    "Duration of vector store operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	m.StoreEntries = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docstore_store_entries",
			Help: "Number of entries per collection as of the last add or reset",
		},
		[]string{"collection"},
	)

	m.ChunksIngestedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docstore_chunks_ingested_total",
			Help: "Total number of chunks written by document ingestion",
		},
	)

	m.SyncRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"status"},
	)

	m.SyncDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docstore_sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	m.SyncFilesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_sync_files_total",
			Help: "Files processed by sync, by outcome",
		},
		[]string{"outcome"},
	)

	m.SyncLastSuccessTS = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "docstore_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful sync run",
		},
	)

	m.ToolCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)

	m.ToolCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_tool_call_duration_seconds",
			Help:    "Duration of MCP tool calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	return m
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordStoreOperation records a vector store operation
func (m *Metrics) RecordStoreOperation(operation string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status(ok)).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetStoreEntries updates the entry gauge of a collection
func (m *Metrics) SetStoreEntries(collection string, n int) {
	if m == nil {
		return
	}
	m.StoreEntries.WithLabelValues(collection).Set(float64(n))
}

// AddChunksIngested counts chunks written by an ingestion
func (m *Metrics) AddChunksIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ChunksIngestedTotal.Add(float64(n))
}

// RecordSyncRun records a completed sync run
func (m *Metrics) RecordSyncRun(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.SyncRunsTotal.WithLabelValues(status(ok)).Inc()
	m.SyncDuration.Observe(duration.Seconds())
	if ok {
		m.SyncLastSuccessTS.SetToCurrentTime()
	}
}

// RecordSyncFile counts one file outcome: new, modified, skipped, failed, pruned
func (m *Metrics) RecordSyncFile(outcome string) {
	if m == nil {
		return
	}
	m.SyncFilesTotal.WithLabelValues(outcome).Inc()
}

// RecordToolCall records an MCP tool invocation
func (m *Metrics) RecordToolCall(tool string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, status(ok)).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}
