// Package metrics exposes Prometheus instrumentation for ingestion, queries
// and the warehouse mirror.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PageViewsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_page_views_ingested_total",
		Help: "Page views persisted together with their session update",
	})

	IngestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_ingest_failures_total",
		Help: "Page views that were accepted but could not be stored",
	}, []string{"reason"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explorer_query_duration_seconds",
		Help:    "Duration of analytics read queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	QueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_query_errors_total",
		Help: "Analytics read queries that failed",
	}, []string{"operation"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explorer_api_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_ingest_rate_limited_total",
		Help: "Ingest requests rejected by the per-IP limiter",
	})

	WarehouseQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "explorer_warehouse_queue_depth",
		Help: "Page views waiting to be mirrored to ClickHouse",
	})

	WarehouseDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_warehouse_dropped_total",
		Help: "Page views dropped because the mirror queue was full or closed",
	})

	WarehouseFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_warehouse_flushes_total",
		Help: "Warehouse batch flushes by outcome",
	}, []string{"status"})

	WarehouseRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_warehouse_rows_total",
		Help: "Rows written to the warehouse",
	})
)

// RecordQuery observes one analytics read.
func RecordQuery(operation string, d time.Duration, err error) {
	QueryDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		QueryErrors.WithLabelValues(operation).Inc()
	}
}

func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func RecordWarehouseFlush(rows int, err error) {
	if err != nil {
		WarehouseFlushes.WithLabelValues("error").Inc()
		return
	}
	WarehouseFlushes.WithLabelValues("ok").Inc()
	WarehouseRows.Add(float64(rows))
}
