// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides Prometheus metrics for the arbor server.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wingedpig/arbor/internal/orchestrator"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Sync metrics
	syncOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_sync_operations_total",
			Help: "Sandbox sync calls by operation and result",
		},
		[]string{"op", "status"},
	)

	syncOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbor_sync_operation_duration_seconds",
			Help:    "Sandbox sync call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	syncSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_sync_skipped_total",
			Help: "Sync writes skipped because content was unchanged",
		},
		[]string{"op"},
	)

	// Sandbox lifecycle metrics
	sandboxTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_sandbox_transitions_total",
			Help: "Sandbox state transitions",
		},
		[]string{"from", "to"},
	)

	sandboxState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arbor_sandbox_state",
			Help: "1 for the current sandbox state, 0 otherwise",
		},
		[]string{"state"},
	)

	installDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbor_install_duration_seconds",
			Help:    "Dependency install duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"result"},
	)

	timeToReady = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arbor_time_to_ready_seconds",
			Help:    "Time from launch to the dev server becoming ready",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// Editor metrics
	treeEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arbor_tree_entries",
			Help: "Number of entries in the project tree",
		},
	)

	openTabs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arbor_open_tabs",
			Help: "Number of open editor tabs",
		},
	)

	projectSavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arbor_project_saves_total",
			Help: "Total project saves",
		},
	)

	// Stream metrics
	streamsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arbor_streams_active",
			Help: "Active SSE and websocket streams",
		},
		[]string{"kind"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SyncReporter records sync engine activity.
type SyncReporter struct{}

// SyncOp records one sandbox call.
func (SyncReporter) SyncOp(op string, d time.Duration, err error) {
	syncOpsTotal.WithLabelValues(op, status(err)).Inc()
	syncOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SyncSkipped records a deduplicated write.
func (SyncReporter) SyncSkipped(op string) {
	syncSkippedTotal.WithLabelValues(op).Inc()
}

// OrchestratorHooks returns hooks that record sandbox lifecycle metrics.
func OrchestratorHooks() orchestrator.Hooks {
	return orchestrator.Hooks{
		OnTransition: RecordTransition,
		OnInstalled: func(exitCode int, d time.Duration) {
			result := "success"
			if exitCode != 0 {
				result = "failure"
			}
			installDuration.WithLabelValues(result).Observe(d.Seconds())
		},
		OnReady: func(d time.Duration) {
			timeToReady.Observe(d.Seconds())
		},
	}
}

// RecordTransition records a state change and updates the state gauge.
func RecordTransition(from, to orchestrator.State) {
	sandboxTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	sandboxState.WithLabelValues(string(from)).Set(0)
	sandboxState.WithLabelValues(string(to)).Set(1)
}

// SetTreeEntries sets the number of tree entries.
func SetTreeEntries(n int) {
	treeEntries.Set(float64(n))
}

// SetOpenTabs sets the number of open tabs.
func SetOpenTabs(n int) {
	openTabs.Set(float64(n))
}

// RecordProjectSave records a project save.
func RecordProjectSave() {
	projectSavesTotal.Inc()
}

// StreamOpened increments the active stream gauge for kind ("sse", "ws").
func StreamOpened(kind string) {
	streamsActive.WithLabelValues(kind).Inc()
}

// StreamClosed decrements the active stream gauge for kind.
func StreamClosed(kind string) {
	streamsActive.WithLabelValues(kind).Dec()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker for WebSocket support.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request metrics labelled by the matched route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, routeOf(r), rw.statusCode, time.Since(start))
	})
}

func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
