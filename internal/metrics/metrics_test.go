// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/wingedpig/arbor/internal/orchestrator"
)

func TestSyncReporter(t *testing.T) {
	var r SyncReporter
	okBefore := testutil.ToFloat64(syncOpsTotal.WithLabelValues("write", "success"))
	errBefore := testutil.ToFloat64(syncOpsTotal.WithLabelValues("write", "error"))
	skipBefore := testutil.ToFloat64(syncSkippedTotal.WithLabelValues("write"))

	r.SyncOp("write", time.Millisecond, nil)
	r.SyncOp("write", time.Millisecond, errors.New("boom"))
	r.SyncSkipped("write")

	assert.Equal(t, okBefore+1, testutil.ToFloat64(syncOpsTotal.WithLabelValues("write", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(syncOpsTotal.WithLabelValues("write", "error")))
	assert.Equal(t, skipBefore+1, testutil.ToFloat64(syncSkippedTotal.WithLabelValues("write")))
}

func TestRecordTransition(t *testing.T) {
	hooks := OrchestratorHooks()
	hooks.OnTransition(orchestrator.StateIdle, orchestrator.StateBooting)
	hooks.OnTransition(orchestrator.StateBooting, orchestrator.StateSyncing)

	assert.Equal(t, 0.0, testutil.ToFloat64(sandboxState.WithLabelValues("booting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sandboxState.WithLabelValues("syncing")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(sandboxTransitionsTotal.WithLabelValues("idle", "booting")), 1.0)

	hooks.OnInstalled(1, time.Second)
	hooks.OnReady(2 * time.Second)
}

func TestMiddleware_RouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/api/v1/tabs/{path:.*}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/tabs/{path:.*}", "404"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/tabs/src/index.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/tabs/{path:.*}", "404")))
}

func TestHandler(t *testing.T) {
	SetOpenTabs(3)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "arbor_open_tabs 3"))
}
