// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wingedpig/arbor/internal/metrics"
	"github.com/wingedpig/arbor/internal/orchestrator"
	"github.com/wingedpig/arbor/internal/syncer"
	"github.com/wingedpig/arbor/internal/terminal"
)

// Orchestrator is the sandbox session surface used by the API.
type Orchestrator interface {
	Status() orchestrator.Status
	Launch(ctx context.Context) error
	Teardown(ctx context.Context) error
}

// SyncEngine is the sync surface used by the API.
type SyncEngine interface {
	Stats() syncer.Stats
	Bootstrap(ctx context.Context) error
}

// SandboxHandler handles sandbox session requests.
type SandboxHandler struct {
	orch Orchestrator
	sync SyncEngine
	sink *terminal.Sink
}

// NewSandboxHandler creates a new sandbox handler.
func NewSandboxHandler(orch Orchestrator, sync SyncEngine, sink *terminal.Sink) *SandboxHandler {
	return &SandboxHandler{orch: orch, sync: sync, sink: sink}
}

type sandboxResponse struct {
	orchestrator.Status
	Sync syncer.Stats `json:"sync"`
}

func (h *SandboxHandler) status() sandboxResponse {
	return sandboxResponse{Status: h.orch.Status(), Sync: h.sync.Stats()}
}

// Status returns the session state.
func (h *SandboxHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteVersioned(w, r, http.StatusOK, "sandbox.get", h.status())
}

// Launch starts a session. The pipeline runs in the background; poll Status
// or watch sandbox.state events.
func (h *SandboxHandler) Launch(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Launch(r.Context()); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, h.status())
}

// Teardown ends the session.
func (h *SandboxHandler) Teardown(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Teardown(r.Context()); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.status())
}

// Resync re-materializes the whole tree in the running sandbox.
func (h *SandboxHandler) Resync(w http.ResponseWriter, r *http.Request) {
	if st := h.orch.Status(); !st.State.Active() {
		WriteError(w, http.StatusConflict, ErrConflict, fmt.Sprintf("no active sandbox (state %s)", st.State))
		return
	}
	if err := h.sync.Bootstrap(r.Context()); err != nil {
		WriteErrorWithDetails(w, http.StatusBadGateway, ErrSandboxError, err.Error(), nil)
		return
	}
	WriteJSON(w, http.StatusOK, h.sync.Stats())
}

// Terminal returns buffered output lines. Query: since=<seq>, limit=<n>.
func (h *SandboxHandler) Terminal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var lines []terminal.Line
	if s := q.Get("since"); s != "" {
		seq, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid since")
			return
		}
		lines = h.sink.Since(seq)
	} else {
		limit := 500
		if l := q.Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		lines = h.sink.Lines(limit)
	}
	if lines == nil {
		lines = []terminal.Line{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"lines":    lines,
		"sequence": h.sink.Sequence(),
	})
}

// ClearTerminal drops the buffered output. Streams stay open.
func (h *SandboxHandler) ClearTerminal(w http.ResponseWriter, r *http.Request) {
	h.sink.Clear()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"lines":    []terminal.Line{},
		"sequence": h.sink.Sequence(),
	})
}

// backlog subscribes and returns the lines after since. Lines delivered on
// the channel with Seq <= last are duplicates of the backlog.
func (h *SandboxHandler) backlog(r *http.Request) (chan terminal.Line, []terminal.Line, int64) {
	since := int64(0)
	if s := r.URL.Query().Get("since"); s != "" {
		since, _ = strconv.ParseInt(s, 10, 64)
	}
	ch := h.sink.Subscribe()
	lines := h.sink.Since(since)
	last := since
	if n := len(lines); n > 0 {
		last = lines[n-1].Seq
	}
	return ch, lines, last
}

// Stream streams terminal output as server-sent events.
func (h *SandboxHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, "streaming not supported")
		return
	}

	ch, lines, last := h.backlog(r)
	defer h.sink.Unsubscribe(ch)
	metrics.StreamOpened("sse")
	defer metrics.StreamClosed("sse")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, "event: connected\ndata: {\"sequence\":%d}\n\n", h.sink.Sequence())
	for _, l := range lines {
		writeSSELine(w, l)
	}
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case l, ok := <-ch:
			if !ok {
				return
			}
			if l.Seq <= last {
				continue
			}
			writeSSELine(w, l)
			flusher.Flush()
		}
	}
}

func writeSSELine(w http.ResponseWriter, l terminal.Line) {
	data, _ := json.Marshal(l)
	fmt.Fprintf(w, "id: %d\ndata: %s\n\n", l.Seq, data)
}

// WebSocket streams terminal output over a websocket. The stream is
// read-only; client messages are discarded.
func (h *SandboxHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch, lines, last := h.backlog(r)
	defer h.sink.Unsubscribe(ch)
	metrics.StreamOpened("ws")
	defer metrics.StreamClosed("ws")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, l := range lines {
		if err := conn.WriteJSON(l); err != nil {
			return
		}
	}

	pingTicker := time.NewTicker(54 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case l, ok := <-ch:
			if !ok {
				return
			}
			if l.Seq <= last {
				continue
			}
			if err := conn.WriteJSON(l); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
