// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api serves the arbor HTTP API.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wingedpig/arbor/internal/api/handlers"
	"github.com/wingedpig/arbor/internal/api/middleware"
	"github.com/wingedpig/arbor/internal/api/version"
	"github.com/wingedpig/arbor/internal/editor"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/filetree"
	"github.com/wingedpig/arbor/internal/metrics"
	"github.com/wingedpig/arbor/internal/project"
	"github.com/wingedpig/arbor/internal/terminal"
	"github.com/wingedpig/arbor/internal/workspace"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host         string
	Port         int
	TLSCert      string // Path to TLS certificate file
	TLSKey       string // Path to TLS private key file
	TLSTailscale bool
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Tree         *filetree.Tree
	Editor       *editor.Manager
	Orchestrator handlers.Orchestrator
	Sync         handlers.SyncEngine
	Terminal     *terminal.Sink
	Projects     *project.Store
	Workspace    *workspace.Workspace
	EventBus     *events.Bus
	Preview      http.Handler // nil disables /preview/
	Version      string
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)
	r.Use(metrics.Middleware)
	r.Use(version.Middleware)

	// Preflight requests match no method-restricted route; answer them here
	// so the middleware chain (and CORS) runs.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": deps.Version})
	}).Methods("GET")

	if deps.Preview != nil {
		r.PathPrefix("/preview").Handler(deps.Preview)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Tree handlers
	treeHandler := handlers.NewTreeHandler(deps.Tree)
	api.HandleFunc("/tree", treeHandler.Get).Methods("GET")
	api.HandleFunc("/tree", treeHandler.Create).Methods("POST")
	api.HandleFunc("/tree/manifest", treeHandler.Manifest).Methods("GET")
	api.HandleFunc("/tree/rename", treeHandler.Rename).Methods("POST")
	api.HandleFunc("/tree/{path:.+}", treeHandler.Delete).Methods("DELETE")
	api.HandleFunc("/files/{path:.+}", treeHandler.File).Methods("GET")

	// Tab handlers
	tabHandler := handlers.NewTabHandler(deps.Editor)
	api.HandleFunc("/tabs", tabHandler.List).Methods("GET")
	api.HandleFunc("/tabs", tabHandler.Open).Methods("POST")
	api.HandleFunc("/tabs/{path:.+}/activate", tabHandler.Activate).Methods("POST")
	api.HandleFunc("/tabs/{path:.+}", tabHandler.Update).Methods("PUT")
	api.HandleFunc("/tabs/{path:.+}", tabHandler.Close).Methods("DELETE")

	// Sandbox handlers
	sandboxHandler := handlers.NewSandboxHandler(deps.Orchestrator, deps.Sync, deps.Terminal)
	api.HandleFunc("/sandbox", sandboxHandler.Status).Methods("GET")
	api.HandleFunc("/sandbox/launch", sandboxHandler.Launch).Methods("POST")
	api.HandleFunc("/sandbox/teardown", sandboxHandler.Teardown).Methods("POST")
	api.HandleFunc("/sandbox/resync", sandboxHandler.Resync).Methods("POST")
	api.HandleFunc("/sandbox/terminal", sandboxHandler.Terminal).Methods("GET")
	api.HandleFunc("/sandbox/terminal", sandboxHandler.ClearTerminal).Methods("DELETE")
	api.HandleFunc("/sandbox/terminal/stream", sandboxHandler.Stream).Methods("GET")
	api.HandleFunc("/sandbox/terminal/ws", sandboxHandler.WebSocket).Methods("GET")

	// Project handlers
	projectHandler := handlers.NewProjectHandler(deps.Projects)
	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/save", projectHandler.Save).Methods("POST")
	api.HandleFunc("/projects/{id}/load", projectHandler.Load).Methods("POST")
	api.HandleFunc("/projects/{id}", projectHandler.Delete).Methods("DELETE")

	// Workspace handlers
	workspaceHandler := handlers.NewWorkspaceHandler(deps.Workspace, deps.Editor, deps.Projects, deps.Orchestrator)
	api.HandleFunc("/workspace", workspaceHandler.Get).Methods("GET")
	api.HandleFunc("/workspace/panel", workspaceHandler.Panel).Methods("PUT")
	api.HandleFunc("/shortcuts", workspaceHandler.Shortcut).Methods("POST")

	// Event handlers
	eventHandler := handlers.NewEventHandler(deps.EventBus)
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	return &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
}

// ListenAndServe starts the server, with TLS when configured.
func (s *Server) ListenAndServe() error {
	addr := s.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tlsConfig, err := TLSConfig(s.cfg.TLSCert, s.cfg.TLSKey, s.cfg.TLSTailscale)
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}
	if tlsConfig != nil {
		s.server.TLSConfig = tlsConfig
		log.Printf("API server listening on https://%s (TLS enabled)", addr)
		return s.server.ListenAndServeTLS("", "")
	}

	log.Printf("API server listening on http://%s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Println("Shutting down API server...")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}
	return s.server.Shutdown(shutdownCtx)
}
