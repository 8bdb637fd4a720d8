// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the arbor components together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/arbor/internal/api"
	"github.com/wingedpig/arbor/internal/autosave"
	"github.com/wingedpig/arbor/internal/config"
	"github.com/wingedpig/arbor/internal/editor"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/filetree"
	"github.com/wingedpig/arbor/internal/metrics"
	"github.com/wingedpig/arbor/internal/orchestrator"
	"github.com/wingedpig/arbor/internal/preview"
	"github.com/wingedpig/arbor/internal/project"
	"github.com/wingedpig/arbor/internal/sandbox"
	"github.com/wingedpig/arbor/internal/syncer"
	"github.com/wingedpig/arbor/internal/terminal"
	"github.com/wingedpig/arbor/internal/watcher"
	"github.com/wingedpig/arbor/internal/workspace"
)

// PreviewPrefix is where the dev server is proxied.
const PreviewPrefix = "/preview"

// projectSaveDelay simulates the latency of a remote save.
const projectSaveDelay = time.Second

// App is the main application container.
type App struct {
	mu sync.RWMutex

	version string
	config  *config.Config
	runtime sandbox.Runtime

	eventBus     *events.Bus
	tree         *filetree.Tree
	syncEngine   *syncer.Engine
	editor       *editor.Manager
	sink         *terminal.Sink
	orchestrator *orchestrator.Orchestrator
	projects     *project.Store
	autoSave     *autosave.Scheduler
	workspace    *workspace.Workspace
	preview      *preview.Proxy
	apiServer    *api.Server

	// tree mutations are forwarded to the bus outside the tree lock
	treeEvents   chan filetree.Mutation
	treeCount    chan struct{}
	treeStop     chan struct{}
	treeDone     sync.WaitGroup
	unobserve    []func()
	sandboxWatch *watcher.Watcher
	watchMu      sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	// Config is used as is when set; ConfigPath is ignored.
	Config  *config.Config
	Host    string
	Port    int
	Debug   bool
	Version string
	// Runtime overrides the backend selected by sandbox.backend.
	Runtime sandbox.Runtime
}

// New loads and validates the configuration and creates an App. Components
// are built by Initialize.
func New(opts Options) (*App, error) {
	app := &App{
		version: opts.Version,
		runtime: opts.Runtime,
		done:    make(chan struct{}),
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = loadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		config.ApplyDefaults(cfg)
	}

	// Override host/port if specified
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	expanded, err := config.NewTemplateExpander().ExpandConfig(cfg, config.NewTemplateContext(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to expand config: %w", err)
	}
	if err := config.NewValidator().Validate(expanded); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	app.config = expanded

	app.eventBus = events.NewBus(events.Config{HistorySize: expanded.Events.History.MaxEvents})

	return app, nil
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path == "" {
		found, err := loader.FindConfig(".")
		if err != nil {
			log.Printf("No config file found, using defaults")
			return config.DefaultConfig(), nil
		}
		path = found
	}
	cfg, err := loader.LoadWithDefaults(context.Background(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Config returns the expanded configuration.
func (app *App) Config() *config.Config {
	return app.config
}

// Initialize builds every component and connects them.
func (app *App) Initialize(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	cfg := app.config

	// Project tree
	app.tree = filetree.New()
	if cfg.Project.Dir != "" {
		if err := filetree.LoadDir(app.tree, os.DirFS(cfg.Project.Dir)); err != nil {
			return fmt.Errorf("failed to load project %s: %w", cfg.Project.Dir, err)
		}
		log.Printf("Loaded project tree from %s", cfg.Project.Dir)
	}
	app.startTreeForwarder()

	// Sync engine mirrors the tree into whichever sandbox is attached
	app.syncEngine = syncer.New(app.tree)
	app.syncEngine.SetReporter(metrics.SyncReporter{})
	app.unobserve = append(app.unobserve, app.tree.Observe(app.syncEngine))

	// Editor
	app.editor = editor.NewManager(app.tree, editor.Config{
		Debounce: config.ParseDuration(cfg.Editor.Debounce, editor.DefaultDebounce),
	})
	app.editor.SetWriteThrough(app.syncEngine)
	app.editor.SetListener(app.onTabEvent)
	app.unobserve = append(app.unobserve, app.tree.Observe(app.editor))

	// Sandbox runtime
	if app.runtime == nil {
		rt, err := newRuntime(cfg)
		if err != nil {
			return err
		}
		app.runtime = rt
	}
	if cfg.Watch.Enabled {
		app.runtime = &watchingRuntime{Runtime: app.runtime, app: app}
	}

	// Orchestrator
	app.sink = terminal.NewSink(cfg.Terminal.BufferSize)
	app.orchestrator = orchestrator.New(orchestrator.Config{
		Install:        cfg.Sandbox.GetInstallCommand(),
		Dev:            cfg.Sandbox.GetDevCommand(),
		InstallFailure: orchestrator.InstallPolicy(cfg.Sandbox.InstallFailure),
	}, app.runtime, app.syncEngine, app.sink, app.eventBus)
	hooks := metrics.OrchestratorHooks()
	recordTransition := hooks.OnTransition
	hooks.OnTransition = func(from, to orchestrator.State) {
		recordTransition(from, to)
		if to == orchestrator.StateIdle || to == orchestrator.StateFailed {
			app.stopSandboxWatch()
		}
	}
	app.orchestrator.SetHooks(hooks)

	// Projects
	app.projects = project.NewStore(projectSaveDelay)
	app.projects.OnSaved(app.onProjectSaved)
	if p, err := app.projects.Create(cfg.Project.Name); err != nil {
		log.Printf("Warning: failed to create project: %v", err)
	} else {
		log.Printf("Project %q (%s)", p.Name, p.ID)
	}

	if cfg.AutoSave.IsEnabled() {
		app.autoSave = autosave.New(
			config.ParseDuration(cfg.AutoSave.Interval, autosave.DefaultInterval),
			app.editor, app.projects)
	}

	app.workspace = workspace.New(app.projects, app.editor, app.eventBus)

	var previewHandler http.Handler
	if cfg.Preview.IsEnabled() {
		app.preview = preview.New(PreviewPrefix)
		if _, err := app.eventBus.Subscribe("sandbox.*", app.onSandboxEvent); err != nil {
			return fmt.Errorf("failed to subscribe preview: %w", err)
		}
		previewHandler = app.preview
	}

	app.apiServer = api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TLSCert:      cfg.Server.TLSCert,
		TLSKey:       cfg.Server.TLSKey,
		TLSTailscale: cfg.Server.TLSTailscale,
	}, api.Dependencies{
		Tree:         app.tree,
		Editor:       app.editor,
		Orchestrator: app.orchestrator,
		Sync:         app.syncEngine,
		Terminal:     app.sink,
		Projects:     app.projects,
		Workspace:    app.workspace,
		EventBus:     app.eventBus,
		Preview:      previewHandler,
		Version:      app.version,
	})

	return nil
}

func newRuntime(cfg *config.Config) (sandbox.Runtime, error) {
	sc := cfg.Sandbox
	probe := config.ParseDuration(sc.ReadyProbeInterval, 250*time.Millisecond)
	switch sc.Backend {
	case "docker":
		rt, err := sandbox.NewDockerRuntime(sc.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to create docker runtime: %w", err)
		}
		rt.ReadyPort = sc.DevPort
		rt.ProbeInterval = probe
		rt.Env = sc.Env
		return rt, nil
	default:
		return &sandbox.LocalRuntime{
			BaseDir:       sc.RootDir,
			ReadyPort:     sc.DevPort,
			ProbeInterval: probe,
			Env:           sc.Env,
			Keep:          sc.Keep,
		}, nil
	}
}

// Start starts background components and the API server.
func (app *App) Start(ctx context.Context) error {
	if app.autoSave != nil {
		app.autoSave.Start(ctx)
		log.Printf("AutoSave: every %s", app.autoSave.Interval())
	}

	// Start API server in background
	go func() {
		log.Printf("Starting API server on %s", app.apiServer.Addr())
		if err := app.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()

	if app.config.Sandbox.AutoLaunch {
		if err := app.orchestrator.Launch(ctx); err != nil {
			log.Printf("Warning: failed to launch sandbox: %v", err)
		}
	}

	return nil
}

// Run starts the app and blocks until shutdown.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	}

	return app.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop API server first to stop accepting new requests
	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}
	}

	if app.autoSave != nil {
		app.autoSave.Stop()
	}

	if app.orchestrator != nil {
		if err := app.orchestrator.Teardown(shutdownCtx); err != nil {
			log.Printf("Error tearing down sandbox: %v", err)
		}
	}
	app.stopSandboxWatch()

	for _, fn := range app.unobserve {
		fn()
	}
	app.unobserve = nil

	if app.syncEngine != nil {
		app.syncEngine.Close()
	}
	if app.editor != nil {
		app.editor.Close()
	}
	app.stopTreeForwarder()

	// Close event bus
	if app.eventBus != nil {
		app.eventBus.Close()
	}

	log.Println("Shutdown complete")
	return nil
}

// Stop signals the app to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}

// Handler returns the API router, for tests and embedding.
func (app *App) Handler() http.Handler {
	return app.apiServer.Router()
}

// Tree returns the project tree.
func (app *App) Tree() *filetree.Tree { return app.tree }

// Editor returns the editor session manager.
func (app *App) Editor() *editor.Manager { return app.editor }

// Orchestrator returns the process orchestrator.
func (app *App) Orchestrator() *orchestrator.Orchestrator { return app.orchestrator }

// Events returns the event bus.
func (app *App) Events() *events.Bus { return app.eventBus }

// Preview returns the preview proxy, or nil when disabled.
func (app *App) Preview() *preview.Proxy { return app.preview }

func (app *App) publish(typ string, payload map[string]interface{}) {
	if err := app.eventBus.Publish(context.Background(), events.Event{Type: typ, Payload: payload}); err != nil {
		log.Printf("EventBus: failed to publish %s: %v", typ, err)
	}
}

func (app *App) onTabEvent(event string, tab editor.Tab) {
	metrics.SetOpenTabs(len(app.editor.Tabs()))
	switch event {
	case editor.EventOpened, editor.EventActivated, editor.EventClosed:
		app.projects.SetActiveFile(app.editor.Active())
	}
	app.publish(event, map[string]interface{}{
		"path":     tab.Path,
		"is_dirty": tab.Dirty,
		"active":   tab.Active,
	})
}

func (app *App) onProjectSaved(p project.Project, at time.Time) {
	n := app.editor.MarkAllSaved()
	metrics.RecordProjectSave()
	app.publish(events.ProjectSaved, map[string]interface{}{
		"id":       p.ID,
		"name":     p.Name,
		"saved_at": at,
		"tabs":     n,
	})
}

// onSandboxEvent points the preview proxy at the dev server.
func (app *App) onSandboxEvent(ctx context.Context, e events.Event) {
	switch e.Type {
	case events.SandboxReady:
		rawURL, _ := e.Payload["url"].(string)
		if err := app.preview.SetTarget(rawURL); err != nil {
			log.Printf("Preview: %v", err)
			return
		}
		log.Printf("Preview: proxying %s to %s", PreviewPrefix, app.preview.Target())
	case events.SandboxState:
		to := fmt.Sprint(e.Payload["to"])
		if to == string(orchestrator.StateIdle) || to == string(orchestrator.StateFailed) {
			_ = app.preview.SetTarget("")
		}
	}
}

func (app *App) startTreeForwarder() {
	app.treeEvents = make(chan filetree.Mutation, 256)
	app.treeCount = make(chan struct{}, 1)
	app.treeStop = make(chan struct{})
	app.unobserve = append(app.unobserve, app.tree.Observe(filetree.ObserverFunc(func(m filetree.Mutation) {
		select {
		case app.treeEvents <- m:
		case <-app.treeStop:
		}
		if m.Op != filetree.OpWrite {
			select {
			case app.treeCount <- struct{}{}:
			default:
			}
		}
	})))
	metrics.SetTreeEntries(len(filetree.Paths(app.tree.Snapshot())))

	app.treeDone.Add(2)
	go func() {
		defer app.treeDone.Done()
		for {
			select {
			case m := <-app.treeEvents:
				app.forwardMutation(m)
			case <-app.treeStop:
				return
			}
		}
	}()
	// Counting takes the tree read lock, so it must never run on the
	// goroutine the observer waits on.
	go func() {
		defer app.treeDone.Done()
		for {
			select {
			case <-app.treeCount:
				metrics.SetTreeEntries(len(filetree.Paths(app.tree.Snapshot())))
			case <-app.treeStop:
				return
			}
		}
	}()
}

func (app *App) stopTreeForwarder() {
	if app.treeStop == nil {
		return
	}
	close(app.treeStop)
	app.treeDone.Wait()
	app.treeStop = nil
}

func (app *App) forwardMutation(m filetree.Mutation) {
	payload := map[string]interface{}{
		"path":    m.Path,
		"kind":    m.Kind.String(),
		"version": m.Version,
	}
	var typ string
	switch m.Op {
	case filetree.OpCreate:
		typ = events.TreeCreated
	case filetree.OpRename:
		typ = events.TreeRenamed
		payload["old_path"] = m.OldPath
	case filetree.OpDelete:
		typ = events.TreeDeleted
	case filetree.OpWrite:
		typ = events.TreeWritten
	default:
		return
	}
	app.publish(typ, payload)
}

// watchingRuntime starts a filesystem watcher on every local sandbox it
// boots.
type watchingRuntime struct {
	sandbox.Runtime
	app *App
}

func (r *watchingRuntime) Boot(ctx context.Context) (sandbox.Sandbox, error) {
	sb, err := r.Runtime.Boot(ctx)
	if err != nil {
		return nil, err
	}
	if local, ok := sb.(*sandbox.LocalSandbox); ok {
		r.app.startSandboxWatch(local.Root())
	}
	return sb, nil
}

func (app *App) startSandboxWatch(root string) {
	app.watchMu.Lock()
	defer app.watchMu.Unlock()

	if app.sandboxWatch != nil {
		app.sandboxWatch.Close()
		app.sandboxWatch = nil
	}
	w, err := watcher.New(root, app.eventBus, watcher.Config{
		Debounce: config.ParseDuration(app.config.Watch.Debounce, watcher.DefaultDebounce),
		Ignore:   app.config.Watch.Ignore,
	})
	if err != nil {
		log.Printf("Watcher: failed to watch %s: %v", root, err)
		return
	}
	app.sandboxWatch = w
	log.Printf("Watcher: watching sandbox %s", root)
}

func (app *App) stopSandboxWatch() {
	app.watchMu.Lock()
	defer app.watchMu.Unlock()

	if app.sandboxWatch != nil {
		app.sandboxWatch.Close()
		app.sandboxWatch = nil
	}
}
