// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator drives a sandbox session from boot to a running dev
// server.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/sandbox"
	"github.com/wingedpig/arbor/internal/terminal"
)

const outputDrainTimeout = 2 * time.Second

// Syncer materializes the project tree in a sandbox.
type Syncer interface {
	Attach(sb sandbox.Sandbox)
	Detach()
	Bootstrap(ctx context.Context) error
}

// Hooks observe the orchestrator. All fields are optional.
type Hooks struct {
	OnTransition func(from, to State)
	OnInstalled  func(exitCode int, d time.Duration)
	OnReady      func(d time.Duration)
}

// Config configures an Orchestrator.
type Config struct {
	Install        []string
	Dev            []string
	InstallFailure InstallPolicy
}

// Status is a snapshot of the session.
type Status struct {
	State       State      `json:"state"`
	Backend     string     `json:"backend"`
	Session     string     `json:"session,omitempty"`
	URL         string     `json:"url,omitempty"`
	Port        int        `json:"port,omitempty"`
	Error       string     `json:"error,omitempty"`
	InstallExit *int       `json:"install_exit,omitempty"`
	LaunchedAt  *time.Time `json:"launched_at,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type readyEvent struct {
	port int
	url  string
}

// Orchestrator owns the sandbox session and its processes. No other
// component spawns processes in the sandbox.
type Orchestrator struct {
	cfg     Config
	runtime sandbox.Runtime
	syncer  Syncer
	sink    *terminal.Sink
	bus     events.Publisher
	hooks   Hooks

	mu         sync.Mutex
	state      State
	gen        uint64
	sb         sandbox.Sandbox
	dev        sandbox.Process
	install    sandbox.Process
	url        string
	port       int
	err        error
	installRC  *int
	launchedAt time.Time
	readyAt    time.Time
	updatedAt  time.Time
	pending    *readyEvent
	changed    chan struct{}
}

// New creates an idle orchestrator.
func New(cfg Config, rt sandbox.Runtime, syncer Syncer, sink *terminal.Sink, bus events.Publisher) *Orchestrator {
	if cfg.InstallFailure == "" {
		cfg.InstallFailure = InstallContinue
	}
	return &Orchestrator{
		cfg:       cfg,
		runtime:   rt,
		syncer:    syncer,
		sink:      sink,
		bus:       bus,
		state:     StateIdle,
		updatedAt: time.Now(),
		changed:   make(chan struct{}),
	}
}

// SetHooks installs observation hooks. Call before Launch.
func (o *Orchestrator) SetHooks(h Hooks) {
	o.mu.Lock()
	o.hooks = h
	o.mu.Unlock()
}

// Status returns the current session snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

func (o *Orchestrator) statusLocked() Status {
	st := Status{
		State:       o.state,
		Backend:     o.runtime.Name(),
		URL:         o.url,
		Port:        o.port,
		InstallExit: o.installRC,
		UpdatedAt:   o.updatedAt,
	}
	if o.sb != nil {
		st.Session = o.sb.ID()
	}
	if o.err != nil {
		st.Error = o.err.Error()
	}
	if !o.launchedAt.IsZero() {
		t := o.launchedAt
		st.LaunchedAt = &t
	}
	if !o.readyAt.IsZero() {
		t := o.readyAt
		st.ReadyAt = &t
	}
	return st
}

// WaitState blocks until the session is in one of targets or ctx ends.
func (o *Orchestrator) WaitState(ctx context.Context, targets ...State) (Status, error) {
	for {
		o.mu.Lock()
		st := o.statusLocked()
		ch := o.changed
		o.mu.Unlock()
		for _, t := range targets {
			if st.State == t {
				return st, nil
			}
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Launch starts a new session: boot, sync, install, start. It returns as
// soon as the session has left Idle; the rest runs in the background and
// cannot be cancelled. Only the first of any number of concurrent calls
// succeeds; the others get ErrAlreadyLaunched.
func (o *Orchestrator) Launch(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrAlreadyLaunched
	}
	o.gen++
	gen := o.gen
	o.launchedAt = time.Now()
	o.readyAt = time.Time{}
	o.err = nil
	o.installRC = nil
	o.url, o.port = "", 0
	o.pending = nil
	n := o.setStateLocked(StateBooting)
	o.mu.Unlock()
	o.notify(n)

	go o.run(gen)
	return nil
}

type notification struct {
	from, to State
	status   Status
	hook     func(from, to State)
}

// setStateLocked applies a validated transition. Must hold o.mu.
func (o *Orchestrator) setStateLocked(to State) notification {
	from := o.state
	o.state = to
	o.updatedAt = time.Now()
	close(o.changed)
	o.changed = make(chan struct{})
	return notification{from: from, to: to, status: o.statusLocked(), hook: o.hooks.OnTransition}
}

func (o *Orchestrator) notify(n notification) {
	log.Printf("Orchestrator: %s -> %s", n.from, n.to)
	if n.hook != nil {
		n.hook(n.from, n.to)
	}
	payload := map[string]interface{}{
		"from":   string(n.from),
		"to":     string(n.to),
		"status": n.status,
	}
	o.publish(events.SandboxState, payload)
	switch n.to {
	case StateReady:
		o.publish(events.SandboxReady, map[string]interface{}{"url": n.status.URL, "port": n.status.Port})
	case StateFailed:
		o.publish(events.SandboxFailed, map[string]interface{}{"error": n.status.Error})
	}
}

func (o *Orchestrator) publish(typ string, payload map[string]interface{}) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(context.Background(), events.Event{Type: typ, Payload: payload}); err != nil {
		log.Printf("Orchestrator: publishing %s: %v", typ, err)
	}
}

// advance moves session gen to state to. It fails if the session was torn
// down or the transition is illegal. mutate runs under the lock.
func (o *Orchestrator) advance(gen uint64, to State, mutate func()) error {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return fmt.Errorf("session superseded")
	}
	if err := ValidateTransition(o.state, to); err != nil {
		o.mu.Unlock()
		return err
	}
	if mutate != nil {
		mutate()
	}
	n := o.setStateLocked(to)
	o.mu.Unlock()
	o.notify(n)
	return nil
}

func (o *Orchestrator) fail(gen uint64, err error) {
	if advErr := o.advance(gen, StateFailed, func() { o.err = err }); advErr != nil {
		return
	}
	log.Printf("Orchestrator: %v", err)
	o.sink.Printf("Error: %v", err)
}

func (o *Orchestrator) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return gen == o.gen
}

func (o *Orchestrator) run(gen uint64) {
	ctx := context.Background()

	o.sink.Printf("Booting %s sandbox...", o.runtime.Name())
	sb, err := o.runtime.Boot(ctx)
	if err != nil {
		o.fail(gen, &LaunchError{Stage: "boot", Err: err})
		return
	}
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		sb.Close()
		return
	}
	o.sb = sb
	o.mu.Unlock()
	sb.OnServerReady(func(port int, url string) { o.serverReady(gen, port, url) })

	// Attach under the lock: a Teardown's Detach must always come after it.
	if err := o.advance(gen, StateSyncing, func() { o.syncer.Attach(sb) }); err != nil {
		return
	}
	o.sink.Printf("Syncing project files...")
	if err := o.syncer.Bootstrap(ctx); err != nil {
		o.fail(gen, &LaunchError{Stage: "sync", Err: err})
		return
	}

	if err := o.advance(gen, StateInstalling, nil); err != nil {
		return
	}
	if !o.runInstall(ctx, gen, sb) {
		return
	}

	var stashed *readyEvent
	if err := o.advance(gen, StateStarting, func() {
		stashed = o.pending
		o.pending = nil
	}); err != nil {
		return
	}
	o.startDev(ctx, gen, sb)
	if stashed != nil {
		o.serverReady(gen, stashed.port, stashed.url)
	}
}

// runInstall runs the install command to completion. It reports whether
// the launch should continue.
func (o *Orchestrator) runInstall(ctx context.Context, gen uint64, sb sandbox.Sandbox) bool {
	if len(o.cfg.Install) == 0 {
		return true
	}
	o.sink.Printf("Installing dependencies...")
	start := time.Now()
	code := -1
	proc, err := sb.Spawn(ctx, o.cfg.Install[0], o.cfg.Install[1:]...)
	if err != nil {
		log.Printf("Orchestrator: spawning install: %v", err)
		o.sink.Printf("Install failed to start: %v", err)
	} else {
		o.mu.Lock()
		o.install = proc
		o.mu.Unlock()
		drained := o.pipe(proc.Output(), terminal.SourceInstall)
		code, err = proc.Wait()
		if err != nil {
			log.Printf("Orchestrator: waiting for install: %v", err)
		}
		select {
		case <-drained:
		case <-time.After(outputDrainTimeout):
		}
	}
	if !o.current(gen) {
		return false
	}

	o.mu.Lock()
	rc := code
	o.installRC = &rc
	o.install = nil
	hook := o.hooks.OnInstalled
	o.mu.Unlock()
	if hook != nil {
		hook(code, time.Since(start))
	}

	if code == 0 {
		return true
	}
	log.Printf("Orchestrator: install exited with code %d", code)
	if o.cfg.InstallFailure == InstallFail {
		o.fail(gen, &LaunchError{Stage: "install", ExitCode: code, Err: err})
		return false
	}
	o.sink.Printf("Install exited with code %d, starting dev server anyway", code)
	return true
}

func (o *Orchestrator) startDev(ctx context.Context, gen uint64, sb sandbox.Sandbox) {
	if len(o.cfg.Dev) == 0 {
		o.fail(gen, &LaunchError{Stage: "start", Err: fmt.Errorf("no dev command configured")})
		return
	}
	o.sink.Printf("Starting dev server: %s", strings.Join(o.cfg.Dev, " "))
	proc, err := sb.Serve(ctx, o.cfg.Dev[0], o.cfg.Dev[1:]...)
	if err != nil {
		o.fail(gen, &LaunchError{Stage: "start", Err: err})
		return
	}
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		proc.Kill()
		return
	}
	o.dev = proc
	o.mu.Unlock()

	o.pipe(proc.Output(), terminal.SourceDev)
	go o.watchDev(gen, proc)
}

func (o *Orchestrator) watchDev(gen uint64, proc sandbox.Process) {
	code, _ := proc.Wait()

	o.mu.Lock()
	if gen != o.gen || o.dev != proc {
		o.mu.Unlock()
		return
	}
	o.dev = nil
	state := o.state
	o.mu.Unlock()

	switch state {
	case StateStarting:
		o.fail(gen, &LaunchError{Stage: "start", ExitCode: code})
	case StateReady:
		log.Printf("Orchestrator: dev server exited with code %d", code)
		o.sink.Printf("Dev server exited with code %d", code)
		o.publish(events.SandboxExited, map[string]interface{}{"exit_code": code})
	}
}

// pipe copies r into the sink. The returned channel closes at EOF.
func (o *Orchestrator) pipe(r io.Reader, source string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w := o.sink.Writer(source)
		io.Copy(w, r)
		w.Close()
	}()
	return done
}

// serverReady handles the sandbox server-ready event. Only a session in
// Starting becomes Ready; earlier events are held until Starting.
func (o *Orchestrator) serverReady(gen uint64, port int, rawURL string) {
	url := StripANSI(rawURL)

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	switch o.state {
	case StateStarting:
	case StateBooting, StateSyncing, StateInstalling:
		o.pending = &readyEvent{port: port, url: url}
		o.mu.Unlock()
		return
	default:
		o.mu.Unlock()
		return
	}
	launched := o.launchedAt
	hook := o.hooks.OnReady
	o.mu.Unlock()

	err := o.advance(gen, StateReady, func() {
		o.url = url
		o.port = port
		o.readyAt = time.Now()
	})
	if err != nil {
		return
	}
	o.sink.Printf("Server running at %s", url)
	if hook != nil {
		hook(time.Since(launched))
	}
}

// Teardown kills session processes, closes the sandbox and returns to
// Idle so a new session can be launched.
func (o *Orchestrator) Teardown(ctx context.Context) error {
	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return nil
	}
	o.gen++
	sb, dev, install := o.sb, o.dev, o.install
	o.sb, o.dev, o.install = nil, nil, nil
	o.url, o.port = "", 0
	o.err = nil
	o.pending = nil
	n := o.setStateLocked(StateIdle)
	o.mu.Unlock()

	o.syncer.Detach()
	for _, p := range []sandbox.Process{dev, install} {
		if p != nil {
			if err := p.Kill(); err != nil {
				log.Printf("Orchestrator: killing pid %d: %v", p.Pid(), err)
			}
		}
	}
	var err error
	if sb != nil {
		err = sb.Close()
	}
	o.notify(n)
	o.sink.Printf("Sandbox torn down")
	return err
}
