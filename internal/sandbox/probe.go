// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	defaultProbeInterval = 250 * time.Millisecond
	probeDialTimeout     = 200 * time.Millisecond
)

// readyNotifier holds server-ready handlers and probes a TCP port on behalf
// of spawned processes.
type readyNotifier struct {
	mu       sync.Mutex
	handlers []ReadyHandler
	host     string
	port     int
	interval time.Duration
	closed   chan struct{}
	once     sync.Once
}

func newReadyNotifier(host string, port int, interval time.Duration) *readyNotifier {
	if host == "" {
		host = "127.0.0.1"
	}
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &readyNotifier{
		host:     host,
		port:     port,
		interval: interval,
		closed:   make(chan struct{}),
	}
}

func (n *readyNotifier) add(h ReadyHandler) {
	n.mu.Lock()
	n.handlers = append(n.handlers, h)
	n.mu.Unlock()
}

func (n *readyNotifier) fire(port int, url string) {
	n.mu.Lock()
	handlers := append([]ReadyHandler(nil), n.handlers...)
	n.mu.Unlock()
	for _, h := range handlers {
		h(port, url)
	}
}

func (n *readyNotifier) close() {
	n.once.Do(func() { close(n.closed) })
}

func (n *readyNotifier) addr() string {
	return net.JoinHostPort(n.host, strconv.Itoa(n.port))
}

func (n *readyNotifier) listening() bool {
	conn, err := net.DialTimeout("tcp", n.addr(), probeDialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// occupied reports whether the ready port is already taken. Callers check it
// before starting the server so a port held by another program is not
// mistaken for the server coming up.
func (n *readyNotifier) occupied() bool {
	return n.port > 0 && n.listening()
}

// watch polls the port until it accepts connections, exited is closed or
// the notifier is closed. busy is the result of occupied taken before the
// process started; a busy port is never probed.
func (n *readyNotifier) watch(exited <-chan struct{}, busy bool) {
	if n.port <= 0 || busy {
		return
	}
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-exited:
			return
		case <-n.closed:
			return
		case <-ticker.C:
			if n.listening() {
				n.fire(n.port, fmt.Sprintf("http://localhost:%d", n.port))
				return
			}
		}
	}
}
