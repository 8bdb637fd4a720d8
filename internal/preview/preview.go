// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package preview reverse proxies the running dev server so the workspace can
// embed it from the arbor origin.
package preview

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Proxy forwards requests to the current dev server URL. Until a target is
// set it answers 503.
type Proxy struct {
	prefix string

	mu     sync.RWMutex
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// New creates a proxy mounted under prefix (for example "/preview").
func New(prefix string) *Proxy {
	return &Proxy{prefix: strings.TrimSuffix(prefix, "/")}
}

// SetTarget points the proxy at rawURL. An empty string clears the target.
func (p *Proxy) SetTarget(rawURL string) error {
	if rawURL == "" {
		p.mu.Lock()
		p.target, p.proxy = nil, nil
		p.mu.Unlock()
		return nil
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid preview target %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid preview target %q: missing host", rawURL)
	}

	rp := httputil.NewSingleHostReverseProxy(u)
	rp.FlushInterval = -1
	originalDirector := rp.Director
	rp.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = u.Host
	}
	rp.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		log.Printf("Preview: proxy error [%s -> %s]: %v", req.URL.Path, u.Host, err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
	}

	p.mu.Lock()
	p.target, p.proxy = u, rp
	p.mu.Unlock()
	return nil
}

// Target returns the current target, or "" when unset.
func (p *Proxy) Target() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.target == nil {
		return ""
	}
	return p.target.String()
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	target, rp := p.target, p.proxy
	p.mu.RUnlock()
	if rp == nil {
		http.Error(w, "Preview not available: dev server is not ready", http.StatusServiceUnavailable)
		return
	}

	r2 := r.Clone(r.Context())
	r2.URL.Path = strings.TrimPrefix(r.URL.Path, p.prefix)
	if r2.URL.Path == "" {
		r2.URL.Path = "/"
	}
	r2.URL.RawPath = ""

	if isWebSocket(r2) {
		tunnel(w, r2, target)
		return
	}
	rp.ServeHTTP(w, r2)
}

// tunnel handles a WebSocket upgrade (dev server hot reload) by splicing the
// client connection to the upstream.
func tunnel(w http.ResponseWriter, r *http.Request, target *url.URL) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	upstreamConn, err := dialer.Dial("tcp", target.Host)
	if err != nil {
		log.Printf("Preview: websocket dial %s failed: %v", target.Host, err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		upstreamConn.Close()
		http.Error(w, "WebSocket hijack not supported", http.StatusInternalServerError)
		return
	}
	clientConn, clientBuf, err := hijacker.Hijack()
	if err != nil {
		upstreamConn.Close()
		log.Printf("Preview: hijack failed: %v", err)
		return
	}

	r.Host = target.Host
	r.RequestURI = ""
	if err := r.Write(upstreamConn); err != nil {
		clientConn.Close()
		upstreamConn.Close()
		log.Printf("Preview: websocket handshake to upstream failed: %v", err)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		io.Copy(clientConn, upstreamConn)
		clientConn.Close()
	}()

	go func() {
		defer wg.Done()
		if n := clientBuf.Reader.Buffered(); n > 0 {
			buffered := make([]byte, n)
			clientBuf.Read(buffered)
			upstreamConn.Write(buffered)
		}
		io.Copy(upstreamConn, clientConn)
		upstreamConn.Close()
	}()

	wg.Wait()
}

func isWebSocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
