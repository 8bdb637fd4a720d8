// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package terminal buffers sandbox process output for terminal views.
package terminal

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	defaultCapacity  = 2000
	subscriberBuffer = 256
	maxPartialLine   = 64 * 1024
)

// Line sources.
const (
	SourceArbor   = "arbor"
	SourceInstall = "install"
	SourceDev     = "dev"
)

// Line is a single line of output with its sequence number.
type Line struct {
	Seq    int64     `json:"seq"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// Sink is a thread-safe ring buffer of output lines with subscription
// support. Lines are stored unmodified, escape sequences included.
type Sink struct {
	mu       sync.RWMutex
	lines    []Line
	capacity int
	size     int
	head     int // next write position
	seq      int64

	subMu       sync.RWMutex
	subscribers map[chan Line]struct{}
}

// NewSink creates a sink holding at most capacity lines.
func NewSink(capacity int) *Sink {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Sink{
		lines:       make([]Line, capacity),
		capacity:    capacity,
		subscribers: make(map[chan Line]struct{}),
	}
}

// Write appends one line from source and notifies subscribers.
func (s *Sink) Write(source, text string) Line {
	s.mu.Lock()
	s.seq++
	l := Line{Seq: s.seq, Source: source, Text: text, Time: time.Now()}
	s.lines[s.head] = l
	s.head = (s.head + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
	s.mu.Unlock()

	s.subMu.RLock()
	for ch := range s.subscribers {
		select {
		case ch <- l:
		default:
			// Subscriber too slow; it can resync with Since.
		}
	}
	s.subMu.RUnlock()
	return l
}

// Printf writes a formatted "[arbor]" status line.
func (s *Sink) Printf(format string, args ...interface{}) {
	s.Write(SourceArbor, "[arbor] "+fmt.Sprintf(format, args...))
}

// Lines returns the last n lines, oldest first.
func (s *Sink) Lines(n int) []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || s.size == 0 {
		return []Line{}
	}
	if n > s.size {
		n = s.size
	}
	out := make([]Line, n)
	start := (s.head - n + s.capacity) % s.capacity
	for i := 0; i < n; i++ {
		out[i] = s.lines[(start+i)%s.capacity]
	}
	return out
}

// All returns every buffered line.
func (s *Sink) All() []Line {
	s.mu.RLock()
	n := s.size
	s.mu.RUnlock()
	return s.Lines(n)
}

// Since returns buffered lines with a sequence number greater than seq.
func (s *Sink) Since(seq int64) []Line {
	all := s.All()
	for i, l := range all {
		if l.Seq > seq {
			return all[i:]
		}
	}
	return []Line{}
}

// Sequence returns the sequence number of the last line written.
func (s *Sink) Sequence() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Clear drops every buffered line. Sequence numbers keep increasing.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = 0
	s.head = 0
	for i := range s.lines {
		s.lines[i] = Line{}
	}
}

// Subscribe returns a channel that receives new lines.
func (s *Sink) Subscribe() chan Line {
	ch := make(chan Line, subscriberBuffer)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (s *Sink) Unsubscribe(ch chan Line) {
	s.subMu.Lock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.subMu.Unlock()
}

// Writer returns an io.WriteCloser that splits a raw stream into lines
// tagged with source. Close flushes a trailing partial line.
func (s *Sink) Writer(source string) io.WriteCloser {
	return &lineWriter{sink: s, source: source}
}

type lineWriter struct {
	mu     sync.Mutex
	sink   *Sink
	source string
	buf    bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(string(data[:i]), "\r")
		w.buf.Next(i + 1)
		w.sink.Write(w.source, line)
	}
	if w.buf.Len() > maxPartialLine {
		w.sink.Write(w.source, w.buf.String())
		w.buf.Reset()
	}
	return len(p), nil
}

func (w *lineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.sink.Write(w.source, strings.TrimSuffix(w.buf.String(), "\r"))
		w.buf.Reset()
	}
	return nil
}
