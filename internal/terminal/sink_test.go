// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestSink_RingBuffer(t *testing.T) {
	s := NewSink(3)
	for i := 1; i <= 5; i++ {
		s.Write(SourceDev, fmt.Sprintf("line %d", i))
	}

	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, texts(s.All()))
	assert.Equal(t, []string{"line 4", "line 5"}, texts(s.Lines(2)))
	assert.Equal(t, int64(5), s.Sequence())
	assert.Empty(t, s.Lines(0))
}

func TestSink_Since(t *testing.T) {
	s := NewSink(10)
	for i := 1; i <= 4; i++ {
		s.Write(SourceDev, fmt.Sprintf("l%d", i))
	}
	assert.Equal(t, []string{"l3", "l4"}, texts(s.Since(2)))
	assert.Empty(t, s.Since(4))
}

func TestSink_Clear(t *testing.T) {
	s := NewSink(10)
	s.Write(SourceDev, "a")
	s.Clear()
	assert.Empty(t, s.All())
	l := s.Write(SourceDev, "b")
	assert.Equal(t, int64(2), l.Seq)
}

func TestSink_Subscribe(t *testing.T) {
	s := NewSink(10)
	ch := s.Subscribe()

	s.Printf("Installing dependencies...")
	select {
	case l := <-ch:
		assert.Equal(t, "[arbor] Installing dependencies...", l.Text)
		assert.Equal(t, SourceArbor, l.Source)
	case <-time.After(time.Second):
		t.Fatal("no line received")
	}

	s.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
	s.Unsubscribe(ch)
}

func TestSink_WriterSplitsLines(t *testing.T) {
	s := NewSink(10)
	w := s.Writer(SourceInstall)

	_, err := io.Copy(w, strings.NewReader("\x1b[32madded\x1b[0m 12 packages\r\npartial"))
	require.NoError(t, err)
	assert.Equal(t, []string{"\x1b[32madded\x1b[0m 12 packages"}, texts(s.All()))

	_, err = w.Write([]byte(" line\nnext"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []string{
		"\x1b[32madded\x1b[0m 12 packages",
		"partial line",
		"next",
	}, texts(s.All()))
	for _, l := range s.All() {
		assert.Equal(t, SourceInstall, l.Source)
	}
}
