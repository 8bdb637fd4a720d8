// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/arbor/internal/events"
)

type collector struct {
	mu      sync.Mutex
	changes []Change
}

func (c *collector) add(ch Change) {
	c.mu.Lock()
	c.changes = append(c.changes, ch)
	c.mu.Unlock()
}

func (c *collector) find(path string) (Change, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.changes {
		if ch.Path == path {
			return ch, true
		}
	}
	return Change{}, false
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.changes)
}

func newWatcher(t *testing.T, bus events.Publisher) (*Watcher, string, *collector) {
	t.Helper()
	root := t.TempDir()
	w, err := New(root, bus, Config{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	c := &collector{}
	w.OnChange(c.add)
	return w, root, c
}

func TestWatcher_FileWrite(t *testing.T) {
	bus := events.NewBus(events.Config{HistorySize: 50})
	defer bus.Close()
	_, root, c := newWatcher(t, bus)

	require.NoError(t, os.WriteFile(filepath.Join(root, "package-lock.json"), []byte("{}"), 0644))

	assert.Eventually(t, func() bool {
		_, ok := c.find("package-lock.json")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	ch, _ := c.find("package-lock.json")
	assert.Equal(t, "create", ch.Op)

	hist := bus.History(events.Filter{Types: []string{events.FSChanged}})
	require.NotEmpty(t, hist)
	assert.Equal(t, "package-lock.json", hist[0].Payload["path"])
}

func TestWatcher_BurstCoalesced(t *testing.T) {
	_, root, c := newWatcher(t, nil)
	path := filepath.Join(root, "out.txt")
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0644))
	}
	assert.Eventually(t, func() bool { return c.len() > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, c.len())
}

func TestWatcher_NewDirectoriesWatched(t *testing.T) {
	w, root, c := newWatcher(t, nil)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0755))
	assert.Eventually(t, func() bool {
		for _, d := range w.Watching() {
			if d == "dist" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "dist", "bundle.js"), []byte("x"), 0644))
	assert.Eventually(t, func() bool {
		_, ok := c.find("dist/bundle.js")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresNodeModules(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "left-pad"), 0755))
	w, err := New(root, nil, Config{Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()
	c := &collector{}
	w.OnChange(c.add)

	assert.ElementsMatch(t, []string{""}, w.Watching())

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "x.js"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.js"), []byte("x"), 0644))
	assert.Eventually(t, func() bool {
		_, ok := c.find("index.js")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	_, ok := c.find("node_modules/x.js")
	assert.False(t, ok)
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), nil, Config{})
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nil, Config{})
	assert.Error(t, err)
}

func TestOpName(t *testing.T) {
	assert.Equal(t, "create", opName(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, "remove", opName(fsnotify.Create|fsnotify.Remove))
	assert.Equal(t, "write", opName(fsnotify.Write))
}
