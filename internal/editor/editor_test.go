// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package editor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/arbor/internal/filetree"
)

type recorder struct {
	mu     sync.Mutex
	writes []string
}

func (r *recorder) WriteThrough(path, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, path+"="+content)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
	times  []time.Time
}

func (l *eventLog) listen(event string, tab Tab) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event+" "+tab.Path)
	l.times = append(l.times, time.Now())
}

func (l *eventLog) count(event string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if len(e) >= len(event) && e[:len(event)] == event {
			n++
		}
	}
	return n
}

func setup(t *testing.T, delay time.Duration) (*Manager, *filetree.Tree, *recorder, *eventLog) {
	t.Helper()
	tree := filetree.New()
	require.NoError(t, tree.WriteFile("src/index.js", "console.log(1)"))
	require.NoError(t, tree.WriteFile("src/app.css", "body {}"))

	m := NewManager(tree, Config{Debounce: delay})
	t.Cleanup(m.Close)
	tree.Observe(m)
	rec := &recorder{}
	m.SetWriteThrough(rec)
	log := &eventLog{}
	m.SetListener(log.listen)
	return m, tree, rec, log
}

func TestManager_OpenFile(t *testing.T) {
	m, _, _, log := setup(t, time.Second)

	tab := m.OpenFile("src/index.js", "index.js", "console.log(1)")
	assert.Equal(t, "src/index.js", tab.Path)
	assert.True(t, tab.Active)
	assert.False(t, tab.Dirty)

	m.OpenFile("src/app.css", "app.css", "body {}")
	assert.Equal(t, "src/app.css", m.Active())

	again := m.OpenFile("src/index.js", "index.js", "ignored")
	assert.Equal(t, "console.log(1)", again.Content)
	assert.Equal(t, "src/index.js", m.Active())
	assert.Len(t, m.Tabs(), 2)
	assert.Equal(t, 2, log.count(EventOpened))
}

func TestManager_OpenSeedsFromTree(t *testing.T) {
	m, _, _, _ := setup(t, time.Second)

	tab, err := m.Open("src/app.css")
	require.NoError(t, err)
	assert.Equal(t, "app.css", tab.Name)
	assert.Equal(t, "body {}", tab.Content)

	_, err = m.Open("missing.js")
	assert.True(t, filetree.IsNotFound(err))
	_, err = m.Open("src")
	assert.Error(t, err)
}

func TestManager_UpdateContent_DoubleWrite(t *testing.T) {
	m, tree, rec, _ := setup(t, time.Second)
	m.OpenFile("src/index.js", "index.js", "console.log(1)")

	require.NoError(t, m.UpdateContent("src/index.js", "console.log(2)"))

	tab, ok := m.Tab("src/index.js")
	require.True(t, ok)
	assert.True(t, tab.Dirty)
	assert.Equal(t, "console.log(2)", tab.Content)

	content, _ := tree.Find("src/index.js").(*filetree.File).Content()
	assert.Equal(t, "console.log(2)", content)
	assert.Equal(t, []string{"src/index.js=console.log(2)"}, rec.all())
	assert.True(t, m.HasDirty())
}

// slowTree delays the first SetContent so a second edit can overtake it.
type slowTree struct {
	*filetree.Tree
	once  sync.Once
	delay time.Duration
}

func (s *slowTree) SetContent(path, content string) error {
	s.once.Do(func() { time.Sleep(s.delay) })
	return s.Tree.SetContent(path, content)
}

func TestManager_UpdateContent_ConcurrentEditsStayOrdered(t *testing.T) {
	tree := filetree.New()
	require.NoError(t, tree.WriteFile("a.txt", "zero"))
	slow := &slowTree{Tree: tree, delay: 50 * time.Millisecond}
	m := NewManager(slow, Config{Debounce: time.Second})
	t.Cleanup(m.Close)
	rec := &recorder{}
	m.SetWriteThrough(rec)
	_, err := m.Open("a.txt")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, m.UpdateContent("a.txt", "first"))
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.UpdateContent("a.txt", "second"))
	<-done

	tab, ok := m.Tab("a.txt")
	require.True(t, ok)
	f := tree.Find("a.txt").(*filetree.File)
	content, _ := f.Content()
	assert.Equal(t, tab.Content, content, "tree must match the buffer")

	writes := rec.all()
	require.NotEmpty(t, writes)
	assert.Equal(t, "a.txt="+tab.Content, writes[len(writes)-1])
}

func TestManager_ActivationEvents(t *testing.T) {
	m, _, _, log := setup(t, time.Second)
	m.OpenFile("src/index.js", "index.js", "")
	m.OpenFile("src/app.css", "app.css", "")
	assert.Equal(t, 0, log.count(EventActivated))

	require.NoError(t, m.SetActive("src/index.js"))
	m.OpenFile("src/app.css", "app.css", "")
	assert.Equal(t, 2, log.count(EventActivated))
	assert.Equal(t, "src/app.css", m.Active())

	assert.Error(t, m.SetActive("missing.js"))
	assert.Equal(t, 2, log.count(EventActivated))
}

func TestManager_UpdateContent_NoTab(t *testing.T) {
	m, _, rec, _ := setup(t, time.Second)

	err := m.UpdateContent("src/index.js", "x")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Empty(t, rec.all())
}

func TestManager_DebounceRapidEdits(t *testing.T) {
	const delay = 200 * time.Millisecond
	m, _, _, log := setup(t, delay)
	m.OpenFile("src/index.js", "index.js", "")

	var last time.Time
	for i := 0; i < 10; i++ {
		require.NoError(t, m.UpdateContent("src/index.js", string(rune('a'+i))))
		last = time.Now()
		tab, _ := m.Tab("src/index.js")
		assert.True(t, tab.Dirty)
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		tab, _ := m.Tab("src/index.js")
		return !tab.Dirty
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(2 * delay)
	assert.Equal(t, 1, log.count(EventClean))

	log.mu.Lock()
	var cleanAt time.Time
	for i, e := range log.events {
		if e == EventClean+" src/index.js" {
			cleanAt = log.times[i]
		}
	}
	log.mu.Unlock()
	assert.GreaterOrEqual(t, cleanAt.Sub(last), delay-5*time.Millisecond)
}

func TestManager_CloseTabCancelsClean(t *testing.T) {
	m, _, _, log := setup(t, 50*time.Millisecond)
	m.OpenFile("src/index.js", "index.js", "")
	m.OpenFile("src/app.css", "app.css", "")
	require.NoError(t, m.UpdateContent("src/index.js", "x"))

	require.NoError(t, m.CloseTab("src/index.js"))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, log.count(EventClean))
	assert.Equal(t, "src/app.css", m.Active())

	var nf *NotFoundError
	assert.ErrorAs(t, m.CloseTab("src/index.js"), &nf)
}

func TestManager_CloseActive(t *testing.T) {
	m, _, _, _ := setup(t, time.Second)
	assert.False(t, m.CloseActive())

	m.OpenFile("src/index.js", "index.js", "")
	m.OpenFile("src/app.css", "app.css", "")
	require.NoError(t, m.SetActive("src/index.js"))

	assert.True(t, m.CloseActive())
	assert.Equal(t, "src/app.css", m.Active())
	assert.True(t, m.CloseActive())
	assert.Equal(t, "", m.Active())
	assert.Empty(t, m.Tabs())
}

func TestManager_MarkAllSaved(t *testing.T) {
	m, _, _, log := setup(t, time.Second)
	m.OpenFile("src/index.js", "index.js", "")
	m.OpenFile("src/app.css", "app.css", "")
	require.NoError(t, m.UpdateContent("src/index.js", "x"))

	assert.Equal(t, 1, m.MarkAllSaved())
	assert.False(t, m.HasDirty())
	assert.Equal(t, 1, log.count(EventSaved))
}

func TestManager_FollowsRenames(t *testing.T) {
	m, tree, _, _ := setup(t, 50*time.Millisecond)
	m.OpenFile("src/index.js", "index.js", "")
	require.NoError(t, m.UpdateContent("src/index.js", "x"))

	require.NoError(t, tree.Rename("src", "lib"))

	tab, ok := m.Tab("lib/index.js")
	require.True(t, ok)
	assert.Equal(t, "index.js", tab.Name)
	assert.Equal(t, "lib/index.js", m.Active())
	_, ok = m.Tab("src/index.js")
	assert.False(t, ok)

	assert.Eventually(t, func() bool {
		tab, _ := m.Tab("lib/index.js")
		return !tab.Dirty
	}, time.Second, 10*time.Millisecond)
}

func TestManager_DeletedFileTabStaysOpen(t *testing.T) {
	m, tree, rec, _ := setup(t, time.Second)
	m.OpenFile("src/index.js", "index.js", "")
	require.NoError(t, tree.Delete("src/index.js"))

	_, ok := m.Tab("src/index.js")
	assert.True(t, ok)

	require.NoError(t, m.UpdateContent("src/index.js", "kept"))
	tab, _ := m.Tab("src/index.js")
	assert.Equal(t, "kept", tab.Content)
	assert.Empty(t, rec.all())
}
