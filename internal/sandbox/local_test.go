// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bootLocal(t *testing.T, rt *LocalRuntime) *LocalSandbox {
	t.Helper()
	if rt.BaseDir == "" {
		rt.BaseDir = t.TempDir()
	}
	sb, err := rt.Boot(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sb.Close() })
	return sb.(*LocalSandbox)
}

func readFile(t *testing.T, sb *LocalSandbox, p string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(sb.Root(), filepath.FromSlash(p)))
	require.NoError(t, err)
	return string(data)
}

func TestLocalSandbox_ParentMustExist(t *testing.T) {
	sb := bootLocal(t, &LocalRuntime{})
	ctx := context.Background()

	var pnf *PathNotFoundError
	err := sb.WriteFile(ctx, "src/index.js", "x")
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "src/index.js", pnf.Path)

	err = sb.Mkdir(ctx, "a/b", false)
	require.ErrorAs(t, err, &pnf)

	require.NoError(t, sb.Mkdir(ctx, "src", false))
	require.NoError(t, sb.Mkdir(ctx, "src", false))
	require.NoError(t, sb.WriteFile(ctx, "src/index.js", "console.log(1)"))
	assert.Equal(t, "console.log(1)", readFile(t, sb, "src/index.js"))

	require.NoError(t, sb.Mkdir(ctx, "a/b/c", true))
	info, err := os.Stat(filepath.Join(sb.Root(), "a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalSandbox_Mount(t *testing.T) {
	sb := bootLocal(t, &LocalRuntime{})

	m := Manifest{
		"src":          DirEntry(),
		"src/lib":      DirEntry(),
		"src/index.js": FileEntry("console.log(1)"),
		"src/lib/a.js": FileEntry("a"),
		"package.json": FileEntry("{}"),
		"empty":        DirEntry(),
	}
	require.NoError(t, sb.Mount(context.Background(), m))

	assert.Equal(t, "console.log(1)", readFile(t, sb, "src/index.js"))
	assert.Equal(t, "a", readFile(t, sb, "src/lib/a.js"))
	assert.Equal(t, "{}", readFile(t, sb, "package.json"))
	info, err := os.Stat(filepath.Join(sb.Root(), "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalSandbox_RenameRemove(t *testing.T) {
	sb := bootLocal(t, &LocalRuntime{})
	ctx := context.Background()
	require.NoError(t, sb.Mkdir(ctx, "src", false))
	require.NoError(t, sb.WriteFile(ctx, "src/a.js", "a"))

	require.NoError(t, sb.Rename(ctx, "src", "lib"))
	assert.Equal(t, "a", readFile(t, sb, "lib/a.js"))

	var pnf *PathNotFoundError
	assert.ErrorAs(t, sb.Rename(ctx, "missing", "x"), &pnf)
	assert.ErrorAs(t, sb.Rename(ctx, "lib", "no/such/dir"), &pnf)

	require.NoError(t, sb.Remove(ctx, "lib"))
	_, err := os.Stat(filepath.Join(sb.Root(), "lib"))
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, sb.Remove(ctx, ""))
}

func TestLocalSandbox_PathsConfinedToRoot(t *testing.T) {
	sb := bootLocal(t, &LocalRuntime{})
	ctx := context.Background()

	require.NoError(t, sb.WriteFile(ctx, "../../escape.txt", "x"))
	assert.Equal(t, "x", readFile(t, sb, "escape.txt"))
}

func TestLocalSandbox_Spawn(t *testing.T) {
	sb := bootLocal(t, &LocalRuntime{})
	ctx := context.Background()

	p, err := sb.Spawn(ctx, "sh", "-c", "echo hello; exit 3")
	require.NoError(t, err)
	out, _ := io.ReadAll(p.Output())
	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Contains(t, string(out), "hello")
}

func TestLocalSandbox_SpawnRunsInRoot(t *testing.T) {
	sb := bootLocal(t, &LocalRuntime{})
	ctx := context.Background()
	require.NoError(t, sb.WriteFile(ctx, "marker.txt", "here"))

	p, err := sb.Spawn(ctx, "cat", "marker.txt")
	require.NoError(t, err)
	out, _ := io.ReadAll(p.Output())
	code, _ := p.Wait()
	assert.Equal(t, 0, code)
	assert.Contains(t, string(out), "here")
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestLocalSandbox_ServerReadyProbe(t *testing.T) {
	port := freePort(t)
	sb := bootLocal(t, &LocalRuntime{ReadyPort: port, ProbeInterval: 20 * time.Millisecond})

	type ready struct {
		port int
		url  string
	}
	got := make(chan ready, 1)
	sb.OnServerReady(func(port int, url string) {
		got <- ready{port, url}
	})

	p, err := sb.Serve(context.Background(), "sleep", "10")
	require.NoError(t, err)

	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", itoa(port)))
	require.NoError(t, err)
	defer l.Close()

	select {
	case r := <-got:
		assert.Equal(t, port, r.port)
		assert.Equal(t, "http://localhost:"+itoa(port), r.url)
	case <-time.After(3 * time.Second):
		t.Fatal("server-ready not fired")
	}

	require.NoError(t, sb.Close())
	_, err = p.Wait()
	assert.NoError(t, err)
	_, err = os.Stat(sb.Root())
	assert.True(t, os.IsNotExist(err))
}

func TestLocalSandbox_ServerReadyPortAlreadyTaken(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	sb := bootLocal(t, &LocalRuntime{ReadyPort: port, ProbeInterval: 10 * time.Millisecond})
	fired := make(chan struct{}, 1)
	sb.OnServerReady(func(int, string) { fired <- struct{}{} })

	_, err = sb.Serve(context.Background(), "sleep", "10")
	require.NoError(t, err)

	select {
	case <-fired:
		t.Fatal("ready fired for a port held by another program")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestLocalSandbox_SpawnDoesNotProbe(t *testing.T) {
	port := freePort(t)
	sb := bootLocal(t, &LocalRuntime{ReadyPort: port, ProbeInterval: 10 * time.Millisecond})
	fired := make(chan struct{}, 1)
	sb.OnServerReady(func(int, string) { fired <- struct{}{} })

	_, err := sb.Spawn(context.Background(), "sleep", "10")
	require.NoError(t, err)

	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", itoa(port)))
	require.NoError(t, err)
	defer l.Close()

	select {
	case <-fired:
		t.Fatal("install-style spawn must not report server-ready")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestLocalSandbox_Closed(t *testing.T) {
	sb := bootLocal(t, &LocalRuntime{})
	require.NoError(t, sb.Close())

	assert.ErrorIs(t, sb.WriteFile(context.Background(), "a", "b"), ErrClosed)
	_, err := sb.Spawn(context.Background(), "true")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManifest_SortedPaths(t *testing.T) {
	m := Manifest{
		"src/lib/a.js": FileEntry("a"),
		"src":          DirEntry(),
		"README.md":    FileEntry(""),
		"src/lib":      DirEntry(),
	}
	assert.Equal(t, []string{"README.md", "src", "src/lib", "src/lib/a.js"}, m.SortedPaths())
	assert.Equal(t, 2, m.Files())
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
