// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package filetree

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tree := New()
	require.NoError(t, tree.WriteFile("src/index.js", "console.log(1)"))
	require.NoError(t, tree.WriteFile("src/lib/util.js", "export {}"))
	require.NoError(t, tree.WriteFile("package.json", "{}"))
	return tree
}

// checkInvariants verifies that every path is the join of its ancestors and
// that sibling names are unique.
func checkInvariants(t *testing.T, root *Dir) {
	t.Helper()
	var visit func(d *Dir)
	visit = func(d *Dir) {
		seen := make(map[string]bool)
		for _, c := range d.children {
			assert.False(t, seen[c.Name()], "duplicate sibling %q in %q", c.Name(), d.Path())
			seen[c.Name()] = true
			assert.Equal(t, Join(d.Path(), c.Name()), c.Path())
			if d.Path() != "" {
				assert.True(t, strings.HasPrefix(c.Path(), d.Path()+"/"))
			}
			if cd, ok := c.(*Dir); ok {
				visit(cd)
			}
		}
	}
	visit(root)
}

func TestTree_Create(t *testing.T) {
	tree := New()

	e, err := tree.Create("", "src", KindDir)
	require.NoError(t, err)
	assert.Equal(t, "src", e.Path())
	assert.Equal(t, KindDir, e.Kind())

	f, err := tree.Create("src", "app.js", KindFile)
	require.NoError(t, err)
	assert.Equal(t, "src/app.js", f.Path())
	content, loaded := f.(*File).Content()
	assert.Equal(t, "", content)
	assert.True(t, loaded)
}

func TestTree_CreateErrors(t *testing.T) {
	tree := sampleTree(t)

	tests := []struct {
		name   string
		parent string
		entry  string
		check  func(error) bool
	}{
		{"sibling collision", "src", "index.js", IsConflict},
		{"missing parent", "nope", "a.js", IsNotFound},
		{"parent is a file", "package.json", "a.js", IsNotFound},
		{"empty name", "src", "", isInvalidName},
		{"slash in name", "src", "a/b", isInvalidName},
		{"dot dot", "src", "..", isInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tree.Version()
			_, err := tree.Create(tt.parent, tt.entry, KindFile)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type %T", err)
			assert.Equal(t, before, tree.Version(), "failed create must not mutate")
		})
	}
}

func isInvalidName(err error) bool {
	_, ok := err.(*InvalidNameError)
	return ok
}

func TestTree_Rename(t *testing.T) {
	tree := sampleTree(t)

	require.NoError(t, tree.Rename("src", "app"))
	assert.Nil(t, tree.Find("src"))
	assert.NotNil(t, tree.Find("app/index.js"))
	f := tree.Find("app/lib/util.js")
	require.NotNil(t, f)
	assert.Equal(t, "app/lib/util.js", f.Path())
	content, _ := f.(*File).Content()
	assert.Equal(t, "export {}", content)

	checkInvariants(t, tree.Snapshot())
}

func TestTree_RenameMove(t *testing.T) {
	tree := sampleTree(t)

	require.NoError(t, tree.Rename("package.json", "src/lib/package.json"))
	assert.NotNil(t, tree.Find("src/lib/package.json"))
	assert.Nil(t, tree.Find("package.json"))
}

func TestTree_RenameErrors(t *testing.T) {
	tree := sampleTree(t)

	err := tree.Rename("missing", "other")
	assert.True(t, IsNotFound(err))

	err = tree.Rename("src/index.js", "package.json")
	assert.True(t, IsConflict(err))

	err = tree.Rename("src/index.js", "nowhere/index.js")
	assert.True(t, IsNotFound(err))

	err = tree.Rename("src", "src/lib/src")
	var ip *InvalidPathError
	assert.ErrorAs(t, err, &ip)

	err = tree.Rename("", "x")
	assert.ErrorAs(t, err, &ip)
}

func TestTree_RenameRoundTrip(t *testing.T) {
	tree := sampleTree(t)
	before := tree.Snapshot()

	require.NoError(t, tree.Rename("src", "renamed"))
	require.NoError(t, tree.Rename("renamed", "src"))

	assert.True(t, Equal(before, tree.Snapshot()))
}

func TestTree_Delete(t *testing.T) {
	tree := sampleTree(t)

	require.NoError(t, tree.Delete("src"))
	assert.Nil(t, tree.Find("src"))
	assert.Nil(t, tree.Find("src/lib/util.js"))
	assert.NotNil(t, tree.Find("package.json"))

	assert.True(t, IsNotFound(tree.Delete("src")))
}

func TestTree_SetContent(t *testing.T) {
	tree := sampleTree(t)

	require.NoError(t, tree.SetContent("src/index.js", "changed"))
	content, _ := tree.Find("src/index.js").(*File).Content()
	assert.Equal(t, "changed", content)

	assert.True(t, IsNotFound(tree.SetContent("missing.js", "x")))
	var ip *InvalidPathError
	assert.ErrorAs(t, tree.SetContent("src", "x"), &ip)
}

func TestTree_FindReturnsCopy(t *testing.T) {
	tree := sampleTree(t)

	d := tree.Find("src").(*Dir)
	d.children = nil
	assert.Equal(t, 2, tree.Find("src").(*Dir).Len())
}

func TestTree_ChildOrder(t *testing.T) {
	tree := New()
	for _, name := range []string{"b.js", "a.js"} {
		_, err := tree.Create("", name, KindFile)
		require.NoError(t, err)
	}
	for _, name := range []string{"zdir", "adir"} {
		_, err := tree.Create("", name, KindDir)
		require.NoError(t, err)
	}

	var names []string
	for _, c := range tree.Snapshot().Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"adir", "zdir", "a.js", "b.js"}, names)
}

func TestTree_ObserverOrder(t *testing.T) {
	tree := New()
	var got []Mutation
	unsubscribe := tree.Observe(ObserverFunc(func(m Mutation) {
		got = append(got, m)
	}))

	require.NoError(t, tree.MkdirAll("a/b"))
	require.NoError(t, tree.WriteFile("a/b/c.txt", "hi"))
	require.NoError(t, tree.Rename("a/b", "a/d"))
	require.NoError(t, tree.Delete("a"))

	var ops []string
	for i, m := range got {
		assert.Equal(t, uint64(i+1), m.Version)
		ops = append(ops, fmt.Sprintf("%s %s", m.Op, m.Path))
	}
	assert.Equal(t, []string{
		"create a",
		"create a/b",
		"create a/b/c.txt",
		"write a/b/c.txt",
		"rename a/d",
		"delete a",
	}, ops)
	assert.Equal(t, "a/b", got[4].OldPath)

	unsubscribe()
	require.NoError(t, tree.MkdirAll("x"))
	assert.Len(t, got, 6)
}

func TestTree_RandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tree := New()
	names := []string{"a", "b", "c", "d.js", "e.css"}

	for i := 0; i < 2000; i++ {
		paths := append([]string{""}, Paths(tree.Snapshot())...)
		p := paths[rng.Intn(len(paths))]
		switch rng.Intn(4) {
		case 0, 1:
			kind := KindFile
			if rng.Intn(2) == 0 {
				kind = KindDir
			}
			tree.Create(p, names[rng.Intn(len(names))], kind)
		case 2:
			target := paths[rng.Intn(len(paths))]
			tree.Rename(p, Join(target, names[rng.Intn(len(names))]))
		case 3:
			tree.Delete(p)
		}
	}
	checkInvariants(t, tree.Snapshot())
}

func TestKind_JSON(t *testing.T) {
	tree := sampleTree(t)
	data, err := json.Marshal(tree.Find("src/lib"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"lib","kind":"directory","path":"src/lib","children":[
		{"name":"util.js","kind":"file","path":"src/lib/util.js","content":"export {}"}]}`, string(data))

	k, err := ParseKind("dir")
	require.NoError(t, err)
	assert.Equal(t, KindDir, k)
	_, err = ParseKind("symlink")
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	fsys := fstest.MapFS{
		"package.json":            {Data: []byte(`{"name":"demo"}`)},
		"src/main.js":             {Data: []byte("main()")},
		"node_modules/x/index.js": {Data: []byte("skip")},
		".git/HEAD":               {Data: []byte("ref")},
		"public/logo.bin":         {Data: []byte{0xff, 0xfe, 0x00}},
		"public/index.html":       {Data: []byte("<html></html>")},
	}
	tree := New()
	require.NoError(t, LoadDir(tree, fsys))

	assert.NotNil(t, tree.Find("src/main.js"))
	assert.NotNil(t, tree.Find("public/index.html"))
	assert.Nil(t, tree.Find("public/logo.bin"))
	assert.Nil(t, tree.Find("node_modules"))
	assert.Nil(t, tree.Find(".git"))
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "a/b", Clean("/a//b/"))
	parent, name := Split("a/b/c")
	assert.Equal(t, "a/b", parent)
	assert.Equal(t, "c", name)
	parent, name = Split("c")
	assert.Equal(t, "", parent)
	assert.Equal(t, "c", name)
	assert.True(t, IsAncestor("a", "a/b"))
	assert.False(t, IsAncestor("a", "ab/c"))
	assert.False(t, IsAncestor("a", "a"))
}
