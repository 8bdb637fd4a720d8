// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/arbor/internal/config"
	"github.com/wingedpig/arbor/internal/events"
	"github.com/wingedpig/arbor/internal/orchestrator"
	"github.com/wingedpig/arbor/internal/sandbox"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) (*App, *sandbox.MockRuntime, *httptest.Server) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Project.Name = "demo"
	cfg.Editor.Debounce = "20ms"
	off := false
	cfg.AutoSave.Enabled = &off
	if mutate != nil {
		mutate(cfg)
	}

	rt := sandbox.NewMockRuntime()
	rt.Configure = func(sb *sandbox.MockSandbox) {
		sb.Scripts["npm install"] = sandbox.MockScript{Output: "added 1 package\n"}
		sb.Scripts["npm run dev"] = sandbox.MockScript{Output: "ready\n", Block: true}
	}

	app, err := New(Options{Config: cfg, Runtime: rt, Version: "test"})
	require.NoError(t, err)
	require.NoError(t, app.Initialize(context.Background()))
	t.Cleanup(func() { app.Shutdown(context.Background()) })

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return app, rt, srv
}

func post(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func waitState(t *testing.T, app *App, states ...orchestrator.State) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := app.Orchestrator().WaitState(ctx, states...)
	require.NoError(t, err, "stuck in %s", st.State)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sandbox.Backend = "vm"

	_, err := New(Options{Config: cfg})
	require.Error(t, err)

	var verr *config.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestNew_HostPortOverride(t *testing.T) {
	app, err := New(Options{Config: config.DefaultConfig(), Host: "0.0.0.0", Port: 9999})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", app.Config().Server.Host)
	assert.Equal(t, 9999, app.Config().Server.Port)
}

func TestApp_LaunchSyncsTreeAndProxiesPreview(t *testing.T) {
	app, rt, srv := newTestApp(t, nil)

	resp := post(t, srv.URL+"/api/v1/tree", map[string]string{"parent": "", "name": "index.js", "kind": "file"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post(t, srv.URL+"/api/v1/sandbox/launch", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	waitState(t, app, orchestrator.StateStarting)
	sb := rt.Last()
	require.NotNil(t, sb)
	_, ok := sb.File("index.js")
	assert.True(t, ok, "tree should be mounted into the sandbox")

	sb.FireServerReady(5173, "http://localhost:5173")
	waitState(t, app, orchestrator.StateReady)
	assert.Eventually(t, func() bool {
		return app.Preview().Target() == "http://localhost:5173"
	}, 2*time.Second, 10*time.Millisecond)

	// Edits made while running are written through.
	require.NoError(t, app.Tree().WriteFile("index.js", "console.log(2)"))
	assert.Eventually(t, func() bool {
		c, _ := sb.File("index.js")
		return c == "console.log(2)"
	}, 2*time.Second, 10*time.Millisecond)

	resp = post(t, srv.URL+"/api/v1/sandbox/teardown", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	waitState(t, app, orchestrator.StateIdle)
	assert.Eventually(t, func() bool {
		return app.Preview().Target() == ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestApp_TreeMutationsArePublished(t *testing.T) {
	app, _, _ := newTestApp(t, nil)

	require.NoError(t, app.Tree().MkdirAll("src"))
	require.NoError(t, app.Tree().WriteFile("src/main.js", "x"))
	require.NoError(t, app.Tree().Rename("src/main.js", "src/app.js"))

	assert.Eventually(t, func() bool {
		return len(app.Events().History(events.Filter{Types: []string{events.TreeRenamed}})) == 1
	}, 2*time.Second, 10*time.Millisecond)

	renamed := app.Events().History(events.Filter{Types: []string{events.TreeRenamed}})[0]
	assert.Equal(t, "src/app.js", renamed.Payload["path"])
	assert.Equal(t, "src/main.js", renamed.Payload["old_path"])
	assert.NotEmpty(t, app.Events().History(events.Filter{Types: []string{"tree.*"}}))
}

func TestApp_ProjectSaveMarksTabsClean(t *testing.T) {
	app, _, srv := newTestApp(t, nil)

	require.NoError(t, app.Tree().WriteFile("a.txt", "one"))
	_, err := app.Editor().Open("a.txt")
	require.NoError(t, err)
	require.NoError(t, app.Editor().UpdateContent("a.txt", "two"))
	require.True(t, app.Editor().HasDirty())

	resp := post(t, srv.URL+"/api/v1/projects/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.False(t, app.Editor().HasDirty())
	assert.Len(t, app.Events().History(events.Filter{Types: []string{events.ProjectSaved}}), 1)
}

func currentActiveFile(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/v1/projects")
	require.NoError(t, err)
	defer resp.Body.Close()
	var env struct {
		Data struct {
			Current  string `json:"current"`
			Projects []struct {
				ID         string `json:"id"`
				ActiveFile string `json:"active_file"`
			} `json:"projects"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	for _, p := range env.Data.Projects {
		if p.ID == env.Data.Current {
			return p.ActiveFile
		}
	}
	t.Fatal("no current project")
	return ""
}

func TestApp_ActiveFileFollowsTabs(t *testing.T) {
	app, _, srv := newTestApp(t, nil)
	require.NoError(t, app.Tree().WriteFile("a.txt", "a"))
	require.NoError(t, app.Tree().WriteFile("b.txt", "b"))

	require.Equal(t, http.StatusCreated, post(t, srv.URL+"/api/v1/tabs", map[string]string{"path": "a.txt"}).StatusCode)
	require.Equal(t, http.StatusCreated, post(t, srv.URL+"/api/v1/tabs", map[string]string{"path": "b.txt"}).StatusCode)
	assert.Equal(t, "b.txt", currentActiveFile(t, srv))

	require.Equal(t, http.StatusOK, post(t, srv.URL+"/api/v1/tabs/a.txt/activate", nil).StatusCode)
	assert.Equal(t, "a.txt", currentActiveFile(t, srv))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/tabs/a.txt", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "b.txt", currentActiveFile(t, srv))
}

func TestApp_PreviewDisabled(t *testing.T) {
	app, _, srv := newTestApp(t, func(cfg *config.Config) {
		off := false
		cfg.Preview.Enabled = &off
	})
	assert.Nil(t, app.Preview())

	resp, err := http.Get(srv.URL + "/preview/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
