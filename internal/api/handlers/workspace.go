// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/wingedpig/arbor/internal/editor"
	"github.com/wingedpig/arbor/internal/project"
	"github.com/wingedpig/arbor/internal/workspace"
)

// WorkspaceHandler handles layout and keyboard shortcut requests.
type WorkspaceHandler struct {
	ws       *workspace.Workspace
	editor   *editor.Manager
	projects *project.Store
	orch     Orchestrator
}

// NewWorkspaceHandler creates a new workspace handler.
func NewWorkspaceHandler(ws *workspace.Workspace, ed *editor.Manager, projects *project.Store, orch Orchestrator) *WorkspaceHandler {
	return &WorkspaceHandler{ws: ws, editor: ed, projects: projects, orch: orch}
}

// ShortcutRequest carries either a chord string ("ctrl+s") or its parts.
type ShortcutRequest struct {
	Shortcut string `json:"shortcut"`
	Key      string `json:"key"`
	Ctrl     bool   `json:"ctrl"`
	Meta     bool   `json:"meta"`
	Shift    bool   `json:"shift"`
	Alt      bool   `json:"alt"`
}

// PanelRequest opens or toggles the side panel.
type PanelRequest struct {
	Panel  string `json:"panel"`
	Toggle bool   `json:"toggle"`
}

type workspaceResponse struct {
	Panel   string            `json:"panel"`
	Active  string            `json:"active"`
	Tabs    []editor.Tab      `json:"tabs"`
	Dirty   bool              `json:"dirty"`
	Project *project.Project  `json:"project,omitempty"`
	Save    project.SaveState `json:"save"`
	Sandbox string            `json:"sandbox"`
	Preview string            `json:"preview_url,omitempty"`
}

func panelName(p workspace.Panel) string {
	if p == workspace.PanelNone {
		return "none"
	}
	return string(p)
}

// Get returns the workspace layout.
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := h.orch.Status()
	resp := workspaceResponse{
		Panel:   panelName(h.ws.Panel()),
		Active:  h.editor.Active(),
		Tabs:    h.editor.Tabs(),
		Dirty:   h.editor.HasDirty(),
		Save:    h.projects.State(),
		Sandbox: string(st.State),
		Preview: st.URL,
	}
	if p, ok := h.projects.Current(); ok {
		resp.Project = &p
	}
	WriteVersioned(w, r, http.StatusOK, "workspace.get", resp)
}

// Shortcut dispatches a keyboard shortcut.
func (h *WorkspaceHandler) Shortcut(w http.ResponseWriter, r *http.Request) {
	var req ShortcutRequest
	if !decode(w, r, &req) {
		return
	}
	sc := workspace.Shortcut{Key: req.Key, Ctrl: req.Ctrl, Meta: req.Meta, Shift: req.Shift, Alt: req.Alt}
	if req.Shortcut != "" {
		parsed, err := workspace.ParseShortcut(req.Shortcut)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
			return
		}
		sc = parsed
	}
	if sc.Key == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "shortcut or key is required")
		return
	}
	WriteJSON(w, http.StatusOK, h.ws.Dispatch(r.Context(), sc))
}

// Panel opens, closes or toggles the side panel.
func (h *WorkspaceHandler) Panel(w http.ResponseWriter, r *http.Request) {
	var req PanelRequest
	if !decode(w, r, &req) {
		return
	}
	p, ok := workspace.ParsePanel(req.Panel)
	if !ok {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "panel must be one of: chat, preview, none")
		return
	}
	if req.Toggle {
		p = h.ws.TogglePanel(p)
	} else {
		h.ws.SetPanel(p)
	}
	WriteJSON(w, http.StatusOK, map[string]string{"panel": panelName(p)})
}
