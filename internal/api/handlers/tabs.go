// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wingedpig/arbor/internal/editor"
)

// TabHandler handles editor tab requests.
type TabHandler struct {
	editor *editor.Manager
}

// NewTabHandler creates a new tab handler.
func NewTabHandler(m *editor.Manager) *TabHandler {
	return &TabHandler{editor: m}
}

// OpenRequest opens a tab.
type OpenRequest struct {
	Path string `json:"path"`
}

// UpdateRequest replaces a tab's buffer.
type UpdateRequest struct {
	Content *string `json:"content"`
}

type tabsResponse struct {
	Active string       `json:"active"`
	Tabs   []editor.Tab `json:"tabs"`
}

// List returns open tabs in display order.
func (h *TabHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteVersioned(w, r, http.StatusOK, "tabs.list", tabsResponse{
		Active: h.editor.Active(),
		Tabs:   h.editor.Tabs(),
	})
}

// Open opens (or focuses) the tab for a tree file.
func (h *TabHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "path is required")
		return
	}
	tab, err := h.editor.Open(req.Path)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, tab)
}

// Update applies an edit to an open tab.
func (h *TabHandler) Update(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	var req UpdateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Content == nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "content is required")
		return
	}
	if err := h.editor.UpdateContent(path, *req.Content); err != nil {
		WriteDomainError(w, err)
		return
	}
	tab, _ := h.editor.Tab(path)
	WriteJSON(w, http.StatusOK, tab)
}

// Close closes a tab.
func (h *TabHandler) Close(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if err := h.editor.CloseTab(path); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tabsResponse{Active: h.editor.Active(), Tabs: h.editor.Tabs()})
}

// Activate focuses a tab.
func (h *TabHandler) Activate(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if err := h.editor.SetActive(path); err != nil {
		WriteDomainError(w, err)
		return
	}
	tab, _ := h.editor.Tab(path)
	WriteJSON(w, http.StatusOK, tab)
}
