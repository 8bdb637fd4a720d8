// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wingedpig/arbor/internal/filetree"
	"github.com/wingedpig/arbor/internal/syncer"
)

// TreeHandler handles project tree requests.
type TreeHandler struct {
	tree *filetree.Tree
}

// NewTreeHandler creates a new tree handler.
func NewTreeHandler(tree *filetree.Tree) *TreeHandler {
	return &TreeHandler{tree: tree}
}

// CreateRequest creates a file or directory.
type CreateRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
}

// RenameRequest renames or moves an entry.
type RenameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type treeResponse struct {
	Version uint64        `json:"version"`
	Root    *filetree.Dir `json:"root"`
}

// Get returns the whole tree.
func (h *TreeHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteVersioned(w, r, http.StatusOK, "tree.get", treeResponse{
		Version: h.tree.Version(),
		Root:    h.tree.Snapshot(),
	})
}

// Manifest returns the mount manifest of the current tree.
func (h *TreeHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, syncer.BuildManifest(h.tree.Snapshot()))
}

// Create adds a file or directory.
func (h *TreeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decode(w, r, &req) {
		return
	}
	kind, err := filetree.ParseKind(req.Kind)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	e, err := h.tree.Create(req.Parent, req.Name, kind)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, e)
}

// Rename moves an entry to a new path.
func (h *TreeHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	if req.From == "" || req.To == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "from and to are required")
		return
	}
	if err := h.tree.Rename(req.From, req.To); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.tree.Find(req.To))
}

// Delete removes an entry. Deletion requires confirm=true.
func (h *TreeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if r.URL.Query().Get("confirm") != "true" {
		WriteErrorWithDetails(w, http.StatusBadRequest, ErrBadRequest,
			"deletion requires confirm=true", map[string]interface{}{"path": path})
		return
	}
	if err := h.tree.Delete(path); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "path": filetree.Clean(path)})
}

// File returns a single entry with its content.
func (h *TreeHandler) File(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	e := h.tree.Find(path)
	if e == nil {
		WriteDomainError(w, &filetree.NotFoundError{Path: filetree.Clean(path)})
		return
	}
	WriteJSON(w, http.StatusOK, e)
}
