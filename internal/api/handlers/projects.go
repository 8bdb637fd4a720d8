// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wingedpig/arbor/internal/project"
)

// ProjectHandler handles project requests.
type ProjectHandler struct {
	store *project.Store
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(store *project.Store) *ProjectHandler {
	return &ProjectHandler{store: store}
}

// CreateProjectRequest creates a project.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

type projectsResponse struct {
	Projects []project.Project `json:"projects"`
	Current  string            `json:"current,omitempty"`
	Save     project.SaveState `json:"save"`
}

// List returns all projects and the save state.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := projectsResponse{Projects: h.store.List(), Save: h.store.State()}
	if cur, ok := h.store.Current(); ok {
		resp.Current = cur.ID
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Create adds a project and makes it current.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.store.Create(req.Name)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

// Load makes a project current.
func (h *ProjectHandler) Load(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Load(mux.Vars(r)["id"])
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// Save saves the current project.
func (h *ProjectHandler) Save(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Save(r.Context()); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.store.State())
}

// Delete removes a project.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.Delete(id); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}
