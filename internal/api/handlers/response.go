// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wingedpig/arbor/internal/api/version"
	"github.com/wingedpig/arbor/internal/editor"
	"github.com/wingedpig/arbor/internal/filetree"
	"github.com/wingedpig/arbor/internal/orchestrator"
	"github.com/wingedpig/arbor/internal/project"
)

// Response is the standard API response wrapper.
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MetaInfo contains response metadata.
type MetaInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// Common error codes
const (
	ErrNotFound      = "NOT_FOUND"
	ErrBadRequest    = "BAD_REQUEST"
	ErrInternalError = "INTERNAL_ERROR"
	ErrConflict      = "CONFLICT"
	ErrSandboxError  = "SANDBOX_ERROR"
	ErrUnavailable   = "UNAVAILABLE"
)

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	resp := Response{
		Data: data,
		Meta: &MetaInfo{Timestamp: time.Now()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WriteVersioned writes data after applying the transformer registered for
// the request's API version and endpoint.
func WriteVersioned(w http.ResponseWriter, r *http.Request, status int, endpoint string, data interface{}) {
	v := version.FromContext(r.Context())
	resp := Response{
		Data: version.Transform(v, endpoint, data),
		Meta: &MetaInfo{Timestamp: time.Now(), Version: v},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithDetails(w, status, code, message, nil)
}

// WriteErrorWithDetails writes an error response with details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	resp := Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &MetaInfo{Timestamp: time.Now()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WriteDomainError maps a typed error to its HTTP status.
func WriteDomainError(w http.ResponseWriter, err error) {
	var (
		notFound    *filetree.NotFoundError
		conflict    *filetree.ConflictError
		invalidName *filetree.InvalidNameError
		invalidPath *filetree.InvalidPathError
		tabNotFound *editor.NotFoundError
		projMissing *project.NotFoundError
		launchErr   *orchestrator.LaunchError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &tabNotFound), errors.As(err, &projMissing):
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
	case errors.As(err, &conflict):
		WriteErrorWithDetails(w, http.StatusConflict, ErrConflict, err.Error(), map[string]interface{}{"path": conflict.Path})
	case errors.As(err, &invalidName), errors.As(err, &invalidPath):
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrAlreadyLaunched), errors.Is(err, orchestrator.ErrIllegalTransition):
		WriteError(w, http.StatusConflict, ErrConflict, err.Error())
	case errors.Is(err, project.ErrNoProject):
		WriteError(w, http.StatusConflict, ErrConflict, err.Error())
	case errors.As(err, &launchErr):
		WriteErrorWithDetails(w, http.StatusBadGateway, ErrSandboxError, err.Error(), map[string]interface{}{"stage": launchErr.Stage})
	default:
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
	}
}

// decode reads a JSON request body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
