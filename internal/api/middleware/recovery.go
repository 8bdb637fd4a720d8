// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"time"
)

type panicResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta struct {
		Timestamp time.Time `json:"timestamp"`
	} `json:"meta"`
}

// Recovery turns a handler panic into an INTERNAL_ERROR envelope. Aborted
// handlers (http.ErrAbortHandler) are re-raised so the server drops the
// connection as usual.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}
			log.Printf("API: panic in %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())

			var resp panicResponse
			resp.Error.Code = "INTERNAL_ERROR"
			resp.Error.Message = "Internal server error"
			resp.Meta.Timestamp = time.Now()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(resp)
		}()

		next.ServeHTTP(w, r)
	})
}
