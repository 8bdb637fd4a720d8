// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, LatestVersion, seen)
	assert.Equal(t, LatestVersion, rec.Header().Get(Header))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(Header, "2026-01-01")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "2026-01-01", seen)
}

func TestTransform(t *testing.T) {
	assert.Equal(t, LatestVersion, FromContext(context.Background()))

	RegisterTransformer("2026-01-01", "tabs.list", func(data interface{}) interface{} {
		return "old:" + data.(string)
	})
	assert.Equal(t, "old:x", Transform("2026-01-01", "tabs.list", "x"))
	assert.Equal(t, "x", Transform("2026-01-01", "tree.get", "x"))
	assert.Equal(t, "x", Transform(LatestVersion, "tabs.list", "x"))
	assert.Equal(t, "x", Transform("1999-01-01", "tabs.list", "x"))
}
