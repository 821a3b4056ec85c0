// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecoverer_PanicValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "string", value: "plantilla rota"},
		{name: "error", value: errors.New("nil map write")},
		{name: "int", value: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.value)
			}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/posts", nil))

			if rr.Code != http.StatusInternalServerError {
				t.Errorf("status: got %d, want 500", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), "Internal Server Error") {
				t.Errorf("body: got %q", rr.Body.String())
			}

			entry := lastEntry(t, buf)
			if entry["msg"] != "panic recovered" || entry["level"] != "ERROR" {
				t.Errorf("log entry: got %v", entry)
			}
			if entry["path"] != "/admin/posts" {
				t.Errorf("logged path: got %v", entry["path"])
			}
			if stack, _ := entry["stack"].(string); !strings.Contains(stack, "goroutine") {
				t.Error("stack trace missing from log entry")
			}
		})
	}
}

func TestRecoverer_PassThrough(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusAccepted || rr.Body.String() != "ok" {
		t.Errorf("got %d %q, want 202 \"ok\"", rr.Code, rr.Body.String())
	}
}

// TestRecoverer_RepanicsAbortHandler leaves http.ErrAbortHandler to net/http.
func TestRecoverer_RepanicsAbortHandler(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("ServeHTTP should have panicked")
}
