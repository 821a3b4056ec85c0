// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the public site and
// the admin console. Every page is paired with the base layout, which
// draws the navigation from the caller's identity and role.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"estrategas/internal/access"
	"estrategas/internal/markdown"
	"estrategas/internal/middleware"
	"estrategas/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to templates.
type PageData struct {
	Title     string          // Page title for <title> tag
	Nav       string          // Active navigation entry ("home", "articles", "admin", ...)
	Session   *session.Data   // Current session (nil for anonymous visitors)
	CSRFToken string          // CSRF token for forms
	Flashes   []session.Flash // One-time notices, already popped by the caller
	Data      map[string]any  // Page-specific data

	// Filled from the access gate.
	SignedIn    bool
	IsAdmin     bool
	DisplayName string
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// New creates a Renderer by parsing all templates from the embedded
// filesystem.
func New() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			// deref safely dereferences a string pointer for use in templates.
			"deref": func(s *string) string {
				if s == nil {
					return ""
				}
				return *s
			},
			// uuidEq compares a *uuid.UUID pointer with a uuid.UUID value.
			"uuidEq": func(ptr *uuid.UUID, val uuid.UUID) bool {
				return ptr != nil && *ptr == val
			},
			"fecha":    FormatDate,
			"markdown": markdown.Render,
			"active": func(current, target string) string {
				if current == target {
					return "active"
				}
				return ""
			},
			// fieldError looks up a validation message; errs may be nil.
			"fieldError": func(errs map[string]string, field string) string {
				return errs[field]
			},
		},
	}

	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}

	for _, page := range pages {
		name := strings.TrimPrefix(page, "templates/")
		if name == "base.html" {
			continue
		}

		tmpl, err := template.New("base.html").Funcs(r.funcMap).ParseFS(
			templateFS, "templates/base.html", page,
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[strings.TrimSuffix(name, ".html")] = tmpl
	}

	return r, nil
}

// Render executes the named page with the layout into a byte slice. The
// CSRF token, session and gate-derived fields are injected from the
// request context.
func (rn *Renderer) Render(r *http.Request, name string, data *PageData) ([]byte, error) {
	tmpl, ok := rn.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}

	ctx := r.Context()
	data.CSRFToken = middleware.CSRFTokenFromCtx(ctx)
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(ctx)
	}

	gate := middleware.GateFromCtx(ctx)
	state := gate.State()
	data.SignedIn = state != access.Unauthenticated
	data.IsAdmin = state == access.Admin
	if p := gate.Profile(); p != nil && p.DisplayName != "" {
		data.DisplayName = p.DisplayName
	} else if data.Session != nil && data.Session.DisplayName != "" {
		data.DisplayName = data.Session.DisplayName
	} else if id, ok := gate.Identity(); ok {
		data.DisplayName = id.Email
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Page renders a full page with status 200.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.Status(w, r, http.StatusOK, name, data)
}

// Status renders a full page with the given status code. The page is
// rendered into a buffer first so a template error never leaves a
// half-written response.
func (rn *Renderer) Status(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	body, err := rn.Render(r, name, data)
	if err != nil {
		slog.Error("render failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	Write(w, status, body)
}

// Write sends an already rendered HTML body.
func Write(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatDate formats t as a long Spanish date, e.g. "5 de marzo de 2026".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d de %s de %d", t.Day(), months[t.Month()-1], t.Year())
}
