// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for Estrategas. Handlers are
// grouped by concern (public, auth, admin) and receive their dependencies
// through the handler struct.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"estrategas/internal/access"
	"estrategas/internal/cache"
	"estrategas/internal/content"
	"estrategas/internal/middleware"
	"estrategas/internal/render"
	"estrategas/internal/session"
)

// Flash kinds understood by the layout.
const (
	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"
)

var accessDenied = session.Flash{
	Kind:    flashError,
	Title:   "Acceso denegado",
	Message: "No tienes permisos para acceder al panel de administración",
}

// popFlashes takes the queued notices off the request's session and saves
// it. A failed save is logged; the notices are still shown.
func popFlashes(r *http.Request, sessions *session.Store) []session.Flash {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil || len(sess.Flashes) == 0 {
		return nil
	}
	flashes := sess.PopFlashes()
	if err := sessions.Save(r.Context(), sess); err != nil {
		slog.Warn("save session after flash pop failed", "error", err)
	}
	return flashes
}

// redirectWithFlash queues f and redirects with 303 See Other.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, sessions *session.Store, to string, f session.Flash) {
	if err := sessions.Flash(r.Context(), w, middleware.SessionFromCtx(r.Context()), f); err != nil {
		slog.Warn("queue flash failed", "error", err, "title", f.Title)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// cacheable reports whether the response to r may be served from or
// stored in the page cache: anonymous visitors with nothing queued.
func cacheable(r *http.Request) bool {
	ctx := r.Context()
	if middleware.GateFromCtx(ctx).State() != access.Unauthenticated {
		return false
	}
	sess := middleware.SessionFromCtx(ctx)
	return sess == nil || len(sess.Flashes) == 0
}

// servePage pops the visitor's flashes into data and renders name. The
// result fills slot, which serveCached handed out before the data was read.
func servePage(w http.ResponseWriter, r *http.Request, rn *render.Renderer, slot cache.Slot, sessions *session.Store, name string, data *render.PageData) {
	data.Flashes = popFlashes(r, sessions)
	body, err := rn.Render(r, name, data)
	if err != nil {
		slog.Error("render failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	slot.Fill(r.Context(), body)
	render.Write(w, http.StatusOK, body)
}

// serveCached writes a cached page if one exists for r. On a miss it
// returns the slot the rendered page should fill; the slot is empty when
// r may not be cached.
func serveCached(w http.ResponseWriter, r *http.Request, pages *cache.PageCache) (cache.Slot, bool) {
	if pages == nil || !cacheable(r) {
		return cache.Slot{}, false
	}
	slot := pages.Lookup(r.Context(), cache.PageKey(r.URL.Path, r.URL.Query()))
	body, ok := slot.Get(r.Context())
	if !ok {
		return slot, false
	}
	w.Header().Set("X-Cache", "HIT")
	render.Write(w, http.StatusOK, body)
	return slot, true
}

// backendFlash turns a store failure into a dismissible notice carrying
// the backend's message.
func backendFlash(title string, err error) session.Flash {
	msg := "Inténtalo de nuevo en unos minutos."
	var be *content.BackendError
	if errors.As(err, &be) {
		msg = be.Error()
	}
	return session.Flash{Kind: flashError, Title: title, Message: msg}
}
