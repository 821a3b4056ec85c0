// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"estrategas/internal/access"
	"estrategas/internal/models"
	"estrategas/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the session data.
	SessionKey contextKey = "session"

	// GateKey is the context key for the request's access gate.
	GateKey contextKey = "gate"
)

// Flash shown to signed-in members who try to open the admin panel.
var accessDenied = session.Flash{
	Kind:    "error",
	Title:   "Acceso denegado",
	Message: "No tienes permisos para acceder al panel de administración",
}

// LoadSession retrieves the session and the access gate bound to it and
// stores both in the request context. Anonymous visitors get a fresh
// unauthenticated gate. This middleware does NOT enforce authentication.
func LoadSession(store *session.Store, registry *access.Registry, profiles access.ProfileFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			data, err := store.Get(ctx, r)
			if err != nil {
				// Treat as anonymous rather than failing the page.
				slog.Warn("session load failed", "error", err)
				data = nil
			}

			gate := access.NewGate()
			if data != nil && data.ID != "" {
				gate = registry.Gate(data.ID)
			}
			if data.Authenticated() {
				if gate.State() == access.Unauthenticated {
					gate.SignedIn(models.Identity{ID: data.IdentityID, Email: data.Email})
				}
				if gate.State() == access.UnknownRole {
					if _, err := gate.Resolve(ctx, profiles); err != nil {
						slog.Warn("role resolution failed", "error", err, "identity_id", data.IdentityID)
					}
				}
			}

			ctx = context.WithValue(ctx, GateKey, gate)
			if data != nil {
				ctx = context.WithValue(ctx, SessionKey, data)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth redirects unauthenticated visitors to the sign-in page.
// Must be applied after LoadSession in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromCtx(r.Context()).Authenticated() {
			http.Redirect(w, r, "/auth", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin re-resolves the caller's role on every request so that a
// revoked admin loses access immediately. Members are sent home with an
// "access denied" notice; a failed role lookup is reported as 503 without
// granting anything. Must be applied after LoadSession.
func RequireAdmin(store *session.Store, profiles access.ProfileFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			gate := GateFromCtx(ctx)

			if gate.State() == access.Unauthenticated {
				http.Redirect(w, r, "/auth", http.StatusSeeOther)
				return
			}

			if _, err := gate.Resolve(ctx, profiles); err != nil {
				switch {
				case errors.Is(err, access.ErrUnauthenticated), errors.Is(err, access.ErrStale):
					http.Redirect(w, r, "/auth", http.StatusSeeOther)
				default:
					slog.Error("admin role check failed", "error", err)
					http.Error(w, "Servicio no disponible", http.StatusServiceUnavailable)
				}
				return
			}

			if err := gate.RequireAdmin(); err != nil {
				if err := store.Flash(ctx, w, SessionFromCtx(ctx), accessDenied); err != nil {
					slog.Warn("flash failed", "error", err)
				}
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if no session is loaded.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}

// GateFromCtx returns the request's access gate. It never returns nil:
// without LoadSession in the chain the caller gets an unauthenticated gate.
func GateFromCtx(ctx context.Context) *access.Gate {
	if g, ok := ctx.Value(GateKey).(*access.Gate); ok && g != nil {
		return g
	}
	return access.NewGate()
}
