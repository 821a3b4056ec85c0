// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"estrategas/internal/access"
	"estrategas/internal/auth"
	"estrategas/internal/middleware"
	"estrategas/internal/models"
	"estrategas/internal/render"
	"estrategas/internal/session"
)

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	renderer *render.Renderer
	sessions *session.Store
	service  *auth.Service
	registry *access.Registry
}

// NewAuth creates a new Auth handler group.
func NewAuth(renderer *render.Renderer, sessions *session.Store, service *auth.Service, registry *access.Registry) *Auth {
	return &Auth{
		renderer: renderer,
		sessions: sessions,
		service:  service,
		registry: registry,
	}
}

// Page renders the sign-in form, or the sign-up form with ?mode=signup.
// Signed-in visitors are sent home.
func (a *Auth) Page(w http.ResponseWriter, r *http.Request) {
	if middleware.GateFromCtx(r.Context()).State() != access.Unauthenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	mode := "signin"
	if r.URL.Query().Get("mode") == "signup" {
		mode = "signup"
	}
	a.form(w, r, http.StatusOK, authView{Mode: mode})
}

// SignIn checks the credentials and starts a session.
func (a *Auth) SignIn(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	u, err := a.service.SignInWithPassword(r.Context(), email, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		a.form(w, r, http.StatusUnauthorized, authView{
			Mode:  "signin",
			Email: email,
			Error: "Email o contraseña incorrectos",
		})
		return
	}
	if err != nil {
		slog.Error("sign in failed", "error", err)
		a.form(w, r, http.StatusServiceUnavailable, authView{
			Mode:  "signin",
			Email: email,
			Error: "No pudimos iniciar sesión. Inténtalo de nuevo en unos minutos.",
		})
		return
	}

	a.start(w, r, u, "", session.Flash{Kind: flashSuccess, Title: "Sesión iniciada", Message: "Bienvenido de nuevo"})
}

// SignUp registers a new identity with a member profile. An email that is
// already registered falls back to signing in with the same credentials.
func (a *Auth) SignUp(w http.ResponseWriter, r *http.Request) {
	in := auth.SignUpInput{
		Email:       strings.TrimSpace(r.FormValue("email")),
		Password:    r.FormValue("password"),
		DisplayName: strings.TrimSpace(r.FormValue("display_name")),
	}
	view := authView{Mode: "signup", Email: in.Email, DisplayName: in.DisplayName}

	u, created, err := a.service.SignUpOrSignIn(r.Context(), in)
	var inputErr *auth.InputError
	switch {
	case errors.As(err, &inputErr):
		view.Errors = inputErr.Fields
		a.form(w, r, http.StatusUnprocessableEntity, view)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		view.Error = "Este email ya está registrado y la contraseña no coincide"
		a.form(w, r, http.StatusUnauthorized, view)
		return
	case err != nil:
		slog.Error("sign up failed", "error", err)
		view.Error = "No pudimos crear la cuenta. Inténtalo de nuevo en unos minutos."
		a.form(w, r, http.StatusServiceUnavailable, view)
		return
	}

	flash := session.Flash{Kind: flashSuccess, Title: "Sesión iniciada", Message: "Este email ya tenía una cuenta"}
	if created {
		slog.Info("identity registered", "identity_id", u.ID)
		flash = session.Flash{Kind: flashSuccess, Title: "Cuenta creada", Message: "Bienvenido a Estrategas"}
	}
	a.start(w, r, u, in.DisplayName, flash)
}

// SignOut destroys the session and drops its gate. Dropping the gate is
// the single invalidation point: in-flight fetches holding it go stale.
func (a *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	id, err := a.sessions.Destroy(r.Context(), w, r)
	if err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	if id != "" {
		a.registry.Drop(id)
	}

	// The old session is gone; the notice rides on a fresh anonymous one.
	if err := a.sessions.Flash(r.Context(), w, nil, session.Flash{Kind: flashInfo, Title: "Sesión cerrada"}); err != nil {
		slog.Warn("queue flash failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// start replaces any existing session with a fresh authenticated one and
// moves its gate to the unknown-role state. The role resolves on the next
// request.
func (a *Auth) start(w http.ResponseWriter, r *http.Request, u *models.Identity, displayName string, flash session.Flash) {
	ctx := r.Context()

	if old := middleware.SessionFromCtx(ctx); old != nil && old.ID != "" {
		if _, err := a.sessions.Destroy(ctx, w, r); err != nil {
			slog.Warn("destroy previous session failed", "error", err)
		}
		a.registry.Drop(old.ID)
	}

	data := &session.Data{
		IdentityID:  u.ID,
		Email:       u.Email,
		DisplayName: displayName,
		Flashes:     []session.Flash{flash},
	}
	id, err := a.sessions.Create(ctx, w, data)
	if err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	a.registry.Gate(id).SignedIn(*u)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// authView is the data behind the auth template.
type authView struct {
	Mode        string
	Email       string
	DisplayName string
	Error       string
	Errors      map[string]string
}

func (a *Auth) form(w http.ResponseWriter, r *http.Request, status int, v authView) {
	title := "Iniciar sesión"
	if v.Mode == "signup" {
		title = "Crear cuenta"
	}
	if v.Errors == nil {
		v.Errors = map[string]string{}
	}
	a.renderer.Status(w, r, status, "auth", &render.PageData{
		Title:   title,
		Nav:     "auth",
		Flashes: popFlashes(r, a.sessions),
		Data: map[string]any{
			"Mode":        v.Mode,
			"Email":       v.Email,
			"DisplayName": v.DisplayName,
			"Error":       v.Error,
			"Errors":      v.Errors,
		},
	})
}
