// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for
// Estrategas. Routes are organized into public, auth and admin groups with
// appropriate middleware stacks.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"estrategas/internal/access"
	"estrategas/internal/handlers"
	"estrategas/internal/middleware"
	"estrategas/internal/session"
	"estrategas/internal/storage"
	"estrategas/web"
)

// DefaultMaxBody caps request bodies that are not multipart uploads.
const DefaultMaxBody = 64 << 20

// Deps carries everything the router wires together.
type Deps struct {
	Sessions *session.Store
	Registry *access.Registry
	Profiles access.ProfileFinder

	// Limiter throttles credential and contact submissions. Optional.
	Limiter *middleware.RateLimiter
	// Uploads is mounted at /uploads/{key} when set; used when no object
	// store is configured.
	Uploads *storage.Memory

	SecureCookies bool
	MaxBody       int64

	Public *handlers.Public
	Auth   *handlers.Auth
	Admin  *handlers.Admin
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	if d.MaxBody <= 0 {
		d.MaxBody = DefaultMaxBody
	}
	throttle := func(next http.Handler) http.Handler { return next }
	if d.Limiter != nil {
		throttle = d.Limiter.Middleware
	}

	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.MaxBodySize(d.MaxBody))

	// Health check and assets: no session, no CSRF.
	r.Get("/health", healthHandler)
	r.Handle("/static/*", staticHandler())
	if d.Uploads != nil {
		r.Get("/uploads/{key}", handlers.Uploads(d.Uploads))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRF(d.SecureCookies))
		r.Use(middleware.LoadSession(d.Sessions, d.Registry, d.Profiles))

		// Public reader.
		r.Get("/", d.Public.Home)
		r.Get("/articles", d.Public.Articles)
		r.Get("/articles/{id}", d.Public.Article)
		r.Get("/about", d.Public.About)
		r.Get("/contact", d.Public.ContactPage)
		r.With(throttle).Post("/contact", d.Public.ContactSubmit)

		// Auth.
		r.Route("/auth", func(r chi.Router) {
			r.Get("/", d.Auth.Page)
			r.With(throttle).Post("/signin", d.Auth.SignIn)
			r.With(throttle).Post("/signup", d.Auth.SignUp)
			r.Post("/signout", d.Auth.SignOut)
		})

		// Admin console: signed in, then admin role re-resolved per request.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireAdmin(d.Sessions, d.Profiles))

			r.Get("/", d.Admin.List)
			r.Route("/posts", func(r chi.Router) {
				r.Get("/new", d.Admin.New)
				r.Post("/", d.Admin.Create)
				r.Get("/{id}", d.Admin.Edit)
				r.Post("/{id}", d.Admin.Update)
				r.Post("/{id}/toggle", d.Admin.Toggle)
				r.Post("/{id}/delete", d.Admin.Delete)
			})
		})

		r.NotFound(d.Public.NotFound)
	})

	return r
}

// staticHandler serves the embedded web/static tree under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("router: static assets missing: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
