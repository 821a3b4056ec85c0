// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"estrategas/internal/cache"
	"estrategas/internal/content"
	"estrategas/internal/render"
	"estrategas/internal/session"
	"estrategas/internal/storage"
	"estrategas/internal/store"
)

// HomeLimit is how many posts the home page shows.
const HomeLimit = 6

// Public groups handlers for the public-facing site. Pages for anonymous
// visitors are served from the page cache when possible.
type Public struct {
	renderer  *render.Renderer
	sessions  *session.Store
	content   *content.Repository
	pageCache *cache.PageCache
}

// NewPublic creates a new Public handler group. pageCache may be nil.
func NewPublic(renderer *render.Renderer, sessions *session.Store, repo *content.Repository, pageCache *cache.PageCache) *Public {
	return &Public{
		renderer:  renderer,
		sessions:  sessions,
		content:   repo,
		pageCache: pageCache,
	}
}

// Home renders the six newest published posts.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	slot, hit := serveCached(w, r, p.pageCache)
	if hit {
		return
	}

	posts, err := p.content.ListPublished(r.Context(), content.Query{Sort: store.SortNewest, Limit: HomeLimit})
	if err != nil {
		slog.Error("list home posts failed", "error", err)
		p.unavailable(w, r, err)
		return
	}

	servePage(w, r, p.renderer, slot, p.sessions, "home", &render.PageData{
		Title: "Inicio",
		Nav:   "home",
		Data:  map[string]any{"Posts": posts},
	})
}

// Articles renders the published archive with section filter, sort and
// free-text search over title and excerpt.
func (p *Public) Articles(w http.ResponseWriter, r *http.Request) {
	slot, hit := serveCached(w, r, p.pageCache)
	if hit {
		return
	}

	q := r.URL.Query()
	query := content.Query{
		Search: strings.TrimSpace(q.Get("q")),
		Sort:   normalizeSort(q.Get("sort")),
	}
	if id, err := uuid.Parse(q.Get("section")); err == nil {
		query.SectionID = &id
	}

	ctx := r.Context()
	posts, err := p.content.ListPublished(ctx, query)
	if err != nil {
		slog.Error("list articles failed", "error", err)
		p.unavailable(w, r, err)
		return
	}
	sections, err := p.content.Sections(ctx)
	if err != nil {
		slog.Error("list sections failed", "error", err)
		p.unavailable(w, r, err)
		return
	}

	servePage(w, r, p.renderer, slot, p.sessions, "articles", &render.PageData{
		Title: "Artículos",
		Nav:   "articles",
		Data: map[string]any{
			"Posts":     posts,
			"Sections":  sections,
			"SectionID": query.SectionID,
			"Sort":      query.Sort,
			"Search":    query.Search,
		},
	})
}

// Article renders a single published post. Missing, unpublished and
// malformed ids all get the not-found view.
func (p *Public) Article(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		p.notFound(w, r)
		return
	}

	slot, hit := serveCached(w, r, p.pageCache)
	if hit {
		return
	}

	post, err := p.content.Get(r.Context(), id)
	if errors.Is(err, content.ErrNotFound) {
		p.notFound(w, r)
		return
	}
	if err != nil {
		slog.Error("get article failed", "error", err, "id", id)
		p.unavailable(w, r, err)
		return
	}

	servePage(w, r, p.renderer, slot, p.sessions, "article", &render.PageData{
		Title: post.Title,
		Nav:   "articles",
		Data:  map[string]any{"Post": post},
	})
}

// About renders the static about page.
func (p *Public) About(w http.ResponseWriter, r *http.Request) {
	slot, hit := serveCached(w, r, p.pageCache)
	if hit {
		return
	}
	servePage(w, r, p.renderer, slot, p.sessions, "about", &render.PageData{
		Title: "Nosotros",
		Nav:   "about",
	})
}

// ContactPage renders the contact form. It carries a CSRF token and is
// never cached.
func (p *Public) ContactPage(w http.ResponseWriter, r *http.Request) {
	p.renderer.Page(w, r, "contact", &render.PageData{
		Title:   "Contacto",
		Nav:     "contact",
		Flashes: popFlashes(r, p.sessions),
		Data:    map[string]any{"Form": ContactForm{}, "Errors": map[string]string{}},
	})
}

// ContactSubmit validates the contact form, logs the message and
// acknowledges it with a flash.
func (p *Public) ContactSubmit(w http.ResponseWriter, r *http.Request) {
	form := ContactForm{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Message: strings.TrimSpace(r.FormValue("message")),
	}

	if errs := validateContact(form); len(errs) > 0 {
		p.renderer.Status(w, r, http.StatusUnprocessableEntity, "contact", &render.PageData{
			Title: "Contacto",
			Nav:   "contact",
			Data:  map[string]any{"Form": form, "Errors": errs},
		})
		return
	}

	slog.Info("contact message received",
		"name", form.Name,
		"email", form.Email,
		"subject", form.Subject,
		"length", len(form.Message),
	)

	redirectWithFlash(w, r, p.sessions, "/contact", session.Flash{
		Kind:    flashSuccess,
		Title:   "Mensaje enviado",
		Message: "Gracias por escribirnos. Te responderemos pronto.",
	})
}

// NotFound renders the not-found view for unknown routes.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderer.Status(w, r, http.StatusNotFound, "error", &render.PageData{
		Title: "Página no encontrada",
		Data: map[string]any{
			"Heading": "Página no encontrada",
			"Message": "La página que buscas no existe.",
		},
	})
}

func (p *Public) notFound(w http.ResponseWriter, r *http.Request) {
	p.renderer.Status(w, r, http.StatusNotFound, "not_found", &render.PageData{
		Title: "Artículo no encontrado",
		Nav:   "articles",
	})
}

func (p *Public) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	p.renderer.Status(w, r, http.StatusServiceUnavailable, "error", &render.PageData{
		Title:   "Servicio no disponible",
		Flashes: []session.Flash{backendFlash("Error al cargar el contenido", err)},
		Data:    map[string]any{"Heading": "Servicio no disponible"},
	})
}

// normalizeSort maps the query value onto a known sort, newest by default.
func normalizeSort(s string) string {
	switch s {
	case store.SortOldest, store.SortTitle:
		return s
	default:
		return store.SortNewest
	}
}

// Uploads serves objects from an in-memory bucket. It is mounted only when
// no object storage is configured, so development uploads stay viewable.
func Uploads(bucket *storage.Memory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj, ok := bucket.Get(chi.URLParam(r, "key"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", obj.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		_, _ = w.Write(obj.Data)
	}
}
