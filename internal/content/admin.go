// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"estrategas/internal/access"
	"estrategas/internal/models"
	"estrategas/internal/store"
)

// Fields carries the writable attributes of a post. On Update a nil field
// leaves the stored value unchanged.
type Fields struct {
	Title     *string
	Content   *string
	Excerpt   *string
	Images    []string // nil keeps the stored list; empty clears it
	SectionID *uuid.UUID
	// ClearSection removes the section when SectionID is nil.
	ClearSection bool
	Published    *bool
}

// AdminRepository exposes the full CRUD surface. Every call re-checks the
// gate so a sign-out between calls stops further writes.
type AdminRepository struct {
	*Repository
	gate *access.Gate
}

// Admin returns the admin repository for gate, or ErrForbidden if the gate
// is not in the admin state.
func (r *Repository) Admin(gate *access.Gate) (*AdminRepository, error) {
	if err := gate.RequireAdmin(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return &AdminRepository{Repository: r, gate: gate}, nil
}

func (a *AdminRepository) check() error {
	if err := a.gate.RequireAdmin(); err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return nil
}

// List returns every post regardless of publish state, newest first unless
// q says otherwise.
func (a *AdminRepository) List(ctx context.Context, q Query) ([]models.Post, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.list(ctx, store.PostQuery{
		SectionID: q.SectionID,
		Search:    q.Search,
		Sort:      q.Sort,
		Limit:     q.Limit,
	})
}

// Find returns a post in any publish state.
func (a *AdminRepository) Find(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	p, err := a.posts.FindByID(ctx, id)
	if err != nil {
		return nil, backend("find post", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	posts := []models.Post{*p}
	if err := a.attachNames(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// Sections lists all sections by name for the admin form.
func (a *AdminRepository) Sections(ctx context.Context) ([]models.Section, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.Repository.Sections(ctx)
}

// Create validates f, derives the excerpt when blank and stores a new post
// authored by the gate's identity. Posts are drafts unless f.Published is
// explicitly true.
func (a *AdminRepository) Create(ctx context.Context, f Fields) (*models.Post, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	if err := Validate(f, true); err != nil {
		return nil, err
	}
	actor, ok := a.gate.Identity()
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, access.ErrUnauthenticated)
	}

	p := &models.Post{
		Title:    strings.TrimSpace(*f.Title),
		Content:  *f.Content,
		Images:   cleanImages(f.Images),
		AuthorID: actor.ID,
	}
	if f.Excerpt != nil {
		p.Excerpt = strings.TrimSpace(*f.Excerpt)
	}
	if f.Published != nil {
		p.Published = *f.Published
	}
	if !f.ClearSection {
		p.SectionID = f.SectionID
	}
	p.DeriveExcerpt()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	created, err := a.posts.Create(ctx, p)
	if err != nil {
		return nil, backend("create post", err)
	}
	return created, nil
}

// Update applies f to an existing post. The excerpt is re-derived only when
// the resulting excerpt is blank; the author never changes.
func (a *AdminRepository) Update(ctx context.Context, id uuid.UUID, f Fields) (*models.Post, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	if err := Validate(f, false); err != nil {
		return nil, err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	p, err := a.posts.FindByID(ctx, id)
	if err != nil {
		return nil, backend("load post", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}

	if f.Title != nil {
		p.Title = strings.TrimSpace(*f.Title)
	}
	if f.Content != nil {
		p.Content = *f.Content
	}
	if f.Excerpt != nil {
		p.Excerpt = strings.TrimSpace(*f.Excerpt)
	}
	if f.Images != nil {
		p.Images = cleanImages(f.Images)
	}
	switch {
	case f.SectionID != nil:
		p.SectionID = f.SectionID
	case f.ClearSection:
		p.SectionID = nil
	}
	if f.Published != nil {
		p.Published = *f.Published
	}
	p.DeriveExcerpt()

	updated, err := a.posts.Update(ctx, p)
	if err != nil {
		return nil, backend("update post", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// Delete removes a post immediately.
func (a *AdminRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := a.check(); err != nil {
		return err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	ok, err := a.posts.Delete(ctx, id)
	if err != nil {
		return backend("delete post", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// TogglePublished stores !current as the new publish state in a single
// write and returns it. Concurrent toggles resolve last-write-wins.
func (a *AdminRepository) TogglePublished(ctx context.Context, id uuid.UUID, current bool) (bool, error) {
	if err := a.check(); err != nil {
		return current, err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	next := !current
	ok, err := a.posts.SetPublished(ctx, id, next)
	if err != nil {
		return current, backend("toggle published", err)
	}
	if !ok {
		return current, ErrNotFound
	}
	return next, nil
}

// Validate checks f without touching the store. On create, title and
// content are required; on update they must not be blanked. Callers run it
// before any upload so a bad form costs no network round-trip.
func Validate(f Fields, create bool) error {
	errs := make(map[string]string)

	if create && f.Title == nil || f.Title != nil && strings.TrimSpace(*f.Title) == "" {
		errs["title"] = "El título es obligatorio"
	}
	if create && f.Content == nil || f.Content != nil && strings.TrimSpace(*f.Content) == "" {
		errs["content"] = "El contenido es obligatorio"
	}
	for _, img := range f.Images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		if !strings.HasPrefix(img, "http://") && !strings.HasPrefix(img, "https://") {
			errs["images"] = "Las imágenes deben ser URLs http(s)"
			break
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func cleanImages(in []string) models.ImageList {
	out := make(models.ImageList, 0, len(in))
	for _, img := range in {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}
