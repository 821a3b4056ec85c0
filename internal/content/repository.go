// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content is the post repository used by the public views and the
// admin console. Public reads only ever see published posts; writes go
// through an AdminRepository that can only be obtained from an admin gate.
package content

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"estrategas/internal/models"
	"estrategas/internal/store"
)

// DefaultAuthorName is shown when a post's author has no profile or an
// empty display name.
const DefaultAuthorName = "Autor"

// DefaultTimeout bounds every store round-trip made by the repository.
const DefaultTimeout = 10 * time.Second

const (
	lookupConcurrency = 8
	lookupChunk       = 100
)

// PostStore is the persistence the repository needs for posts.
type PostStore interface {
	List(ctx context.Context, q store.PostQuery) ([]models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindPublishedByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) (*models.Post, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// ProfileStore resolves author display names.
type ProfileStore interface {
	FindByUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Profile, error)
}

// SectionStore resolves section names and lists sections for the admin form.
type SectionStore interface {
	List(ctx context.Context) ([]models.Section, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Section, error)
}

// Query narrows a listing. Zero values mean "no filter".
type Query struct {
	SectionID *uuid.UUID
	Search    string
	Sort      string
	Limit     int
}

// Repository serves content to the public views.
type Repository struct {
	posts    PostStore
	profiles ProfileStore
	sections SectionStore
	timeout  time.Duration
}

// Option configures a Repository.
type Option func(*Repository)

// WithTimeout overrides DefaultTimeout. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Repository) { r.timeout = d }
}

// NewRepository creates a Repository over the given stores.
func NewRepository(posts PostStore, profiles ProfileStore, sections SectionStore, opts ...Option) *Repository {
	r := &Repository{
		posts:    posts,
		profiles: profiles,
		sections: sections,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// ListPublished returns published posts matching q with author and section
// names attached.
func (r *Repository) ListPublished(ctx context.Context, q Query) ([]models.Post, error) {
	published := true
	return r.list(ctx, store.PostQuery{
		Published: &published,
		SectionID: q.SectionID,
		Search:    q.Search,
		Sort:      q.Sort,
		Limit:     q.Limit,
	})
}

// Get returns a published post. Missing and unpublished posts both yield
// ErrNotFound.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	p, err := r.posts.FindPublishedByID(ctx, id)
	if err != nil {
		return nil, backend("get post", err)
	}
	if p == nil || !p.Published {
		return nil, ErrNotFound
	}

	posts := []models.Post{*p}
	if err := r.attachNames(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// Sections lists all sections ordered by name.
func (r *Repository) Sections(ctx context.Context) ([]models.Section, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sections, err := r.sections.List(ctx)
	if err != nil {
		return nil, backend("list sections", err)
	}
	return sections, nil
}

func (r *Repository) list(ctx context.Context, q store.PostQuery) ([]models.Post, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	posts, err := r.posts.List(ctx, q)
	if err != nil {
		return nil, backend("list posts", err)
	}
	if err := r.attachNames(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachNames fills AuthorName and SectionName. Author and section lookups
// are deduplicated, chunked and run concurrently; the posts are only
// modified once every lookup has succeeded.
func (r *Repository) attachNames(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	authorIDs := make([]uuid.UUID, 0, len(posts))
	sectionIDs := make([]uuid.UUID, 0, len(posts))
	seenAuthor := make(map[uuid.UUID]bool)
	seenSection := make(map[uuid.UUID]bool)
	for _, p := range posts {
		if !seenAuthor[p.AuthorID] {
			seenAuthor[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
		if p.SectionID != nil && !seenSection[*p.SectionID] {
			seenSection[*p.SectionID] = true
			sectionIDs = append(sectionIDs, *p.SectionID)
		}
	}

	var (
		mu       sync.Mutex
		authors  = make(map[uuid.UUID]*models.Profile, len(authorIDs))
		sections = make(map[uuid.UUID]*models.Section, len(sectionIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)

	for _, chunk := range chunkIDs(authorIDs) {
		g.Go(func() error {
			found, err := r.profiles.FindByUserIDs(gctx, chunk)
			if err != nil {
				return backend("lookup authors", err)
			}
			mu.Lock()
			for id, p := range found {
				authors[id] = p
			}
			mu.Unlock()
			return nil
		})
	}
	for _, chunk := range chunkIDs(sectionIDs) {
		g.Go(func() error {
			found, err := r.sections.FindByIDs(gctx, chunk)
			if err != nil {
				return backend("lookup sections", err)
			}
			mu.Lock()
			for id, s := range found {
				sections[id] = s
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i := range posts {
		posts[i].AuthorName = DefaultAuthorName
		if p := authors[posts[i].AuthorID]; p != nil && strings.TrimSpace(p.DisplayName) != "" {
			posts[i].AuthorName = p.DisplayName
		}
		if posts[i].SectionID != nil {
			if s := sections[*posts[i].SectionID]; s != nil {
				posts[i].SectionName = s.Name
			}
		}
	}
	return nil
}

func chunkIDs(ids []uuid.UUID) [][]uuid.UUID {
	var chunks [][]uuid.UUID
	for len(ids) > lookupChunk {
		chunks = append(chunks, ids[:lookupChunk])
		ids = ids[lookupChunk:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
