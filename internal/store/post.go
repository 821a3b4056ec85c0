// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"estrategas/internal/models"
)

// Sort orders accepted by PostStore.List.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortTitle  = "title"
)

var sortClauses = map[string]string{
	SortNewest: "created_at DESC, id",
	SortOldest: "created_at ASC, id",
	SortTitle:  "lower(title) ASC, created_at DESC",
}

// PostQuery filters a post listing. Zero values mean "no filter".
type PostQuery struct {
	Published *bool
	SectionID *uuid.UUID
	Search    string // case-insensitive substring on title or excerpt
	Sort      string // SortNewest (default), SortOldest or SortTitle
	Limit     int
}

const postColumns = `id, title, content, excerpt, images, published,
	section_id, author_id, created_at, updated_at`

// PostStore handles all post-related database operations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	p := &models.Post{}
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Content, &p.Excerpt, &p.Images, &p.Published,
		&p.SectionID, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns posts matching q.
func (s *PostStore) List(ctx context.Context, q PostQuery) ([]models.Post, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Published != nil {
		where = append(where, "published = "+arg(*q.Published))
	}
	if q.SectionID != nil {
		where = append(where, "section_id = "+arg(*q.SectionID))
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		p := arg("%" + escapeLike(strings.ToLower(term)) + "%")
		where = append(where, "(lower(title) LIKE "+p+" OR lower(excerpt) LIKE "+p+")")
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	order, ok := sortClauses[q.Sort]
	if !ok {
		order = sortClauses[SortNewest]
	}
	query += " ORDER BY " + order

	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var items []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// FindByID retrieves a post by its UUID regardless of publish state.
// Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// FindPublishedByID retrieves a post only if it is published. Used for
// public article rendering. Returns nil if missing or unpublished.
func (s *PostStore) FindPublishedByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1 AND published = TRUE`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find published post: %w", err)
	}
	return p, nil
}

// Create inserts a new post and returns it with server-assigned fields set.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	images := p.Images
	if images == nil {
		images = models.ImageList{}
	}
	created, err := scanPost(s.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, content, excerpt, images, published, section_id, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+postColumns,
		p.Title, p.Content, p.Excerpt, images, p.Published, p.SectionID, p.AuthorID,
	))
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return created, nil
}

// Update overwrites the mutable columns of a post. The author is never
// changed. Returns the stored row, or nil if the post does not exist.
func (s *PostStore) Update(ctx context.Context, p *models.Post) (*models.Post, error) {
	images := p.Images
	if images == nil {
		images = models.ImageList{}
	}
	updated, err := scanPost(s.db.QueryRowContext(ctx, `
		UPDATE posts
		SET title = $1, content = $2, excerpt = $3, images = $4,
		    published = $5, section_id = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING `+postColumns,
		p.Title, p.Content, p.Excerpt, images, p.Published, p.SectionID, p.ID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return updated, nil
}

// SetPublished writes the publish flag in a single statement. Concurrent
// writers resolve last-write-wins. Returns false if the post does not exist.
func (s *PostStore) SetPublished(ctx context.Context, id uuid.UUID, published bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET published = $1, updated_at = NOW() WHERE id = $2
	`, published, id)
	if err != nil {
		return false, fmt.Errorf("set post published: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set post published rows: %w", err)
	}
	return n > 0, nil
}

// Delete removes a post by ID. Returns false if nothing was deleted.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete post rows: %w", err)
	}
	return n > 0, nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
