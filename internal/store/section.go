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

// SectionStore manages custom sections in the database.
type SectionStore struct {
	db *sql.DB
}

// NewSectionStore returns a new SectionStore.
func NewSectionStore(db *sql.DB) *SectionStore {
	return &SectionStore{db: db}
}

const sectionColumns = `id, name, description, created_at`

// scanSection scans a row into a Section struct.
func scanSection(scanner interface{ Scan(...any) error }) (*models.Section, error) {
	var c models.Section
	if err := scanner.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all sections ordered by name.
func (s *SectionStore) List(ctx context.Context) ([]models.Section, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sectionColumns+` FROM custom_sections ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var items []models.Section
	for rows.Next() {
		c, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a section by ID. Returns nil if not found.
func (s *SectionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	c, err := scanSection(s.db.QueryRowContext(ctx,
		`SELECT `+sectionColumns+` FROM custom_sections WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find section: %w", err)
	}
	return c, nil
}

// FindByIDs retrieves a set of sections in one query, keyed by ID.
func (s *SectionStore) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Section, error) {
	out := make(map[uuid.UUID]*models.Section, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sectionColumns+` FROM custom_sections WHERE id = ANY($1::uuid[])`, uuidArray(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("find sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// Create inserts a new section. Returns ErrDuplicate when the name is taken.
func (s *SectionStore) Create(ctx context.Context, name string, description *string) (*models.Section, error) {
	c, err := scanSection(s.db.QueryRowContext(ctx, `
		INSERT INTO custom_sections (name, description)
		VALUES ($1, $2)
		RETURNING `+sectionColumns,
		strings.TrimSpace(name), description,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create section: %w", err)
	}
	return c, nil
}
