// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"estrategas/internal/models"
)

const profileColumns = `user_id, display_name, role, created_at, updated_at`

// ProfileStore handles profile rows (display name and role per identity).
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a new ProfileStore with the given database connection.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*models.Profile, error) {
	p := &models.Profile{}
	if err := scanner.Scan(&p.UserID, &p.DisplayName, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// FindByUserID retrieves the profile of an identity. Returns nil if the
// identity has no profile yet.
func (s *ProfileStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

// FindByUserIDs retrieves the profiles for a set of identities in one query,
// keyed by user ID. Identities without a profile are absent from the map.
func (s *ProfileStore) FindByUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	out := make(map[uuid.UUID]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ANY($1::uuid[])`, uuidArray(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("find profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}

// Ensure creates a member profile for the identity if none exists and
// returns the stored profile either way.
func (s *ProfileStore) Ensure(ctx context.Context, userID uuid.UUID, displayName string) (*models.Profile, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, displayName, models.RoleMember)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	p, err := s.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("ensure profile: profile for %s vanished", userID)
	}
	return p, nil
}

// SetRole changes the role of an existing profile. Returns false when the
// identity has no profile.
func (s *ProfileStore) SetRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("set role: invalid role %q", role)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET role = $1, updated_at = NOW() WHERE user_id = $2
	`, role, userID)
	if err != nil {
		return false, fmt.Errorf("set role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set role rows: %w", err)
	}
	return n > 0, nil
}
