// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all Estrategas
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"estrategas/internal/models"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("store: duplicate key")

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const identityColumns = `id, email, password_hash, created_at`

// IdentityStore handles credential records.
type IdentityStore struct {
	db *sql.DB
}

// NewIdentityStore creates a new IdentityStore with the given database connection.
func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func scanIdentity(scanner interface{ Scan(...any) error }) (*models.Identity, error) {
	u := &models.Identity{}
	if err := scanner.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// FindByEmail retrieves an identity by email address (case-insensitive).
// Returns nil if not found.
func (s *IdentityStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	u, err := scanIdentity(s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`,
		normalizeEmail(email),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find identity by email: %w", err)
	}
	return u, nil
}

// FindByID retrieves an identity by its UUID. Returns nil if not found.
func (s *IdentityStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	u, err := scanIdentity(s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find identity by id: %w", err)
	}
	return u, nil
}

// CreateWithProfile inserts a new identity with a bcrypt-hashed password and
// its member profile in a single transaction. Returns ErrDuplicate when the
// email is already registered.
func (s *IdentityStore) CreateWithProfile(ctx context.Context, email, password, displayName string) (*models.Identity, *models.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin create identity: %w", err)
	}
	defer tx.Rollback()

	u, err := scanIdentity(tx.QueryRowContext(ctx, `
		INSERT INTO identities (email, password_hash)
		VALUES ($1, $2)
		RETURNING `+identityColumns,
		normalizeEmail(email), string(hash),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrDuplicate
		}
		return nil, nil, fmt.Errorf("create identity: %w", err)
	}

	p, err := scanProfile(tx.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, display_name, role)
		VALUES ($1, $2, $3)
		RETURNING `+profileColumns,
		u.ID, strings.TrimSpace(displayName), models.RoleMember,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("create profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit create identity: %w", err)
	}
	return u, p, nil
}

// CheckPassword compares a plaintext password against the identity's bcrypt hash.
func (s *IdentityStore) CheckPassword(u *models.Identity, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// uuidArray renders ids as a PostgreSQL array literal for ANY($n::uuid[]).
func uuidArray(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
