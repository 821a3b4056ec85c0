// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session provides HTTP session management on top of a cache.KV
// (Valkey in production, memory in development). Sessions are identified
// by a secure cookie and stored as JSON with automatic TTL expiry.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"estrategas/internal/cache"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "est_session"

	// DefaultTTL is how long a session lives before automatic expiry.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces session keys to avoid collisions with the page cache.
	keyPrefix = "session:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Flash is a one-time notice shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"` // "success", "error", "info"
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

// Data holds the session payload. Anonymous visitors only get a session
// when something needs to be remembered for them, such as a flash.
type Data struct {
	ID          string    `json:"-"`
	IdentityID  uuid.UUID `json:"identity_id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Flashes     []Flash   `json:"flashes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Authenticated reports whether the session belongs to a signed-in identity.
func (d *Data) Authenticated() bool {
	return d != nil && d.IdentityID != uuid.Nil
}

// AddFlash queues a notice.
func (d *Data) AddFlash(f Flash) {
	d.Flashes = append(d.Flashes, f)
}

// PopFlashes returns and clears the queued notices.
func (d *Data) PopFlashes() []Flash {
	out := d.Flashes
	d.Flashes = nil
	return out
}

// Store manages session lifecycle.
type Store struct {
	kv     cache.KV
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store. secure marks cookies Secure (HTTPS only).
func NewStore(kv cache.KV, secure bool) *Store {
	return &Store{
		kv:     kv,
		ttl:    DefaultTTL,
		secure: secure,
	}
}

// Create generates a new session, stores it, and sets the session cookie
// on the response. Returns the session ID, also recorded in data.ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.ID = id
	data.CreatedAt = time.Now()

	if err := s.Save(ctx, data); err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})

	return id, nil
}

// Get retrieves session data using the session ID from the request
// cookie. Returns nil if no valid session exists.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil // No cookie = no session (not an error)
	}

	payload, err := s.kv.Get(ctx, keyPrefix+cookie.Value)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil // Session expired or doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	data.ID = cookie.Value

	return &data, nil
}

// Save writes data back under its ID and resets the TTL.
func (s *Store) Save(ctx context.Context, data *Data) error {
	if data.ID == "" {
		return fmt.Errorf("session save: missing id")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	if err := s.kv.Set(ctx, keyPrefix+data.ID, payload, s.ttl); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

// Destroy removes the session and clears the cookie. Returns the ID of the
// destroyed session, or "" if there was none.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", nil // No cookie, nothing to destroy
	}

	// Expire the cookie immediately.
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})

	if err := s.kv.Del(ctx, keyPrefix+cookie.Value); err != nil {
		return cookie.Value, fmt.Errorf("session destroy: %w", err)
	}
	return cookie.Value, nil
}

// Flash queues f on the request's session, creating an anonymous session
// if the visitor has none. current may be nil.
func (s *Store) Flash(ctx context.Context, w http.ResponseWriter, current *Data, f Flash) error {
	if current == nil || current.ID == "" {
		data := &Data{Flashes: []Flash{f}}
		_, err := s.Create(ctx, w, data)
		return err
	}
	current.AddFlash(f)
	return s.Save(ctx, current)
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
