// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package access tracks, per browser session, who is signed in and which
// role they hold. A Gate moves through
//
//	unauthenticated -> unknown-role -> {member, admin}
//
// and back to unauthenticated on sign-out. Admin-only work is only allowed
// from the admin state, and only after the role has been resolved from the
// profile store.
package access

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"estrategas/internal/models"
)

// State is a position in the access state machine.
type State int

const (
	Unauthenticated State = iota
	UnknownRole
	Member
	Admin
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case UnknownRole:
		return "authenticated-unknown-role"
	case Member:
		return "authenticated-member"
	case Admin:
		return "authenticated-admin"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrUnauthenticated = errors.New("access: not signed in")
	ErrRoleUnresolved  = errors.New("access: role not resolved yet")
	ErrForbidden       = errors.New("access: admin role required")
	ErrStale           = errors.New("access: identity changed while resolving")
)

// ProfileFinder looks up the profile of an identity. A nil profile with a
// nil error means the identity has none.
type ProfileFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// Ticket identifies the identity epoch a fetch was started under.
type Ticket uint64

// Gate is the access state of one session. It is safe for concurrent use.
type Gate struct {
	mu       sync.Mutex
	state    State
	identity models.Identity
	profile  *models.Profile
	epoch    uint64
	lastSeen time.Time
}

// NewGate returns a gate in the unauthenticated state.
func NewGate() *Gate {
	return &Gate{lastSeen: time.Now()}
}

// SignedIn records a completed sign-in or sign-up. The role is unknown
// until Resolve runs.
func (g *Gate) SignedIn(id models.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.identity = id
	g.profile = nil
	g.state = UnknownRole
	g.epoch++
}

// SignedOut clears the identity and any cached profile. Tickets issued
// before this call are no longer valid.
func (g *Gate) SignedOut() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.identity = models.Identity{}
	g.profile = nil
	g.state = Unauthenticated
	g.epoch++
}

// Resolve fetches the profile of the signed-in identity and moves the gate
// to Member or Admin. A missing profile resolves to Member. On a lookup
// error the state is left unchanged. If the identity changes while the
// lookup is in flight the result is discarded and ErrStale is returned.
func (g *Gate) Resolve(ctx context.Context, finder ProfileFinder) (State, error) {
	g.mu.Lock()
	if g.state == Unauthenticated {
		g.mu.Unlock()
		return Unauthenticated, ErrUnauthenticated
	}
	userID := g.identity.ID
	started := g.epoch
	g.mu.Unlock()

	p, err := finder.FindByUserID(ctx, userID)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epoch != started {
		return g.state, ErrStale
	}
	if err != nil {
		return g.state, fmt.Errorf("resolve profile: %w", err)
	}

	g.profile = p
	if p.IsAdmin() {
		g.state = Admin
	} else {
		g.state = Member
	}
	return g.state, nil
}

// RequireAdmin reports whether admin-only work may proceed.
func (g *Gate) RequireAdmin() error {
	switch g.State() {
	case Admin:
		return nil
	case Unauthenticated:
		return ErrUnauthenticated
	case UnknownRole:
		return ErrRoleUnresolved
	default:
		return ErrForbidden
	}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Identity returns the signed-in identity, if any.
func (g *Gate) Identity() (models.Identity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity, g.state != Unauthenticated
}

// Profile returns a copy of the last resolved profile, or nil.
func (g *Gate) Profile() *models.Profile {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.profile == nil {
		return nil
	}
	p := *g.profile
	return &p
}

// Ticket returns a token for the current identity epoch. Callers take a
// ticket before starting a fetch and check Valid before using the result.
func (g *Gate) Ticket() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Ticket(g.epoch)
}

// Valid reports whether no sign-in or sign-out happened since t was issued.
func (g *Gate) Valid(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Ticket(g.epoch) == t
}

func (g *Gate) touch(now time.Time) {
	g.mu.Lock()
	g.lastSeen = now
	g.mu.Unlock()
}

func (g *Gate) idleSince() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSeen
}
