// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package access

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Registry maps session IDs to their gates.
type Registry struct {
	mu    sync.Mutex
	gates map[string]*Gate
	now   func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{gates: make(map[string]*Gate), now: time.Now}
}

// Gate returns the gate for sessionID, creating an unauthenticated one if
// none exists.
func (r *Registry) Gate(sessionID string) *Gate {
	r.mu.Lock()
	g, ok := r.gates[sessionID]
	if !ok {
		g = NewGate()
		r.gates[sessionID] = g
	}
	r.mu.Unlock()

	g.touch(r.now())
	return g
}

// Drop signs the session's gate out and forgets it. It is the single
// invalidation point on sign-out: fetches still holding the gate see their
// tickets go stale.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	g, ok := r.gates[sessionID]
	delete(r.gates, sessionID)
	r.mu.Unlock()

	if ok {
		g.SignedOut()
	}
}

// Sweep evicts gates not seen for longer than maxIdle and returns how many
// were removed. Evicted gates are signed out as Drop does.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var evicted []*Gate
	for id, g := range r.gates {
		if g.idleSince().Before(cutoff) {
			delete(r.gates, id)
			evicted = append(evicted, g)
		}
	}
	r.mu.Unlock()

	for _, g := range evicted {
		g.SignedOut()
	}
	return len(evicted)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gates)
}

// StartSweeper schedules Sweep on a cron spec (for example "@every 10m")
// and starts the scheduler. The caller stops the returned cron on shutdown.
func (r *Registry) StartSweeper(spec string, maxIdle time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := r.Sweep(maxIdle); n > 0 {
			slog.Debug("access gates swept", "removed", n, "remaining", r.Len())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule gate sweep: %w", err)
	}
	c.Start()
	return c, nil
}
