// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"time"
)

const (
	// pageKeyPrefix is the key prefix for cached pages.
	pageKeyPrefix = "page:"

	// pageGenKey holds the cache generation. It sits outside pageKeyPrefix
	// so InvalidateAll never deletes it.
	pageGenKey = "pagegen"

	// DefaultPageTTL is how long a rendered page stays cached.
	DefaultPageTTL = 5 * time.Minute
)

// PageCache stores rendered public pages for anonymous visitors. Any admin
// write clears it entirely, since a post appears on several pages (home,
// listings, detail).
//
// Pages are stored under the generation current when their request began.
// InvalidateAll bumps the generation first, so a render that was already
// in flight lands under a key no reader will ever ask for.
type PageCache struct {
	kv  KV
	ttl time.Duration
}

// NewPageCache creates a new page cache over kv.
func NewPageCache(kv KV, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{kv: kv, ttl: ttl}
}

// Slot is a page key pinned to the generation read by Lookup. The zero
// Slot neither hits nor stores.
type Slot struct {
	pc  *PageCache
	key string
	gen int64
}

// Lookup pins key to the current generation. Call it before reading the
// data a page is rendered from, and fill the returned slot afterwards.
func (pc *PageCache) Lookup(ctx context.Context, key string) Slot {
	gen, err := pc.generation(ctx)
	if err != nil {
		slog.Warn("page cache generation error", "key", key, "error", err)
		return Slot{}
	}
	return Slot{pc: pc, key: key, gen: gen}
}

// Get retrieves cached HTML for the slot's generation. Backend errors are
// logged and reported as a miss.
func (s Slot) Get(ctx context.Context) ([]byte, bool) {
	if s.pc == nil {
		return nil, false
	}
	val, err := s.pc.kv.Get(ctx, s.storageKey())
	if errors.Is(err, ErrMiss) {
		return nil, false
	}
	if err != nil {
		slog.Warn("page cache get error", "key", s.key, "error", err)
		return nil, false
	}
	slog.Debug("page cache hit", "key", s.key, "generation", s.gen)
	return val, true
}

// Fill stores html unless the cache was invalidated since Lookup.
func (s Slot) Fill(ctx context.Context, html []byte) {
	if s.pc == nil {
		return
	}
	if gen, err := s.pc.generation(ctx); err != nil || gen != s.gen {
		slog.Debug("page cache fill skipped", "key", s.key, "generation", s.gen)
		return
	}
	if err := s.pc.kv.Set(ctx, s.storageKey(), html, s.pc.ttl); err != nil {
		slog.Warn("page cache set error", "key", s.key, "error", err)
	}
}

func (s Slot) storageKey() string {
	return pageKeyPrefix + strconv.FormatInt(s.gen, 10) + ":" + s.key
}

// Get retrieves cached HTML for key in the current generation.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	return pc.Lookup(ctx, key).Get(ctx)
}

// Set stores HTML for key in the current generation.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	pc.Lookup(ctx, key).Fill(ctx, html)
}

// InvalidateAll starts a new generation and removes every cached page.
func (pc *PageCache) InvalidateAll(ctx context.Context) {
	if _, err := pc.kv.Incr(ctx, pageGenKey); err != nil {
		slog.Warn("page cache generation bump error", "error", err)
	}
	deleted, err := pc.kv.DeletePrefix(ctx, pageKeyPrefix)
	if err != nil {
		slog.Warn("page cache invalidate error", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("page cache cleared", "deleted", deleted)
	}
}

func (pc *PageCache) generation(ctx context.Context) (int64, error) {
	val, err := pc.kv.Get(ctx, pageGenKey)
	if errors.Is(err, ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(val), 10, 64)
}

// PageKey returns the cache key for a request path and query. Query
// parameters are re-encoded in sorted order so equivalent URLs share a key.
func PageKey(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
