// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "test:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// exerciseKV runs the same contract checks against any KV.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "test:missing"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get(missing) err = %v, want ErrMiss", err)
	}

	if err := kv.Set(ctx, "test:a", []byte("uno"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set(ctx, "test:b", []byte("dos"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set(ctx, "other:c", []byte("tres"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	t.Cleanup(func() { kv.Del(ctx, "other:c") })

	got, err := kv.Get(ctx, "test:a")
	if err != nil || string(got) != "uno" {
		t.Errorf("Get(test:a) = %q, %v", got, err)
	}

	n, err := kv.DeletePrefix(ctx, "test:")
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if n != 2 {
		t.Errorf("DeletePrefix removed %d, want 2", n)
	}
	if _, err := kv.Get(ctx, "other:c"); err != nil {
		t.Errorf("unrelated key removed: %v", err)
	}

	if err := kv.Del(ctx, "other:c"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := kv.Get(ctx, "other:c"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get after Del err = %v, want ErrMiss", err)
	}
}

// exerciseIncr checks the counter contract page generations rely on.
func exerciseIncr(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()
	t.Cleanup(func() { kv.Del(ctx, "test:ctr") })

	for want := int64(1); want <= 3; want++ {
		got, err := kv.Incr(ctx, "test:ctr")
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Errorf("Incr: got %d, want %d", got, want)
		}
	}
	val, err := kv.Get(ctx, "test:ctr")
	if err != nil || string(val) != "3" {
		t.Errorf("Get(test:ctr) = %q, %v; want \"3\"", val, err)
	}
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemory())
	exerciseIncr(t, NewMemory())
}

func TestValkeyKV(t *testing.T) {
	kv := NewValkey(testValkeyClient(t))
	exerciseKV(t, kv)
	exerciseIncr(t, kv)
}

func TestMemoryIncr_NotInteger(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Set(ctx, "k", []byte("abc"), 0)
	if _, err := m.Incr(ctx, "k"); err == nil {
		t.Error("Incr on a non-integer value should fail")
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), time.Minute)
	m.Set(ctx, "forever", []byte("v"), 0)

	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expired key err = %v, want ErrMiss", err)
	}
	if _, err := m.Get(ctx, "forever"); err != nil {
		t.Errorf("no-ttl key err = %v", err)
	}
}

func TestPageCache(t *testing.T) {
	pc := NewPageCache(NewMemory(), 0)
	ctx := context.Background()

	if _, ok := pc.Get(ctx, "/"); ok {
		t.Error("expected miss on empty cache")
	}

	pc.Set(ctx, "/", []byte("<html>home</html>"))
	pc.Set(ctx, "/articles", []byte("<html>list</html>"))

	got, ok := pc.Get(ctx, "/")
	if !ok || string(got) != "<html>home</html>" {
		t.Errorf("Get(/) = %q, %v", got, ok)
	}

	pc.InvalidateAll(ctx)
	if _, ok := pc.Get(ctx, "/articles"); ok {
		t.Error("expected miss after InvalidateAll")
	}
}

// TestPageCache_SlotFromOldGeneration verifies that a render which looked
// up its slot before an invalidation can neither fill nor be read.
func TestPageCache_SlotFromOldGeneration(t *testing.T) {
	kv := NewMemory()
	pc := NewPageCache(kv, 0)
	ctx := context.Background()

	stale := pc.Lookup(ctx, "/articles")
	pc.InvalidateAll(ctx)
	stale.Fill(ctx, []byte("<html>viejo</html>"))

	if _, ok := pc.Get(ctx, "/articles"); ok {
		t.Error("fill from before the invalidation must not be served")
	}

	// Even a write that slips past the generation check lands under a key
	// readers of the new generation never ask for.
	kv.Set(ctx, stale.storageKey(), []byte("<html>viejo</html>"), time.Minute)
	if _, ok := pc.Get(ctx, "/articles"); ok {
		t.Error("page stored under an old generation must not be served")
	}

	fresh := pc.Lookup(ctx, "/articles")
	fresh.Fill(ctx, []byte("<html>nuevo</html>"))
	got, ok := fresh.Get(ctx)
	if !ok || string(got) != "<html>nuevo</html>" {
		t.Errorf("fresh slot: got %q, %v", got, ok)
	}
}

func TestPageCache_ZeroSlot(t *testing.T) {
	var s Slot
	ctx := context.Background()
	s.Fill(ctx, []byte("x"))
	if _, ok := s.Get(ctx); ok {
		t.Error("zero slot should never hit")
	}
}

func TestPageKey(t *testing.T) {
	tests := []struct {
		path  string
		query url.Values
		want  string
	}{
		{path: "/", want: "/"},
		{path: "/articles", query: url.Values{"sort": {"title"}, "q": {"presión"}}, want: "/articles?q=presi%C3%B3n&sort=title"},
	}
	for _, tt := range tests {
		if got := PageKey(tt.path, tt.query); got != tt.want {
			t.Errorf("PageKey(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
