// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Stores are in-memory fakes; sessions and the page cache run on the
// memory KV, so no external services are needed.
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"estrategas/internal/access"
	"estrategas/internal/auth"
	"estrategas/internal/cache"
	"estrategas/internal/content"
	"estrategas/internal/middleware"
	"estrategas/internal/models"
	"estrategas/internal/render"
	"estrategas/internal/session"
	"estrategas/internal/storage"
	"estrategas/internal/testutil"
	"estrategas/internal/upload"
)

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Posts      *testutil.Posts
	Profiles   *testutil.Profiles
	Sections   *testutil.Sections
	Identities *testutil.Identities
	Bucket     *storage.Memory
	KV         *cache.Memory
	Sessions   *session.Store
	Registry   *access.Registry
	PageCache  *cache.PageCache

	Public *Public
	Auth   *Auth
	Admin  *Admin

	Section models.Section
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rn, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	env := &testEnv{
		Posts:    testutil.NewPosts(),
		Profiles: testutil.NewProfiles(),
		Section:  models.Section{ID: uuid.New(), Name: "Táctica"},
		Bucket:   storage.NewMemory("https://cdn.test/uploads"),
		KV:       cache.NewMemory(),
		Registry: access.NewRegistry(),
	}
	env.Sections = testutil.NewSections(env.Section)
	env.Identities = testutil.NewIdentities(env.Profiles)
	env.Sessions = session.NewStore(env.KV, false)
	env.PageCache = cache.NewPageCache(env.KV, 0)

	repo := content.NewRepository(env.Posts, env.Profiles, env.Sections)
	pipeline := upload.NewPipeline(env.Bucket)

	env.Public = NewPublic(rn, env.Sessions, repo, env.PageCache)
	env.Auth = NewAuth(rn, env.Sessions, auth.NewService(env.Identities), env.Registry)
	env.Admin = NewAdmin(rn, env.Sessions, repo, pipeline, env.PageCache)
	return env
}

// gate returns a gate resolved for a new identity with role, or an
// unauthenticated gate when role is empty.
func (e *testEnv) gate(t *testing.T, role models.Role) *access.Gate {
	t.Helper()
	g := access.NewGate()
	if role == "" {
		return g
	}
	id := uuid.New()
	e.Profiles.Put(models.Profile{UserID: id, DisplayName: "Editora", Role: role})
	g.SignedIn(models.Identity{ID: id, Email: "editora@example.com"})
	if _, err := g.Resolve(context.Background(), e.Profiles); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return g
}

// withGate puts g in the request context the way LoadSession does.
func withGate(r *http.Request, g *access.Gate) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.GateKey, g))
}

// withSession puts sess in the request context.
func withSession(r *http.Request, sess *session.Data) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.SessionKey, sess))
}

// withURLParam sets a chi route parameter on the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// sessionCookie returns the last non-empty session cookie set on rec.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("response set no session cookie")
	}
	return cookie
}

// flashesFor loads the session named by the last session cookie on rec and
// returns its queued flashes.
func (e *testEnv) flashesFor(t *testing.T, rec *httptest.ResponseRecorder) []session.Flash {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rec))
	sess, err := e.Sessions.Get(context.Background(), req)
	if err != nil || sess == nil {
		t.Fatalf("load session: %v", err)
	}
	return sess.Flashes
}

// assertFlash checks that rec queued a flash with the given title.
func (e *testEnv) assertFlash(t *testing.T, rec *httptest.ResponseRecorder, title string) {
	t.Helper()
	for _, f := range e.flashesFor(t, rec) {
		if f.Title == title {
			return
		}
	}
	t.Errorf("flash %q not queued", title)
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != want {
		t.Errorf("Location: got %q, want %q", loc, want)
	}
}
