// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package testutil provides in-memory store fakes and helpers shared by the
// content, auth and handlers tests.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"estrategas/internal/models"
	"estrategas/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// Posts is an in-memory store.PostStore. Set Err to make every call fail.
type Posts struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Post
	clock time.Time

	Err   error
	Calls atomic.Int64
}

// NewPosts returns an empty post store.
func NewPosts() *Posts {
	return &Posts{
		items: make(map[uuid.UUID]models.Post),
		clock: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *Posts) begin() error {
	s.Calls.Add(1)
	return s.Err
}

// tick returns a strictly increasing timestamp so newest-first ordering is
// deterministic.
func (s *Posts) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

// Seed inserts p directly, assigning an ID and timestamps if missing.
func (s *Posts) Seed(p models.Post) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.tick()
	}
	p.UpdatedAt = p.CreatedAt
	if p.Images == nil {
		p.Images = models.ImageList{}
	}
	s.items[p.ID] = p
	return p
}

func (s *Posts) List(_ context.Context, q store.PostQuery) ([]models.Post, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(q.Search))
	var out []models.Post
	for _, p := range s.items {
		if q.Published != nil && p.Published != *q.Published {
			continue
		}
		if q.SectionID != nil && (p.SectionID == nil || *p.SectionID != *q.SectionID) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(p.Title), term) &&
			!strings.Contains(strings.ToLower(p.Excerpt), term) {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		switch q.Sort {
		case store.SortOldest:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case store.SortTitle:
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Posts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Posts) FindPublishedByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := s.FindByID(ctx, id)
	if err != nil || p == nil || !p.Published {
		return nil, err
	}
	return p, nil
}

func (s *Posts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	c.ID = uuid.New()
	c.CreatedAt = s.tick()
	c.UpdatedAt = c.CreatedAt
	if c.Images == nil {
		c.Images = models.ImageList{}
	}
	s.items[c.ID] = c
	return &c, nil
}

func (s *Posts) Update(_ context.Context, p *models.Post) (*models.Post, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.items[p.ID]
	if !ok {
		return nil, nil
	}
	u := *p
	u.AuthorID = old.AuthorID
	u.CreatedAt = old.CreatedAt
	u.UpdatedAt = s.tick()
	s.items[u.ID] = u
	return &u, nil
}

func (s *Posts) SetPublished(_ context.Context, id uuid.UUID, published bool) (bool, error) {
	if err := s.begin(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return false, nil
	}
	p.Published = published
	s.items[id] = p
	return true, nil
}

func (s *Posts) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if err := s.begin(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

// Profiles is an in-memory profile store.
type Profiles struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Profile

	Err   error
	Calls atomic.Int64
}

// NewProfiles returns an empty profile store.
func NewProfiles() *Profiles {
	return &Profiles{items: make(map[uuid.UUID]models.Profile)}
}

// Put stores or replaces a profile.
func (s *Profiles) Put(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.UserID] = p
}

func (s *Profiles) FindByUserID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.Calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Profiles) FindByUserIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	s.Calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]*models.Profile)
	for _, id := range ids {
		if p, ok := s.items[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

// Sections is an in-memory section store.
type Sections struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Section

	Err error
}

// NewSections returns a section store holding the given sections.
func NewSections(sections ...models.Section) *Sections {
	s := &Sections{items: make(map[uuid.UUID]models.Section)}
	for _, sec := range sections {
		if sec.ID == uuid.Nil {
			sec.ID = uuid.New()
		}
		s.items[sec.ID] = sec
	}
	return s
}

func (s *Sections) List(context.Context) ([]models.Section, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Section, 0, len(s.items))
	for _, sec := range s.items {
		out = append(out, sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Sections) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Section, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]*models.Section)
	for _, id := range ids {
		if sec, ok := s.items[id]; ok {
			out[id] = &sec
		}
	}
	return out, nil
}

// Identities is an in-memory identity store that also provisions profiles
// into the paired Profiles fake.
type Identities struct {
	mu       sync.Mutex
	byEmail  map[string]models.Identity
	profiles *Profiles

	Err error
}

// NewIdentities returns an empty identity store writing profiles to p.
func NewIdentities(p *Profiles) *Identities {
	return &Identities{byEmail: make(map[string]models.Identity), profiles: p}
}

func (s *Identities) FindByEmail(_ context.Context, email string) (*models.Identity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Identities) CreateWithProfile(_ context.Context, email, password, displayName string) (*models.Identity, *models.Profile, error) {
	if s.Err != nil {
		return nil, nil, s.Err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.byEmail[key]; ok {
		return nil, nil, store.ErrDuplicate
	}
	u := models.Identity{ID: uuid.New(), Email: key, PasswordHash: string(hash), CreatedAt: time.Now()}
	s.byEmail[key] = u

	p := models.Profile{UserID: u.ID, DisplayName: strings.TrimSpace(displayName), Role: models.RoleMember}
	s.profiles.Put(p)
	return &u, &p, nil
}

func (s *Identities) CheckPassword(u *models.Identity, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
