// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// ExcerptLength is the number of content characters kept in a derived excerpt.
	ExcerptLength = 150

	// ExcerptSuffix is appended to every derived excerpt.
	ExcerptSuffix = "..."
)

// Post is a publishable content item. Images are kept in display order;
// the first one is used as the hero image.
type Post struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Excerpt   string     `json:"excerpt"`
	Images    ImageList  `json:"images"`
	Published bool       `json:"published"`
	SectionID *uuid.UUID `json:"section_id,omitempty"`
	AuthorID  uuid.UUID  `json:"author_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Virtual fields populated by the content repository.
	AuthorName  string `json:"author_name,omitempty"`
	SectionName string `json:"section_name,omitempty"`
}

// StatusLabel returns the badge shown next to the post in the admin list.
func (p Post) StatusLabel() string {
	if p.Published {
		return "Publicado"
	}
	return "Borrador"
}

// HeroImage returns the first image URL, or "" when the post has none.
func (p Post) HeroImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// DeriveExcerpt fills a blank excerpt from the content. An excerpt is
// never persisted empty.
func (p *Post) DeriveExcerpt() {
	if strings.TrimSpace(p.Excerpt) != "" {
		return
	}
	p.Excerpt = DeriveExcerpt(p.Content)
}

// DeriveExcerpt returns the first ExcerptLength characters of content
// followed by ExcerptSuffix.
func DeriveExcerpt(content string) string {
	if utf8.RuneCountInString(content) <= ExcerptLength {
		return content + ExcerptSuffix
	}
	runes := []rune(content)
	return string(runes[:ExcerptLength]) + ExcerptSuffix
}

// ImageList is an ordered list of public image URLs stored as a JSONB array.
type ImageList []string

// Value implements driver.Valuer.
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshal images: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Accepts both []byte and string since the
// driver may hand back either for JSONB.
func (l *ImageList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = ImageList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan images: unsupported type %T", src)
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return fmt.Errorf("scan images: %w", err)
	}
	if urls == nil {
		urls = []string{}
	}
	*l = urls
	return nil
}
