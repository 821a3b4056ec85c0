// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns arbitrary text (including accented Spanish titles and
// file names) into lowercase ASCII slugs safe for URLs and object keys.
package slug

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	// apostrophes are dropped so "it's" becomes "its".
	apostrophes = regexp.MustCompile(`['’]`)
	// separators matches every run of characters outside [a-z0-9].
	separators = regexp.MustCompile(`[^a-z0-9]+`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Táctica: el 4-3-3 en 2026" → "tactica-el-4-3-3-en-2026"
func Generate(s string) string {
	result := strings.ToLower(unidecode.Unidecode(strings.TrimSpace(s)))
	result = apostrophes.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Truncate generates a slug no longer than max bytes, cutting at a hyphen
// boundary when possible.
func Truncate(s string, max int) string {
	result := Generate(s)
	if max <= 0 || len(result) <= max {
		return result
	}
	cut := result[:max]
	if result[max] != '-' {
		if i := strings.LastIndexByte(cut, '-'); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.Trim(cut, "-")
}
