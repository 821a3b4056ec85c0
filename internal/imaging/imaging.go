// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging identifies uploaded images. It reads only the image
// header, so probing a large file is cheap, and rejects anything that is
// not a JPEG, PNG, GIF or WebP image or whose pixel count is excessive.
package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"
)

// MaxPixels caps width*height to reject decompression bombs.
const MaxPixels = 50_000_000

var (
	ErrUnsupported   = errors.New("imaging: unsupported image format")
	ErrTooManyPixels = errors.New("imaging: image dimensions too large")
)

// Format describes an accepted image format.
type Format struct {
	Name        string // as reported by image.DecodeConfig
	ContentType string
	Ext         string // canonical extension including the dot
}

var formats = map[string]Format{
	"jpeg": {Name: "jpeg", ContentType: "image/jpeg", Ext: ".jpg"},
	"png":  {Name: "png", ContentType: "image/png", Ext: ".png"},
	"gif":  {Name: "gif", ContentType: "image/gif", Ext: ".gif"},
	"webp": {Name: "webp", ContentType: "image/webp", Ext: ".webp"},
}

// Info is the result of probing an image.
type Info struct {
	Format Format
	Width  int
	Height int
}

// Probe reads the image header from r.
func Probe(r io.Reader) (Info, error) {
	cfg, name, err := image.DecodeConfig(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, ErrUnsupported
		}
		return Info{}, fmt.Errorf("imaging: probe failed: %w", err)
	}

	f, ok := formats[name]
	if !ok {
		return Info{}, ErrUnsupported
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return Info{}, ErrTooManyPixels
	}
	return Info{Format: f, Width: cfg.Width, Height: cfg.Height}, nil
}
