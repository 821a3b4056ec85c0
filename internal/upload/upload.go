// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package upload pushes batches of post images to object storage. Files in
// a batch upload concurrently; the returned URLs keep the input order. The
// first failure cancels the rest of the batch. Objects that were already
// stored are left in place.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"estrategas/internal/imaging"
	"estrategas/internal/slug"
	"estrategas/internal/storage"
)

// Defaults for NewPipeline.
const (
	DefaultMaxSize     = 10 << 20 // 10 MB
	DefaultConcurrency = 4
	maxNameLen         = 60
	fallbackName       = "imagen"
)

var (
	ErrEmpty    = errors.New("upload: empty file")
	ErrTooLarge = errors.New("upload: file too large")
)

// File is one payload in a batch.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// BatchError reports which file of a batch failed.
type BatchError struct {
	Index int
	Name  string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("upload %q (#%d): %v", e.Name, e.Index+1, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Pipeline validates and stores images.
type Pipeline struct {
	bucket      storage.Bucket
	maxSize     int64
	concurrency int
	now         func() time.Time
	token       func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxSize sets the per-file size limit in bytes.
func WithMaxSize(n int64) Option {
	return func(p *Pipeline) { p.maxSize = n }
}

// WithConcurrency sets how many files upload at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = n }
}

// NewPipeline creates a pipeline writing to bucket.
func NewPipeline(bucket storage.Bucket, opts ...Option) *Pipeline {
	p := &Pipeline{
		bucket:      bucket,
		maxSize:     DefaultMaxSize,
		concurrency: DefaultConcurrency,
		now:         time.Now,
		token:       func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	return p
}

// Upload stores every file and returns their public URLs, URL[i] belonging
// to files[i]. On failure it returns a *BatchError for the first file that
// failed and no URLs.
func (p *Pipeline) Upload(ctx context.Context, files []File) ([]string, error) {
	urls := make([]string, len(files))
	if len(files) == 0 {
		return urls, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, f := range files {
		g.Go(func() error {
			url, err := p.uploadOne(gctx, f)
			if err != nil {
				return &BatchError{Index: i, Name: f.Name, Err: err}
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Size == 0 {
		return "", ErrEmpty
	}
	if f.Size > p.maxSize {
		return "", ErrTooLarge
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, p.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > p.maxSize {
		return "", ErrTooLarge
	}

	info, err := imaging.Probe(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	key := ObjectName(p.now(), p.token(), f.Name, info.Format.Ext)
	if err := p.bucket.Put(ctx, key, info.Format.ContentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", err
	}
	return p.bucket.URL(key), nil
}

// ObjectName builds "<unix-millis>-<token>-<slug>.<ext>" from the original
// file name. The extension comes from the detected format, not the name.
func ObjectName(now time.Time, token, original, ext string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	name := slug.Truncate(base, maxNameLen)
	if name == "" {
		name = fallbackName
	}
	return fmt.Sprintf("%d-%s-%s%s", now.UnixMilli(), token, name, ext)
}
