// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage uploads post images to an object store and derives their
// public URLs. Two drivers are provided: S3 (AWS SDK v2, path-style, works
// with CEPH/Hetzner) and MinIO (minio-go). Memory is used in tests and
// development when no object store is configured.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Bucket stores public objects in a single bucket.
type Bucket interface {
	// Put uploads body under key. size is the exact body length.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// URL returns the public URL of key. It is derived from the bucket and
	// key only and does not check that the object exists.
	URL(key string) string
}

// publicURL builds base/bucket/key, or publicBase/key when a CDN base is set.
func publicURL(publicBase, endpoint, bucket, key string) string {
	if publicBase != "" {
		return publicBase + "/" + key
	}
	return endpoint + "/" + bucket + "/" + key
}

// Memory is an in-process Bucket.
type Memory struct {
	mu      sync.Mutex
	base    string
	objects map[string]Object
}

// Object is an object held by Memory.
type Object struct {
	ContentType string
	Data        []byte
}

// NewMemory creates an empty in-memory bucket whose URLs start with base.
func NewMemory(base string) *Memory {
	return &Memory{base: strings.TrimRight(base, "/"), objects: make(map[string]Object)}
}

func (m *Memory) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, body)
	if err != nil {
		return fmt.Errorf("memory put %s: %w", key, err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("memory put %s: read %d bytes, want %d", key, n, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{ContentType: contentType, Data: buf.Bytes()}
	return nil
}

func (m *Memory) URL(key string) string {
	return m.base + "/" + key
}

// Get returns a stored object.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
