// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("content: validation failed")

	// ErrNotFound is returned when a post does not exist or, for public
	// reads, is not published.
	ErrNotFound = errors.New("content: not found")

	// ErrForbidden is returned when admin operations are attempted from a
	// gate that is not in the admin state.
	ErrForbidden = errors.New("content: admin role required")
)

// ValidationError lists the fields that failed validation, keyed by field
// name, with a human-readable message for each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "content: invalid " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BackendError wraps a store failure. The operation is aborted and the
// previously persisted state is unchanged.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return "content: " + e.Op + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backend(op string, err error) error {
	return &BackendError{Op: op, Err: err}
}
