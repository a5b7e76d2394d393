// Package storage defines the interface for persisting uploaded objects.
// Swap implementations by changing the concrete type injected at startup:
// LocalStorage keeps a flat directory on disk, MinioStorage works with any
// S3-compatible provider.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

const maxNameLength = 255

var (
	// ErrExists is returned by Create when the name is already taken.
	ErrExists = errors.New("object already exists")
	// ErrNotFound is returned when no object is stored under the name.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidName is returned for names that are not a single safe path component.
	ErrInvalidName = errors.New("invalid object name")
)

// Object is an opened stored object. The caller must close Body.
type Object struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string // empty when the backend keeps none
	Body        io.ReadSeekCloser
}

// Storage is the interface for writing and reading uploaded objects.
type Storage interface {
	// Create streams r into a new object. It fails with ErrExists before
	// consuming r when the name is taken, and never leaves a partial object
	// behind when r returns an error. Returns the number of bytes stored.
	Create(ctx context.Context, name string, r io.Reader, contentType string) (int64, error)
	// Open returns the object stored under name.
	Open(ctx context.Context, name string) (*Object, error)
	// Remove deletes the object stored under name.
	Remove(ctx context.Context, name string) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// ValidateName checks that name is a single path component made only of
// ASCII letters, digits, '_', '-' and '.', and does not start with a dot.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLength || name[0] == '.' {
		return ErrInvalidName
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '-', c == '.':
		default:
			return ErrInvalidName
		}
	}
	return nil
}
