package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// LocalStorage keeps objects as plain files in a single flat directory.
// The directory listing is the only index.
type LocalStorage struct {
	dir  string
	opts *LocalOptions
}

// LocalOptions configures LocalStorage.
type LocalOptions struct {
	FileMode os.FileMode
	DirMode  os.FileMode
	Logger   zerolog.Logger
}

// LocalOption is a functional option for NewLocalStorage.
type LocalOption func(*LocalOptions)

// WithLogger attaches a logger to the backend.
func WithLogger(l zerolog.Logger) LocalOption {
	return func(o *LocalOptions) { o.Logger = l }
}

// NewLocalStorage creates dir if it is missing and returns a backend rooted
// there. An existing directory and its files are left untouched.
func NewLocalStorage(dir string, opts ...LocalOption) (*LocalStorage, error) {
	o := &LocalOptions{
		FileMode: 0o644,
		DirMode:  0o755,
		Logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, o.DirMode); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	o.Logger.Debug().Str("dir", dir).Msg("storage: upload directory ready")

	return &LocalStorage{dir: dir, opts: o}, nil
}

// Dir returns the storage directory.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Create writes r to a new file using an exclusive create, so two writers
// can never share a name.
func (s *LocalStorage) Create(ctx context.Context, name string, r io.Reader, _ string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, fmt.Errorf("%q: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.opts.FileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("%q: %w", name, ErrExists)
		}
		return 0, fmt.Errorf("create %q: %w", name, err)
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		_ = f.Close()
		s.discard(path)
		return n, fmt.Errorf("write %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		s.discard(path)
		return n, fmt.Errorf("close %q: %w", name, err)
	}
	return n, nil
}

// Open returns the file stored under name.
func (s *LocalStorage) Open(_ context.Context, name string) (*Object, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %q: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %q: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}

	return &Object{
		Name:    name,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Body:    f,
	}, nil
}

// Remove deletes the file stored under name.
func (s *LocalStorage) Remove(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return err
}

// Ping checks that the storage directory is still there.
func (s *LocalStorage) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *LocalStorage) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.opts.Logger.Warn().Err(err).Str("path", path).Msg("storage: remove partial file")
	}
}

// ctxReader stops a copy once the request context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
