// Package intake accepts uploaded files, names them and hands them to storage.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SAIASHISH-sys/shaastrahack/internal/storage"
)

const (
	// DefaultMaxFileSize is the per-object ceiling (5 MiB).
	DefaultMaxFileSize int64 = 5 << 20

	// maxNameAttempts bounds retries when a derived name is already taken.
	maxNameAttempts = 3
)

// StoredObject describes an accepted upload.
type StoredObject struct {
	OriginalName string
	StoredName   string
	SizeBytes    int64
	ContentType  string
}

// Service contains the intake rules: size ceiling, content-type filter and
// stored-name derivation.
type Service struct {
	store        storage.Storage
	maxSize      int64
	allowedTypes []string
	now          func() time.Time
	suffix       func() string
	log          zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMaxFileSize sets the per-object ceiling in bytes.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) { s.maxSize = n }
}

// WithAllowedContentTypes enables the content-type filter. Entries are
// media types ("application/pdf") or wildcards ("image/*"). An empty list
// accepts everything.
func WithAllowedContentTypes(types []string) Option {
	return func(s *Service) { s.allowedTypes = types }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSuffixFunc replaces the generator of collision suffixes.
func WithSuffixFunc(fn func() string) Option {
	return func(s *Service) { s.suffix = fn }
}

// WithLogger attaches a logger to the service.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a new intake Service backed by store.
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:   store,
		maxSize: DefaultMaxFileSize,
		now:     time.Now,
		suffix:  randomSuffix,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxFileSize returns the per-object ceiling in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxSize
}

// Accept stores body under a name derived from originalName and the current
// time. Bodies larger than the ceiling fail with ErrFileTooLarge and leave
// nothing behind.
func (s *Service) Accept(ctx context.Context, originalName, contentType string, body io.Reader) (*StoredObject, error) {
	if !s.typeAllowed(contentType) {
		return nil, ErrTypeNotAllowed
	}

	now := s.now()
	lr := &limitReader{r: body, limit: s.maxSize}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		var suffix string
		if attempt > 0 {
			suffix = s.suffix()
		}
		name := DeriveName(originalName, now, suffix)

		n, err := s.store.Create(ctx, name, lr, contentType)
		if errors.Is(err, storage.ErrExists) {
			s.log.Debug().Str("name", name).Msg("intake: name taken, retrying with suffix")
			continue
		}
		if err != nil {
			if lr.exceeded {
				return nil, ErrFileTooLarge
			}
			return nil, fmt.Errorf("store %q: %w", name, err)
		}

		s.log.Info().
			Str("original", originalName).
			Str("stored", name).
			Int64("size", n).
			Msg("intake: file stored")
		return &StoredObject{
			OriginalName: originalName,
			StoredName:   name,
			SizeBytes:    n,
			ContentType:  contentType,
		}, nil
	}

	return nil, fmt.Errorf("no free name for %q after %d attempts", originalName, maxNameAttempts)
}

// Open returns the stored object called name.
func (s *Service) Open(ctx context.Context, name string) (*storage.Object, error) {
	return s.store.Open(ctx, name)
}

// Discard removes an accepted object, used when the rest of the request
// turns out to be invalid.
func (s *Service) Discard(ctx context.Context, name string) {
	if err := s.store.Remove(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn().Err(err).Str("name", name).Msg("intake: discard stored object")
	}
}

// Ping reports whether the storage backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) typeAllowed(contentType string) bool {
	if len(s.allowedTypes) == 0 {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, allowed := range s.allowedTypes {
		allowed = strings.ToLower(allowed)
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(mt, prefix+"/") {
				return true
			}
			continue
		}
		if mt == allowed {
			return true
		}
	}
	return false
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// limitReader fails with ErrFileTooLarge once more than limit bytes have
// been read.
type limitReader struct {
	r        io.Reader
	limit    int64
	read     int64
	exceeded bool
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		l.exceeded = true
		return 0, ErrFileTooLarge
	}
	return n, err
}
