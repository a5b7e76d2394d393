package intake

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/SAIASHISH-sys/shaastrahack/internal/storage"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithSuffixFunc(func() string { return "0a1b2c3d" }),
	}, opts...)
	return NewService(store, opts...), store
}

func readStored(t *testing.T, store storage.Storage, name string) string {
	t.Helper()
	obj, err := store.Open(context.Background(), name)
	if err != nil {
		t.Fatalf("Open(%q): %v", name, err)
	}
	defer obj.Body.Close()
	b, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestAcceptStoresFile(t *testing.T) {
	svc, store := newTestService(t)

	obj, err := svc.Accept(context.Background(), "My Report.PDF", "application/pdf", strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if obj.StoredName != "1700000000000-My-Report.PDF" {
		t.Errorf("StoredName = %q", obj.StoredName)
	}
	if obj.SizeBytes != 3 {
		t.Errorf("SizeBytes = %d, want 3", obj.SizeBytes)
	}
	if obj.OriginalName != "My Report.PDF" {
		t.Errorf("OriginalName = %q", obj.OriginalName)
	}
	if got := readStored(t, store, obj.StoredName); got != "abc" {
		t.Errorf("stored content = %q", got)
	}
}

func TestAcceptCollisionGetsSuffix(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.Accept(ctx, "dup.txt", "text/plain", strings.NewReader("one"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Accept(ctx, "dup.txt", "text/plain", strings.NewReader("two"))
	if err != nil {
		t.Fatal(err)
	}

	if first.StoredName != "1700000000000-dup.txt" {
		t.Errorf("first = %q", first.StoredName)
	}
	if second.StoredName != "1700000000000-dup-0a1b2c3d.txt" {
		t.Errorf("second = %q", second.StoredName)
	}
	if got := readStored(t, store, first.StoredName); got != "one" {
		t.Errorf("first object overwritten: %q", got)
	}
	if got := readStored(t, store, second.StoredName); got != "two" {
		t.Errorf("second content = %q", got)
	}
}

func TestAcceptRejectsOversizedFile(t *testing.T) {
	svc, store := newTestService(t, WithMaxFileSize(10))

	_, err := svc.Accept(context.Background(), "big.bin", "", strings.NewReader(strings.Repeat("x", 11)))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("oversized upload left %d file(s) behind", len(entries))
	}
}

func TestAcceptAtExactCeiling(t *testing.T) {
	svc, _ := newTestService(t, WithMaxFileSize(10))

	obj, err := svc.Accept(context.Background(), "edge.bin", "", strings.NewReader(strings.Repeat("x", 10)))
	if err != nil {
		t.Fatalf("file at the ceiling should be accepted: %v", err)
	}
	if obj.SizeBytes != 10 {
		t.Errorf("SizeBytes = %d", obj.SizeBytes)
	}
}

func TestAcceptContentTypeFilter(t *testing.T) {
	svc, _ := newTestService(t, WithAllowedContentTypes([]string{"image/*", "application/pdf"}))
	ctx := context.Background()

	tests := []struct {
		contentType string
		allowed     bool
	}{
		{"image/png", true},
		{"IMAGE/JPEG", true},
		{"application/pdf", true},
		{"application/pdf; charset=binary", true},
		{"text/plain", false},
		{"imagex/png", false},
		{"", false},
	}

	for i, tt := range tests {
		name := "f" + string(rune('a'+i)) + ".bin"
		_, err := svc.Accept(ctx, name, tt.contentType, strings.NewReader("x"))
		if tt.allowed && err != nil {
			t.Errorf("%q should be allowed: %v", tt.contentType, err)
		}
		if !tt.allowed && !errors.Is(err, ErrTypeNotAllowed) {
			t.Errorf("%q should be rejected, got %v", tt.contentType, err)
		}
	}
}

func TestAcceptFilterDisabledByDefault(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Accept(context.Background(), "any.exe", "", strings.NewReader("x")); err != nil {
		t.Fatalf("default service should accept any type: %v", err)
	}
}

// takenStore reports every name as taken.
type takenStore struct{ storage.Storage }

func (takenStore) Create(context.Context, string, io.Reader, string) (int64, error) {
	return 0, storage.ErrExists
}

func TestAcceptGivesUpAfterRetries(t *testing.T) {
	svc := NewService(takenStore{})

	_, err := svc.Accept(context.Background(), "a.txt", "", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected error when every name is taken")
	}
	var ie *Error
	if errors.As(err, &ie) {
		t.Errorf("exhausted retries should be a server error, got kind %v", ie.Kind)
	}
}
