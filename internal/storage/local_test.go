package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLocalStorageIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	if _, err := NewLocalStorage(dir); err != nil {
		t.Fatalf("first create: %v", err)
	}
	existing := filepath.Join(dir, "1700000000000-keep.txt")
	if err := os.WriteFile(existing, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLocalStorage(dir); err != nil {
		t.Fatalf("second create on existing dir: %v", err)
	}
	got, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("existing file gone: %v", err)
	}
	if string(got) != "keep me" {
		t.Errorf("existing file altered: %q", got)
	}
}

func TestCreateAndOpen(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	n, err := s.Create(ctx, "1-report.pdf", strings.NewReader("abc"), "application/pdf")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n != 3 {
		t.Errorf("Create wrote %d bytes, want 3", n)
	}

	obj, err := s.Open(ctx, "1-report.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "abc" {
		t.Errorf("body = %q, want abc", body)
	}
	if obj.Size != 3 {
		t.Errorf("Size = %d, want 3", obj.Size)
	}
}

func TestCreateExclusive(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := s.Create(ctx, "dup.txt", strings.NewReader("first"), ""); err != nil {
		t.Fatal(err)
	}

	r := strings.NewReader("second")
	_, err = s.Create(ctx, "dup.txt", r, "")
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if r.Len() != len("second") {
		t.Error("reader was consumed although the name was taken")
	}

	obj, err := s.Open(ctx, "dup.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer obj.Body.Close()
	body, _ := io.ReadAll(obj.Body)
	if string(body) != "first" {
		t.Errorf("original object overwritten: %q", body)
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestCreateRemovesPartialFile(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")

	_, err = s.Create(context.Background(), "partial.bin", &failingReader{data: []byte("half"), err: boom}, "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped reader error, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(s.Dir(), "partial.bin")); !os.IsNotExist(err) {
		t.Errorf("partial file should have been removed, stat err = %v", err)
	}
}

func TestCreateCancelledContext(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Create(ctx, "late.txt", strings.NewReader("x"), ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "late.txt")); !os.IsNotExist(err) {
		t.Error("no file should exist after a cancelled create")
	}
}

func TestOpenNotFound(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(s.Dir(), "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"missing.txt", "..", "../etc/passwd", "subdir", ""} {
		if _, err := s.Open(context.Background(), name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q) = %v, want ErrNotFound", name, err)
		}
	}
}

func TestRemove(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := s.Create(ctx, "gone.txt", strings.NewReader("x"), ""); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, "gone.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, "gone.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove = %v, want ErrNotFound", err)
	}
}

func TestPing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping should fail once the directory is gone")
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"stored name", "1700000000000-My-Report.PDF", false},
		{"underscore", "1-a_b.txt", false},
		{"no extension", "1-readme", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dot dot", "..", true},
		{"hidden", ".env", true},
		{"slash", "a/b.txt", true},
		{"backslash", `a\b.txt`, true},
		{"space", "a b.txt", true},
		{"percent", "..%2fevil", true},
		{"too long", strings.Repeat("a", maxNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
