// Package testutil provides shared test helpers for building source trees
// and stand-in handlers.
package testutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/assetcook/internal/handler"
	"github.com/starford/assetcook/internal/storage"
)

// TestTrees creates temporary source and output roots.
func TestTrees(t *testing.T) (src, out *storage.FS) {
	t.Helper()
	var err error
	src, err = storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	out, err = storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return src, out
}

// WriteFile writes content to root/rel and sets its modification time.
// A zero modTime leaves the time the file system assigned.
func WriteFile(t *testing.T, root, rel, content string, modTime time.Time) string {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if !modTime.IsZero() {
		Touch(t, p, modTime)
	}
	return p
}

// Touch sets the modification time of path.
func Touch(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal(err)
	}
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ErrFake is returned by failing fake handlers.
var ErrFake = errors.New("fake handler failure")

// FakeHandler records imports and optionally fails or copies.
type FakeHandler struct {
	HandlerName string
	ClaimList   []handler.Claim
	// Fail makes every import return ErrFake.
	Fail bool
	// Panic makes every import panic.
	Panic bool
	// Write makes successful imports copy src to dst.
	Write bool

	mu    sync.Mutex
	calls []string
}

// NewFake returns a handler claiming ext at prio.
func NewFake(name, ext string, prio int) *FakeHandler {
	return &FakeHandler{HandlerName: name, ClaimList: []handler.Claim{{Extension: ext, Priority: prio}}}
}

func (f *FakeHandler) Name() string            { return f.HandlerName }
func (f *FakeHandler) Claims() []handler.Claim { return f.ClaimList }

func (f *FakeHandler) Import(_ context.Context, src, dst string) error {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	f.mu.Unlock()
	if f.Panic {
		panic("fake handler panic")
	}
	if f.Fail {
		return ErrFake
	}
	if f.Write {
		return storage.CopyFile(src, dst)
	}
	return nil
}

// Calls returns the source paths imported so far.
func (f *FakeHandler) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
