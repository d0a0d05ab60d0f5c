package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/assetcook/internal/apperr"
)

func tempTree(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempTree(t)
	content := []byte("#version 450\n")
	if err := s.Write("shader.glsl", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("shader.glsl")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempTree(t)
	if err := s.Write("a/b/c.bin", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.bin")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestListReturnsAllFilesWithUTCModTimes(t *testing.T) {
	s := tempTree(t)
	_ = s.Write("a.glsl", []byte("a"))
	_ = s.Write("sub/b.glb", []byte("b"))
	_ = s.Write("sub/deeper/c.txt", []byte("c"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for _, it := range items {
		if !filepath.IsAbs(it.AbsPath) {
			t.Errorf("AbsPath %q is not absolute", it.AbsPath)
		}
		if it.ModTime.Location() != time.UTC {
			t.Errorf("ModTime for %s not UTC: %v", it.RelPath, it.ModTime.Location())
		}
	}
	if items[0].RelPath != "a.glsl" {
		t.Errorf("first item = %q, want lexical order", items[0].RelPath)
	}
	if got := items[1].Ext(); got != ".glb" {
		t.Errorf("Ext = %q, want .glb", got)
	}
}

func TestExists(t *testing.T) {
	s := tempTree(t)
	_ = s.Write("here.txt", []byte("x"))

	ok, err := s.Exists("here.txt")
	if err != nil || !ok {
		t.Errorf("Exists(here.txt) = %v, %v", ok, err)
	}
	ok, err = s.Exists("missing.txt")
	if err != nil || ok {
		t.Errorf("Exists(missing.txt) = %v, %v", ok, err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempTree(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.bin",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if _, err := s.Abs(p); !errors.Is(err, apperr.ErrPathEscapes) {
			t.Errorf("Abs(%q) err = %v, want ErrPathEscapes", p, err)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempTree(t)
	_ = s.Write("atomic.bin", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.bin", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.bin")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".assetcook-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestCopyFile(t *testing.T) {
	s := tempTree(t)
	_ = s.Write("lib/runtime.so", []byte("ELF"))
	src, _ := s.Abs("lib/runtime.so")
	dst := filepath.Join(s.root, "out", "nested", "runtime.so")

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "ELF" {
		t.Errorf("content = %q", got)
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	s := tempTree(t)
	if err := CopyFile(filepath.Join(s.root, "nope"), filepath.Join(s.root, "dst")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/assetcook-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "assetcook-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestWithin(t *testing.T) {
	root := filepath.Join(string(os.PathSeparator), "assets")
	tests := []struct {
		p    string
		want bool
	}{
		{root, true},
		{filepath.Join(root, "out", "a.txt"), true},
		{root + "-cooked", false},
		{filepath.Join(string(os.PathSeparator), "other"), false},
	}
	for _, tt := range tests {
		if got := Within(tt.p, root); got != tt.want {
			t.Errorf("Within(%s) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
