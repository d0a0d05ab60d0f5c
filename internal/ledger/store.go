package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/assetcook/internal/storage"
)

// Store loads and persists a Ledger.
type Store interface {
	// Load returns the persisted ledger, or an empty one when none exists.
	Load() (*Ledger, error)
	// Save replaces the persisted ledger with l.
	Save(l *Ledger) error
	// Location describes where the ledger lives.
	Location() string
	Close() error
}

// Open returns the Store for backend, persisting under dir with the
// platform/configuration specific file name.
func Open(backend, dir, platform, configuration string, logger *slog.Logger) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create dir: %w", err)
	}
	path := filepath.Join(dir, FileName(platform, configuration, backend))
	switch backend {
	case BackendText, "":
		return NewTextStore(path, logger), nil
	case BackendSQLite:
		return OpenSQLite(path, logger)
	default:
		return nil, fmt.Errorf("ledger: unknown backend %q", backend)
	}
}

// TextStore persists the ledger as a plain text file.
type TextStore struct {
	path   string
	logger *slog.Logger
}

var _ Store = (*TextStore)(nil)

// NewTextStore returns a store backed by the file at path.
func NewTextStore(path string, logger *slog.Logger) *TextStore {
	return &TextStore{path: path, logger: logger}
}

// Location returns the ledger file path.
func (s *TextStore) Location() string { return s.path }

// Load reads the ledger file. A missing file yields an empty ledger.
func (s *TextStore) Load() (*Ledger, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("ledger: no persisted ledger found", slog.String("path", s.path))
			return New(), nil
		}
		return nil, fmt.Errorf("ledger: read %s: %w", s.path, err)
	}
	l, err := Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ledger: loaded", slog.String("path", s.path), slog.Int("entries", l.Len()))
	return l, nil
}

// Save overwrites the ledger file with l's entries.
func (s *TextStore) Save(l *Ledger) error {
	var buf bytes.Buffer
	if err := l.Encode(&buf); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("ledger: save %s: %w", s.path, err)
	}
	s.logger.Info("ledger: saved", slog.String("path", s.path), slog.Int("entries", l.Len()))
	return nil
}

// Close is a no-op for the text store.
func (s *TextStore) Close() error { return nil }
