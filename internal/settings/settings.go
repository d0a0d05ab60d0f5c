// Package settings loads the per-tree settings document that lives in the
// source root.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/assetcook/internal/storage"
)

// FileName is the settings document name. The walk never processes it.
const FileName = "preprocessor_settings.json"

// LibraryToCopy is a file copied verbatim into the output tree.
type LibraryToCopy struct {
	// RelativePath is relative to the source root.
	RelativePath string `json:"relativePath"`
	// OutputRelativePath is the output subdirectory, relative to the output root.
	OutputRelativePath string `json:"outputRelativePath"`
}

// Validate validates the library entry.
func (l LibraryToCopy) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.RelativePath, validation.Required),
	)
}

// Settings is the decoded settings document.
type Settings struct {
	// IgnoredFilePatterns are glob patterns; matching files are not cooked.
	IgnoredFilePatterns []string `json:"ignoredFilePatterns"`
	// SpeculativePathAdditions are directories appended to PATH, when they
	// exist, so handlers can find external tools.
	SpeculativePathAdditions []string `json:"speculativePathAdditions"`
	// LibraryCopies is keyed by platform.
	LibraryCopies map[string][]LibraryToCopy `json:"libraryCopies"`
	// ProcessorSettings is passed through to handlers.
	ProcessorSettings map[string]string `json:"processorSettings"`
}

// Default returns an empty settings document.
func Default() *Settings {
	return &Settings{
		IgnoredFilePatterns:      []string{},
		SpeculativePathAdditions: []string{},
		LibraryCopies:            map[string][]LibraryToCopy{},
		ProcessorSettings:        map[string]string{},
	}
}

// Validate validates the settings document.
func (s *Settings) Validate() error {
	for platform, copies := range s.LibraryCopies {
		for i, c := range copies {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("libraryCopies[%s][%d]: %w", platform, i, err)
			}
		}
	}
	for _, p := range s.IgnoredFilePatterns {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("ignoredFilePatterns: %q: %w", p, err)
		}
	}
	return nil
}

// Load reads FileName from the root of src.
//
// When the document is missing, defaults are written to it and returned.
// When it cannot be decoded or validated, the error is logged and defaults
// are returned. Only a failure to read an existing file or to write the
// defaults is returned as an error.
func Load(src storage.Provider, logger *slog.Logger) (*Settings, error) {
	file := filepath.Join(src.Root(), FileName)
	data, err := src.Read(FileName)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("settings: file not found, writing defaults", slog.String("path", file))
		s := Default()
		if err := Save(src, s); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	s, err := Decode(data)
	if err != nil {
		logger.Error("settings: failed to load, using defaults",
			slog.String("path", file),
			slog.String("error", err.Error()))
		return Default(), nil
	}
	logger.Info("settings: loaded", slog.String("path", file))
	return s, nil
}

// Decode parses and validates a settings document. Missing sections are
// filled with empty values; unknown keys are ignored.
func Decode(data []byte) (*Settings, error) {
	s := Default()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("settings: decode: %w", err)
	}
	if s.LibraryCopies == nil {
		s.LibraryCopies = map[string][]LibraryToCopy{}
	}
	if s.ProcessorSettings == nil {
		s.ProcessorSettings = map[string]string{}
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

// Save writes s as indented JSON to FileName in the root of dst.
func Save(dst storage.Provider, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := dst.Write(FileName, append(data, '\n')); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}

// ProcessorSetting returns the processor setting for key, or def.
func (s *Settings) ProcessorSetting(key, def string) string {
	if v, ok := s.ProcessorSettings[key]; ok && v != "" {
		return v
	}
	return def
}

// Copies returns the library copies for platform.
func (s *Settings) Copies(platform string) []LibraryToCopy {
	return s.LibraryCopies[platform]
}

// IsIgnored reports whether rel (relative to the source root) matches one of
// the ignored patterns. Patterns are matched against the slash-separated
// relative path and against the base name.
func (s *Settings) IsIgnored(rel string) bool {
	slashed := filepath.ToSlash(rel)
	base := path.Base(slashed)
	for _, p := range s.IgnoredFilePatterns {
		if ok, _ := path.Match(p, slashed); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
		// "dir/" style patterns ignore a whole subtree.
		if strings.HasSuffix(p, "/") && strings.HasPrefix(slashed, p) {
			return true
		}
	}
	return false
}

// ExtendPath appends every existing SpeculativePathAdditions directory to the
// process PATH and returns the directories that were added.
func (s *Settings) ExtendPath() []string {
	var added []string
	current := os.Getenv("PATH")
	for _, dir := range s.SpeculativePathAdditions {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		added = append(added, dir)
	}
	if len(added) == 0 {
		return nil
	}
	parts := append([]string{current}, added...)
	if current == "" {
		parts = added
	}
	_ = os.Setenv("PATH", strings.Join(parts, string(os.PathListSeparator)))
	return added
}
