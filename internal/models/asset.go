// Package models defines the domain types shared across the cooking pipeline.
package models

import (
	"path/filepath"
	"time"
)

// Target identifies one cooking run: the trees it reads and writes and the
// platform/configuration pair that selects its ledger.
type Target struct {
	SourceDir     string
	OutputDir     string
	Platform      string
	Configuration string
}

// SourceFile is one file discovered while walking the source tree.
type SourceFile struct {
	// AbsPath is the canonical absolute path, used as the ledger key.
	AbsPath string
	// RelPath is the path relative to the source root, OS separators preserved.
	RelPath string
	ModTime time.Time // UTC
}

// Ext returns the file extension including the leading dot, as reported by
// the host path rules (no case folding).
func (f SourceFile) Ext() string {
	return filepath.Ext(f.RelPath)
}
