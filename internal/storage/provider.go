// Package storage defines the rooted file-system abstraction used for the
// source and output trees.
package storage

import "github.com/starford/assetcook/internal/models"

// Provider is the interface for file operations confined to one root directory.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Abs resolves path (relative to root) to an absolute path inside root.
	Abs(path string) (string, error)
	// List returns every regular file under dir (relative to root), in lexical order.
	List(dir string) ([]models.SourceFile, error)
	// Exists reports whether path (relative to root) exists.
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}
