// Package handler defines the contract between the pipeline and the
// converters that turn one source asset into one build artifact.
package handler

import "context"

// Wildcard is the extension key claimed by a catch-all handler.
const Wildcard = "*"

// Claim declares that a handler can import files with Extension
// (including the leading dot, or Wildcard) at the given Priority.
// Higher priority wins.
type Claim struct {
	Extension string
	Priority  int
}

// Handler converts a source file into an output artifact.
type Handler interface {
	// Name identifies the handler in logs and metrics.
	Name() string
	// Claims lists the extensions this handler accepts.
	Claims() []Claim
	// Import converts src into dst. Implementations may change dst's
	// extension but must only write inside dst's directory subtree.
	// Any returned error is treated as a failed import.
	Import(ctx context.Context, src, dst string) error
}
