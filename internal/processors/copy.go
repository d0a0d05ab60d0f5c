// Package processors holds the built-in handlers.
package processors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/starford/assetcook/internal/handler"
	"github.com/starford/assetcook/internal/logfields"
	"github.com/starford/assetcook/internal/storage"
)

// Copy is the catch-all handler: it copies files verbatim.
type Copy struct {
	logger *slog.Logger
}

var _ handler.Handler = (*Copy)(nil)

// NewCopy creates the copy handler.
func NewCopy(logger *slog.Logger) *Copy {
	return &Copy{logger: logger}
}

func (c *Copy) Name() string { return "copy" }

func (c *Copy) Claims() []handler.Claim {
	return []handler.Claim{{Extension: handler.Wildcard, Priority: 1}}
}

// Import replaces dst with a copy of src.
func (c *Copy) Import(ctx context.Context, src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("copy: remove existing %s: %w", dst, err)
	}
	if err := storage.CopyFile(src, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	c.logger.Log(ctx, logfields.LevelTrace, "copy: done", logfields.Path(src), logfields.Output(dst))
	return nil
}
