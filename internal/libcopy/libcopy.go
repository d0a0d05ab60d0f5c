// Package libcopy copies platform-specific auxiliary files (runtime
// libraries and the like) verbatim into the output tree. It runs once per
// pipeline run and never consults the ledger.
package libcopy

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/assetcook/internal/logfields"
	"github.com/starford/assetcook/internal/metrics"
	"github.com/starford/assetcook/internal/settings"
	"github.com/starford/assetcook/internal/storage"
)

// Results recorded per entry.
const (
	ResultCopied  = "copied"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Result summarises one stage run.
type Result struct {
	Copied  int
	Skipped int
	Failed  int
}

// Run copies every entry in copies from src into out. Each file keeps its
// name and lands in out/<OutputRelativePath>/. Missing sources and existing
// destinations are skipped; individual failures are logged and the
// remaining entries are still copied.
func Run(ctx context.Context, src, out storage.Provider, copies []settings.LibraryToCopy, logger *slog.Logger, rec metrics.Recorder) Result {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	var res Result
	count := func(result string) {
		switch result {
		case ResultCopied:
			res.Copied++
		case ResultSkipped:
			res.Skipped++
		case ResultFailed:
			res.Failed++
		}
		rec.IncLibraryCopy(result)
	}

	for _, lib := range copies {
		if ctx.Err() != nil {
			break
		}
		count(copyOne(src, out, lib, logger))
	}
	return res
}

func copyOne(src, out storage.Provider, lib settings.LibraryToCopy, logger *slog.Logger) string {
	input, err := src.Abs(lib.RelativePath)
	if err != nil {
		logger.Error("libcopy: invalid source path",
			slog.String("path", lib.RelativePath),
			logfields.Error(err))
		return ResultFailed
	}
	info, err := os.Stat(input)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("libcopy: source does not exist, skipping", slog.String("path", input))
		return ResultSkipped
	case err != nil:
		logger.Error("libcopy: stat failed", slog.String("path", input), logfields.Error(err))
		return ResultFailed
	case !info.Mode().IsRegular():
		logger.Warn("libcopy: source is not a regular file, skipping", slog.String("path", input))
		return ResultSkipped
	}

	rel := filepath.Join(lib.OutputRelativePath, filepath.Base(input))
	output, err := out.Abs(rel)
	if err != nil {
		logger.Error("libcopy: invalid output path",
			slog.String("path", rel),
			logfields.Error(err))
		return ResultFailed
	}
	exists, err := out.Exists(rel)
	if err != nil {
		logger.Error("libcopy: stat failed", slog.String("path", output), logfields.Error(err))
		return ResultFailed
	}
	if exists {
		logger.Log(context.Background(), logfields.LevelTrace, "libcopy: destination exists, skipping",
			slog.String("source", input),
			slog.String("destination", output))
		return ResultSkipped
	}

	logger.Log(context.Background(), logfields.LevelTrace, "libcopy: copying",
		slog.String("source", input),
		slog.String("destination", output))
	if err := storage.CopyFile(input, output); err != nil {
		logger.Error("libcopy: copy failed",
			slog.String("source", input),
			slog.String("destination", output),
			logfields.Error(err))
		return ResultFailed
	}
	return ResultCopied
}
