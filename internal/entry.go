// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/assetcook/internal/apperr"
	"github.com/starford/assetcook/internal/ledger"
	"github.com/starford/assetcook/internal/logfields"
	"github.com/starford/assetcook/internal/metrics"
	"github.com/starford/assetcook/internal/models"
	"github.com/starford/assetcook/internal/pipeline"
	"github.com/starford/assetcook/internal/processors"
	"github.com/starford/assetcook/internal/registry"
	"github.com/starford/assetcook/internal/settings"
	"github.com/starford/assetcook/internal/storage"
	"github.com/starford/assetcook/internal/watch"
)

// Run cooks the target once, or keeps cooking on every change in watch mode.
//
// Only startup problems are returned: a missing source directory, an invalid
// output directory, or a ledger that cannot be opened, loaded or saved.
// Per-file failures are logged and never fail the run.
//
// Two processes cooking into the same ledger or output tree at the same time
// are not supported; nothing guards against it.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	if app.target == nil {
		return fmt.Errorf("target is required: %w", apperr.ErrInvalidArgs)
	}

	cfg := app.config
	target := *app.target

	logger := NewLogger(os.Stdout, cfg.App)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("source", target.SourceDir),
		slog.String("output", target.OutputDir),
		slog.String("platform", target.Platform),
		slog.String("configuration", target.Configuration),
		slog.String("ledger_backend", cfg.Ledger.Backend),
		slog.String("log_level", cfg.App.LogLevel))

	src, out, err := openTrees(target, logger)
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg.Ledger.Backend, cfg.Ledger.Dir, target.Platform, target.Configuration, logger)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer store.Close()

	var prom *metrics.PrometheusRecorder
	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled() {
		prom = metrics.NewPrometheusRecorder(nil)
		rec = prom
	}

	c := &cooker{
		target: target,
		src:    src,
		out:    out,
		store:  store,
		rec:    rec,
		prom:   prom,
		cfg:    cfg,
		logger: logger,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		if err := c.pass(gCtx, app.force); err != nil {
			return err
		}
		if !app.watch {
			return nil
		}
		return watch.Watch(gCtx, src.Root(), watch.Options{
			Debounce: cfg.Watch.Debounce,
			Ignore:   c.ignoreEvent,
		}, logger, func(ctx context.Context) {
			if err := c.pass(ctx, false); err != nil {
				logger.Error("watch: pass failed", logfields.Error(err))
			}
		})
	})

	// Handle shutdown signals. A signal cancels the walk between files; the
	// ledger is still persisted.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", logfields.Error(err))
		return err
	}
	return nil
}

// NewLogger builds the application logger for cfg, writing to w.
func NewLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       cfg.Level(),
		ReplaceAttr: logfields.ReplaceLevel,
	}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openTrees validates the source root and creates the output root when it
// does not exist yet.
func openTrees(t models.Target, logger *slog.Logger) (src, out *storage.FS, err error) {
	info, err := os.Stat(t.SourceDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil, fmt.Errorf("%s: %w", t.SourceDir, apperr.ErrSourceMissing)
	case err != nil:
		return nil, nil, fmt.Errorf("stat source: %w", err)
	case !info.IsDir():
		return nil, nil, fmt.Errorf("%s is not a directory: %w", t.SourceDir, apperr.ErrSourceMissing)
	}

	if _, statErr := os.Stat(t.OutputDir); errors.Is(statErr, fs.ErrNotExist) {
		logger.Warn("Output directory does not exist, creating it", slog.String("path", t.OutputDir))
		if err := os.MkdirAll(t.OutputDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	if src, err = storage.NewFS(t.SourceDir); err != nil {
		return nil, nil, fmt.Errorf("init source: %w", err)
	}
	if out, err = storage.NewFS(t.OutputDir); err != nil {
		return nil, nil, fmt.Errorf("init output: %w", err)
	}
	return src, out, nil
}

// cooker runs pipeline passes for one target. Settings are reloaded and the
// registry rebuilt on every pass so watch mode picks up edits to the
// settings document.
type cooker struct {
	target models.Target
	src    *storage.FS
	out    *storage.FS
	store  ledger.Store
	rec    metrics.Recorder
	prom   *metrics.PrometheusRecorder
	cfg    *Config
	logger *slog.Logger

	pathExtended bool
}

func (c *cooker) pass(ctx context.Context, force bool) error {
	set, err := settings.Load(c.src, c.logger)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !c.pathExtended {
		c.pathExtended = true
		if added := set.ExtendPath(); len(added) > 0 {
			c.logger.Debug("PATH extended", slog.Any("dirs", added))
		}
	}

	reg := registry.New(processors.Builtin(set, c.logger)...)
	for _, r := range reg.Extensions() {
		c.logger.Debug("registry: handler registered",
			slog.String("extension", r.Extension),
			slog.Int("priority", r.Priority),
			logfields.Handler(r.Handler.Name()))
	}
	if w, ok := reg.Wildcard(); ok {
		c.logger.Debug("registry: fallback handler",
			slog.Int("priority", w.Priority),
			logfields.Handler(w.Handler.Name()))
	}

	driver := pipeline.New(pipeline.Options{
		Platform: c.target.Platform,
		Force:    force,
	}, reg, c.store, set, c.src, c.out, c.logger, c.rec)

	report, err := driver.Run(ctx)
	if c.prom != nil {
		if werr := c.prom.WriteTextfile(c.cfg.Metrics.Textfile); werr != nil {
			c.logger.Warn("metrics: textfile not written", logfields.Error(werr))
		}
	}
	if err != nil {
		return err
	}

	for _, f := range report.Failures {
		c.logger.Warn("pass: file will be retried next run",
			logfields.Path(f.Path),
			logfields.Handler(f.Handler),
			logfields.Error(f.Err))
	}
	return nil
}

// ignoreEvent filters out changes the pipeline itself makes inside the
// source tree: the output tree, ledger files and the metrics textfile.
func (c *cooker) ignoreEvent(p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	if storage.Within(abs, c.out.Root()) {
		return true
	}
	if ledgerPath, err := filepath.Abs(c.store.Location()); err == nil && strings.HasPrefix(abs, ledgerPath) {
		// Also covers SQLite -wal and -shm companions.
		return true
	}
	if c.cfg.Metrics.Enabled() {
		if mp, err := filepath.Abs(c.cfg.Metrics.Textfile); err == nil && strings.HasPrefix(abs, mp) {
			return true
		}
	}
	return false
}
