// Package pipeline drives one cooking run: library copies, the incremental
// walk over the source tree, and persisting the ledger.
//
// A Driver owns its registry, ledger and settings for the duration of a run
// and is the only code that mutates them. Runs are sequential; a Driver must
// not be used from more than one goroutine at a time.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/assetcook/internal/handler"
	"github.com/starford/assetcook/internal/ledger"
	"github.com/starford/assetcook/internal/libcopy"
	"github.com/starford/assetcook/internal/logfields"
	"github.com/starford/assetcook/internal/metrics"
	"github.com/starford/assetcook/internal/models"
	"github.com/starford/assetcook/internal/registry"
	"github.com/starford/assetcook/internal/settings"
	"github.com/starford/assetcook/internal/storage"
)

// Options tune a Driver.
type Options struct {
	// Platform selects the library copy list.
	Platform string
	// Force starts from an empty ledger instead of the persisted one, so
	// every file is processed. The ledger is still saved.
	Force bool
}

// Driver runs the pipeline.
type Driver struct {
	opts     Options
	registry *registry.Registry
	store    ledger.Store
	settings *settings.Settings
	src      storage.Provider
	out      storage.Provider
	logger   *slog.Logger
	rec      metrics.Recorder

	ledger *ledger.Ledger
	state  State
}

// New creates a driver. rec may be nil.
func New(
	opts Options,
	reg *registry.Registry,
	store ledger.Store,
	set *settings.Settings,
	src, out storage.Provider,
	logger *slog.Logger,
	rec metrics.Recorder,
) *Driver {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if set == nil {
		set = settings.Default()
	}
	return &Driver{
		opts:     opts,
		registry: reg,
		store:    store,
		settings: set,
		src:      src,
		out:      out,
		logger:   logger,
		rec:      rec,
		state:    StateInit,
	}
}

// State returns the phase the driver is in.
func (d *Driver) State() State { return d.state }

// Ledger returns the in-memory ledger of the current or last run.
func (d *Driver) Ledger() *ledger.Ledger { return d.ledger }

// Run executes Init → LibraryCopy → Walk → Persist → Done.
//
// Per-file problems never fail the run; they are logged and counted in the
// report. An error is returned only when the ledger cannot be loaded or
// saved, or the source tree cannot be listed.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	d.state = StateInit
	if err := d.init(); err != nil {
		return report, err
	}

	d.enter(StateLibraryCopy)
	lib := libcopy.Run(ctx, d.src, d.out, d.settings.Copies(d.opts.Platform), d.logger, d.rec)
	report.LibrariesCopied = lib.Copied
	report.LibrariesFailed = lib.Failed

	d.enter(StateWalk)
	walkErr := d.walk(ctx, report)

	// The ledger is persisted even after a cancelled walk, so files
	// processed so far are not redone.
	d.enter(StatePersist)
	if err := d.store.Save(d.ledger); err != nil {
		return report, fmt.Errorf("pipeline: persist ledger: %w", err)
	}

	d.enter(StateDone)
	report.Duration = time.Since(start)
	d.rec.ObserveRunDuration(report.Duration)

	if walkErr != nil {
		return report, walkErr
	}

	d.logger.Info("pipeline: run complete",
		slog.Int("processed", report.Processed),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("unhandled", report.Unhandled),
		slog.Int("ignored", report.Ignored),
		logfields.DurationMS(report.Duration.Milliseconds()))
	return report, nil
}

func (d *Driver) enter(s State) {
	d.state = s
	d.logger.Debug("pipeline: entering stage", logfields.Stage(s.String()))
}

func (d *Driver) init() error {
	if d.opts.Force {
		d.logger.Warn("pipeline: force mode, ignoring persisted ledger; every file will be processed")
		d.ledger = ledger.New()
		return nil
	}
	l, err := d.store.Load()
	if err != nil {
		return fmt.Errorf("pipeline: load ledger: %w", err)
	}
	d.ledger = l
	return nil
}

func (d *Driver) walk(ctx context.Context, report *Report) error {
	files, err := d.src.List("")
	if err != nil {
		return fmt.Errorf("pipeline: walk source: %w", err)
	}

	ledgerPath, _ := filepath.Abs(d.store.Location())

	// An output tree nested in the source tree holds earlier results.
	outRoot := d.out.Root()
	nestedOut := outRoot != d.src.Root() && storage.Within(outRoot, d.src.Root())

	for _, f := range files {
		if ctx.Err() != nil {
			report.Cancelled = true
			d.logger.Warn("pipeline: walk cancelled", logfields.Error(ctx.Err()))
			break
		}
		if filepath.Base(f.RelPath) == settings.FileName || (ledgerPath != "" && strings.HasPrefix(f.AbsPath, ledgerPath)) {
			continue
		}
		if nestedOut && storage.Within(f.AbsPath, outRoot) {
			continue
		}

		outcome, h, err := d.processFile(ctx, f)
		report.add(outcome)
		d.rec.IncOutcome(string(outcome), h)
		if outcome == OutcomeFailed {
			report.Failures = append(report.Failures, FileFailure{Path: f.RelPath, Handler: h, Err: err})
		}
	}
	return nil
}

// processFile decides and performs the work for one file. It never returns
// an error to the walk other than as a failed outcome.
func (d *Driver) processFile(ctx context.Context, f models.SourceFile) (Outcome, string, error) {
	if d.settings.IsIgnored(f.RelPath) {
		d.logger.Log(ctx, logfields.LevelTrace, "walk: ignored", logfields.Path(f.RelPath))
		return OutcomeIgnored, "", nil
	}

	modTime := f.ModTime.UTC()
	if !d.ledger.IsStale(f.AbsPath, modTime) {
		d.logger.Log(ctx, logfields.LevelTrace, "walk: unchanged", logfields.Path(f.RelPath))
		return OutcomeSkipped, "", nil
	}

	h, ok := d.registry.Resolve(f.Ext())
	if !ok {
		d.logger.Warn("walk: no handler found", logfields.Path(f.AbsPath))
		return OutcomeUnhandled, "", nil
	}

	output, err := d.out.Abs(f.RelPath)
	if err != nil {
		d.logger.Error("walk: invalid output path",
			logfields.Path(f.RelPath),
			logfields.Handler(h.Name()),
			logfields.Error(err))
		return OutcomeFailed, h.Name(), err
	}

	started := time.Now()
	err = invoke(ctx, h, f.AbsPath, output)
	d.rec.ObserveImportDuration(h.Name(), time.Since(started))
	if err != nil {
		d.logger.Error("walk: import failed",
			logfields.Path(f.RelPath),
			logfields.Handler(h.Name()),
			logfields.Error(err))
		return OutcomeFailed, h.Name(), err
	}

	d.ledger.MarkProcessed(f.AbsPath, modTime)
	d.logger.Log(ctx, logfields.LevelTrace, "walk: imported",
		logfields.Path(f.AbsPath),
		logfields.Output(output),
		logfields.Handler(h.Name()))
	return OutcomeProcessed, h.Name(), nil
}

// invoke calls the handler, turning a panic into an error so one bad file
// cannot take down the walk.
func invoke(ctx context.Context, h handler.Handler, src, dst string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Import(ctx, src, dst)
}
