// Package watch re-runs the build pipeline whenever the configuration or
// any watched source changes.
//
// The loop is poll based: each tick compares a snapshot of modification
// times against the previous one. An optional fsnotify waker only shortens
// the sleep between ticks.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/packager/internal/config"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/journal"
	"git.home.luguber.info/inful/packager/internal/logfields"
	"git.home.luguber.info/inful/packager/internal/metrics"
	"git.home.luguber.info/inful/packager/internal/notify"
	"git.home.luguber.info/inful/packager/internal/pipeline"
	"git.home.luguber.info/inful/packager/internal/project"
)

// DefaultInterval is the poll interval when none is configured.
const DefaultInterval = time.Second

// Loader builds a fresh project from the configuration at path.
type Loader func(path string) (*project.Project, error)

// LoadProject is the Loader used by the CLI.
func LoadProject(path string) (*project.Project, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return project.New(cfg)
}

// Journal records build passes.
type Journal interface {
	Append(ctx context.Context, e journal.Entry) error
}

// Options configure a Watcher.
type Options struct {
	ConfigPath string
	// Selector is a build id or project.AllBuilds; it is re-resolved after
	// every reload.
	Selector string
	Interval time.Duration
	// Debounce, when positive, re-snapshots until two consecutive snapshots
	// taken Debounce apart agree before rebuilding.
	Debounce time.Duration
	// FSNotify wakes the loop early on filesystem events.
	FSNotify bool
}

// TickResult reports what one tick did.
type TickResult struct {
	Reloaded bool
	Rebuilt  bool
	Reason   metrics.RebuildReason
	Changes  Changes
	Results  []pipeline.Result
}

// Watcher owns the current project and the last snapshot.
type Watcher struct {
	opts      Options
	load      Loader
	runner    *pipeline.Runner
	publisher notify.Publisher
	recorder  metrics.Recorder
	journal   Journal
	logger    *slog.Logger

	proj        *project.Project
	builds      []string
	configMtime time.Time
	snapshot    Snapshot
	waker       *waker
}

// New returns a Watcher; nothing is loaded until the first tick.
func New(opts Options, load Loader, runner *pipeline.Runner) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if load == nil {
		load = LoadProject
	}
	return &Watcher{
		opts:      opts,
		load:      load,
		runner:    runner,
		publisher: notify.Noop{},
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
}

// WithPublisher sets where rebuild events are sent.
func (w *Watcher) WithPublisher(p notify.Publisher) *Watcher {
	if p != nil {
		w.publisher = p
	}
	return w
}

// WithRecorder sets the metrics recorder.
func (w *Watcher) WithRecorder(r metrics.Recorder) *Watcher {
	if r != nil {
		w.recorder = r
	}
	return w
}

// WithJournal records every rebuilt pass.
func (w *Watcher) WithJournal(j Journal) *Watcher {
	w.journal = j
	return w
}

// WithLogger sets the logger.
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// Project returns the currently loaded project.
func (w *Watcher) Project() *project.Project { return w.proj }

// Run ticks until ctx is canceled, returning nil then. A configuration
// reload failure ends the loop with that error.
func (w *Watcher) Run(ctx context.Context) error {
	if w.opts.FSNotify {
		wk, err := newWaker(w.logger)
		if err != nil {
			w.logger.Warn("Filesystem notifications unavailable, polling only", logfields.Error(err))
		} else {
			w.waker = wk
			defer func() {
				wk.close()
				w.waker = nil
			}()
		}
	}

	w.logger.Info("Watching for changes",
		logfields.Path(w.opts.ConfigPath),
		slog.String("selector", w.opts.Selector),
		slog.Duration("interval", w.opts.Interval))

	for {
		if _, err := w.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !w.sleep(ctx) {
			w.logger.Info("Watch loop stopped")
			return nil
		}
	}
}

func (w *Watcher) sleep(ctx context.Context) bool {
	timer := time.NewTimer(w.opts.Interval)
	defer timer.Stop()

	var wake <-chan struct{}
	if w.waker != nil {
		wake = w.waker.wake
	}
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	case <-wake:
	}
	return true
}

// Tick performs one iteration: reload if the configuration changed, refresh
// file groups, snapshot, and rebuild every selected build on any difference.
func (w *Watcher) Tick(ctx context.Context) (TickResult, error) {
	var tr TickResult
	initial := w.proj == nil

	reloaded, err := w.reloadIfChanged()
	if err != nil {
		return tr, err
	}
	tr.Reloaded = reloaded

	w.proj.Update(w.builds)
	next := TakeSnapshot(w.proj, w.builds)
	tr.Changes = Diff(w.snapshot, next)

	switch {
	case initial:
		tr.Reason = metrics.RebuildInitial
	case reloaded:
		tr.Reason = metrics.RebuildConfig
	case !tr.Changes.Empty():
		tr.Reason = metrics.RebuildFiles
	default:
		w.snapshot = next
		return tr, nil
	}

	if !initial {
		w.logChanges(tr.Changes)
	}
	if w.opts.Debounce > 0 && tr.Reason == metrics.RebuildFiles {
		if next, err = w.settle(ctx, next); err != nil {
			return tr, err
		}
	}
	w.snapshot = next
	if w.waker != nil {
		dirs := next.Dirs()
		if w.opts.ConfigPath != "" {
			dirs = append(dirs, filepath.Dir(w.opts.ConfigPath))
		}
		w.waker.sync(dirs)
	}

	tr.Results = w.rebuild(ctx, tr.Reason, tr.Changes)
	tr.Rebuilt = true
	w.snapshot.refreshAncestors(w.targetDirs())
	return tr, nil
}

// targetDirs returns the absolute target directories of the selected builds.
func (w *Watcher) targetDirs() []string {
	dirs := make([]string, 0, len(w.builds))
	for _, id := range w.builds {
		b, err := w.proj.Build(id)
		if err != nil {
			continue
		}
		if abs, err := filepath.Abs(b.TargetDir); err == nil {
			dirs = append(dirs, abs)
		}
	}
	return dirs
}

// reloadIfChanged loads the configuration on the first call and whenever its
// modification time moves.
func (w *Watcher) reloadIfChanged() (bool, error) {
	info, err := os.Stat(w.opts.ConfigPath)
	if err != nil {
		// Editors often replace the file by rename, so a missing file after
		// the first load is treated as transient and the next tick retries.
		if w.proj != nil {
			w.logger.Warn("Configuration temporarily unreadable, keeping current project",
				logfields.Path(w.opts.ConfigPath), logfields.Error(err))
			return false, nil
		}
		return false, ferrors.ConfigError("configuration not found").
			WithCause(err).
			WithContext("file", w.opts.ConfigPath).
			Build()
	}
	if w.proj != nil && info.ModTime().Equal(w.configMtime) {
		return false, nil
	}

	if w.proj != nil {
		w.logger.Info("Configuration changed, reloading", logfields.Path(w.opts.ConfigPath))
	}
	proj, err := w.load(w.opts.ConfigPath)
	if err != nil {
		return false, err
	}
	builds, err := proj.SelectBuilds(w.opts.Selector)
	if err != nil {
		return false, err
	}

	w.proj = proj
	w.builds = builds
	w.configMtime = info.ModTime()
	return true, nil
}

// settle re-snapshots until the tree stops changing.
func (w *Watcher) settle(ctx context.Context, current Snapshot) (Snapshot, error) {
	for {
		timer := time.NewTimer(w.opts.Debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return current, ctx.Err()
		case <-timer.C:
		}
		w.proj.Update(w.builds)
		next := TakeSnapshot(w.proj, w.builds)
		if Diff(current, next).Empty() {
			return next, nil
		}
		w.logger.Debug("Changes still arriving, waiting", slog.Duration("debounce", w.opts.Debounce))
		current = next
	}
}

func (w *Watcher) logChanges(c Changes) {
	for _, p := range c.Added {
		w.logger.Info("Path added", logfields.Path(p))
	}
	for _, p := range c.Removed {
		w.logger.Info("Path removed", logfields.Path(p))
	}
	for _, p := range c.Modified {
		w.logger.Info("Path changed", logfields.Path(p))
	}
}

func (w *Watcher) rebuild(ctx context.Context, reason metrics.RebuildReason, changes Changes) []pipeline.Result {
	w.recorder.IncWatchRebuild(reason)
	runID := journal.NewRunID()

	results, err := w.runner.Run(ctx, w.proj, w.builds)
	if err != nil {
		w.logger.Warn("Rebuild finished with errors", slog.String("reason", string(reason)), logfields.Error(err))
	} else {
		w.logger.Info("Rebuild done", slog.String("reason", string(reason)), logfields.Count(len(results)))
	}

	if w.journal != nil {
		for _, res := range results {
			if err := w.journal.Append(ctx, journal.FromResult(runID, journal.Trigger(reason), res)); err != nil {
				w.logger.Warn("Failed to record build pass", logfields.Build(res.BuildID), logfields.Error(err))
			}
		}
	}

	ev := notify.Event{
		Project: w.proj.Name(),
		RunID:   runID,
		Reason:  string(reason),
		Changed: changes.Paths(),
		Builds:  notify.Summarize(results),
	}
	if err := w.publisher.Publish(ctx, ev); err != nil {
		w.logger.Warn("Failed to publish rebuild event", logfields.Error(err))
	}
	return results
}
