package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/packager/internal/compress"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/logfields"
	"git.home.luguber.info/inful/packager/internal/metrics"
	"git.home.luguber.info/inful/packager/internal/project"
	"git.home.luguber.info/inful/packager/internal/subst"
)

// Stage names reported to the metrics recorder.
const (
	StageCompress = "compress"
	StageCopy     = "copy"
	StageSubst    = "subst"
)

// Result summarizes one build pass.
type Result struct {
	BuildID     string
	Copied      int
	Skipped     int
	Substituted int
	Compressed  bool
	Duration    time.Duration
	Err         error
}

// Runner executes build passes against a project.
type Runner struct {
	compressor *compress.Compressor
	renderer   *subst.Renderer
	logger     *slog.Logger
	recorder   metrics.Recorder
}

// NewRunner returns a Runner with the default compressor and renderer.
func NewRunner() *Runner {
	return &Runner{
		compressor: compress.New(),
		renderer:   subst.NewRenderer(),
		logger:     slog.Default(),
		recorder:   metrics.NoopRecorder{},
	}
}

// WithLogger sets the logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	if logger != nil {
		r.logger = logger
		r.compressor.WithLogger(logger)
		r.renderer.WithLogger(logger)
	}
	return r
}

// WithRecorder sets the metrics recorder.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// WithCompressor replaces the script compressor.
func (r *Runner) WithCompressor(c *compress.Compressor) *Runner {
	r.compressor = c
	return r
}

// WithRenderer replaces the subst renderer.
func (r *Runner) WithRenderer(rd *subst.Renderer) *Runner {
	r.renderer = rd
	return r
}

// Run processes each build in order. A failing build does not stop the
// others; the returned error joins every per-build failure.
func (r *Runner) Run(ctx context.Context, proj *project.Project, buildIDs []string) ([]Result, error) {
	results := make([]Result, 0, len(buildIDs))
	var errs []error
	for _, id := range buildIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := r.RunBuild(ctx, proj, id)
		results = append(results, res)
		if err != nil {
			level, msg := failureLevel(err)
			r.logger.Log(ctx, level, msg, append([]any{logfields.Build(id)}, errorAttrs(err)...)...)
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// RunBuild performs one pass for buildID.
func (r *Runner) RunBuild(ctx context.Context, proj *project.Project, buildID string) (res Result, err error) {
	res.BuildID = buildID
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		res.Err = err
		r.recorder.ObserveBuildDuration(buildID, res.Duration)
		r.recorder.IncBuildOutcome(buildID, outcomeOf(err))
	}()

	build, err := proj.Build(buildID)
	if err != nil {
		return res, err
	}
	r.logger.Info("Running build", logfields.Build(buildID), logfields.Target(build.TargetDir))

	files := proj.Merged(buildID)

	combined := false
	if build.Compresses() && len(files.Files(project.GroupJS)) > 0 {
		stageStart := time.Now()
		res.Compressed, err = r.compressScripts(ctx, build, files.Files(project.GroupJS))
		r.recorder.ObserveStageDuration(StageCompress, time.Since(stageStart))
		if err != nil {
			return res, err
		}
		// The artifact already lives in the target directory; only the
		// marker rendering sees it through the js group.
		files.Set(project.GroupJS, []string{build.Compression.Filename})
		combined = true
	}

	stageStart := time.Now()
	for _, key := range files.Keys() {
		if key == project.GroupSubst || (key == project.GroupJS && combined) {
			continue
		}
		if err := r.copyGroup(ctx, build, key, files.Files(key), &res); err != nil {
			return res, err
		}
	}
	r.recorder.ObserveStageDuration(StageCopy, time.Since(stageStart))

	stageStart = time.Now()
	for _, f := range files.Files(project.GroupSubst) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := r.substitute(build, f, files); err != nil {
			return res, err
		}
		res.Substituted++
	}
	r.recorder.ObserveStageDuration(StageSubst, time.Since(stageStart))

	r.logger.Info("Build complete",
		logfields.Build(buildID),
		slog.Int("copied", res.Copied),
		slog.Int("skipped", res.Skipped),
		slog.Int("substituted", res.Substituted),
		logfields.Duration(time.Since(start)))
	return res, nil
}

// compressScripts regenerates the artifact when it is missing or older than
// any script. It reports whether the artifact was rewritten.
func (r *Runner) compressScripts(ctx context.Context, build *project.Build, scripts []string) (bool, error) {
	level := build.Compression.Level
	out := build.CompressedOutput()

	stale, err := ArtifactStale(scripts, out)
	if err != nil {
		return false, err
	}
	if !stale {
		r.logger.Debug("Compressed output up to date", logfields.Build(build.ID), logfields.Target(out))
		r.recorder.IncCompression(level, metrics.ResultSkipped)
		return false, nil
	}

	data, err := r.compressor.Compress(ctx, level, scripts, build.Compression)
	if err != nil {
		r.recorder.IncCompression(level, metrics.ResultFailed)
		return false, err
	}
	if err := writeArtifact(out, data); err != nil {
		r.recorder.IncCompression(level, metrics.ResultFailed)
		return false, err
	}
	r.recorder.IncCompression(level, metrics.ResultSuccess)
	r.logger.Info("Regenerated compressed scripts",
		logfields.Build(build.ID),
		logfields.Target(out),
		logfields.Level(level),
		logfields.Count(len(scripts)))
	return true, nil
}

func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferrors.FileSystemError("failed to create target directory").
			WithCause(err).
			WithContext("target", path).
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.FileSystemError("failed to write compressed output").
			WithCause(err).
			WithContext("target", path).
			Build()
	}
	return nil
}

func (r *Runner) copyGroup(ctx context.Context, build *project.Build, key string, files []string, res *Result) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst, err := Destination(build.TargetDir, f)
		if err != nil {
			return err
		}
		stale, err := NeedsCopy(f, dst)
		if err != nil {
			return err
		}
		if !stale {
			res.Skipped++
			r.recorder.IncFileAction(metrics.FileSkipped)
			r.logger.Debug("Up to date", logfields.Group(key), logfields.Path(f))
			continue
		}
		if err := copyFile(f, dst); err != nil {
			return err
		}
		res.Copied++
		r.recorder.IncFileAction(metrics.FileCopied)
		r.logger.Info("Copied", logfields.Group(key), logfields.Path(f), logfields.Target(dst))
	}
	return nil
}

func (r *Runner) substitute(build *project.Build, src string, files *project.FileMap) error {
	dst, err := Destination(build.TargetDir, src)
	if err != nil {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	r.logger.Info("Copied", logfields.Group(project.GroupSubst), logfields.Path(src), logfields.Target(dst))
	if err := r.renderer.ApplyFile(dst, files); err != nil {
		return err
	}
	r.recorder.IncFileAction(metrics.FileSubstituted)
	return nil
}

func outcomeOf(err error) metrics.BuildOutcomeLabel {
	switch {
	case err == nil:
		return metrics.BuildOutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.BuildOutcomeCanceled
	default:
		return metrics.BuildOutcomeFailed
	}
}

// failureLevel picks how a failed build is reported. Failures a later pass can
// clear are warnings; fatal ones need the configuration or sources fixed.
func failureLevel(err error) (slog.Level, string) {
	ce, ok := ferrors.AsClassified(err)
	switch {
	case ok && ce.CanRetry():
		return slog.LevelWarn, "Build failed, will retry on next pass"
	case ok && ce.IsFatal():
		return slog.LevelError, "Build failed, fix the project before the next pass"
	default:
		return slog.LevelError, "Build failed"
	}
}

func errorAttrs(err error) []any {
	attrs := []any{logfields.Error(err)}
	if ce, ok := ferrors.AsClassified(err); ok {
		for _, a := range ce.LogAttrs() {
			attrs = append(attrs, a)
		}
	}
	return attrs
}
