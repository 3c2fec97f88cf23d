package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// BuildOutcomeLabel is the final status of one build pass.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// FileAction is what a build pass did with one file.
type FileAction string

const (
	FileCopied      FileAction = "copied"
	FileSkipped     FileAction = "skipped"
	FileSubstituted FileAction = "substituted"
)

// RebuildReason explains why the watcher triggered a rebuild.
type RebuildReason string

const (
	RebuildInitial RebuildReason = "initial"
	RebuildConfig  RebuildReason = "config"
	RebuildFiles   RebuildReason = "files"
)

// Recorder defines observability hooks for build passes and the watch loop.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(build string, d time.Duration)
	IncBuildOutcome(build string, outcome BuildOutcomeLabel)
	IncFileAction(action FileAction)
	IncCompression(level int, result ResultLabel)
	IncWatchRebuild(reason RebuildReason)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string, BuildOutcomeLabel)  {}
func (NoopRecorder) IncFileAction(FileAction)                   {}
func (NoopRecorder) IncCompression(int, ResultLabel)            {}
func (NoopRecorder) IncWatchRebuild(RebuildReason)              {}
