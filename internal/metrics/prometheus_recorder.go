package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "packager"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	buildDuration *prom.HistogramVec
	buildOutcome  *prom.CounterVec
	fileActions   *prom.CounterVec
	compressions  *prom.CounterVec
	rebuilds      *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of a full build pass",
			Buckets:   prom.DefBuckets,
		}, []string{"build"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build passes by final status",
		}, []string{"build", "outcome"}),
		fileActions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "file_actions_total",
			Help:      "Files copied, skipped or substituted",
		}, []string{"action"}),
		compressions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compressions_total",
			Help:      "Script compression runs by level and result",
		}, []string{"level", "result"}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_rebuilds_total",
			Help:      "Rebuilds triggered by the watch loop",
		}, []string{"reason"}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome, pr.fileActions, pr.compressions, pr.rebuilds)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(build string, d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.WithLabelValues(build).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(build string, outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(build, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncFileAction(action FileAction) {
	if p == nil {
		return
	}
	p.fileActions.WithLabelValues(string(action)).Inc()
}

func (p *PrometheusRecorder) IncCompression(level int, result ResultLabel) {
	if p == nil {
		return
	}
	p.compressions.WithLabelValues(strconv.Itoa(level), string(result)).Inc()
}

func (p *PrometheusRecorder) IncWatchRebuild(reason RebuildReason) {
	if p == nil {
		return
	}
	p.rebuilds.WithLabelValues(string(reason)).Inc()
}
