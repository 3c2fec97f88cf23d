package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packager/internal/config"
	"git.home.luguber.info/inful/packager/internal/metrics"
	"git.home.luguber.info/inful/packager/internal/project"
)

// workdir switches into a fresh directory so configurations can use the
// relative paths the packager is normally run with.
func workdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func write(t *testing.T, rel, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(rel), 0o755))
	require.NoError(t, os.WriteFile(rel, []byte(content), 0o644))
}

func read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(rel)
	require.NoError(t, err)
	return string(data)
}

func touch(t *testing.T, rel string, at time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(rel, at, at))
}

func literals(paths ...string) []config.MatcherDecl {
	out := make([]config.MatcherDecl, 0, len(paths))
	for _, p := range paths {
		out = append(out, config.Literal(p))
	}
	return out
}

// singleBuild declares one package with one "dev" configuration.
func singleBuild(t *testing.T, build config.BuildDecl, groups ...config.GroupDecl) *project.Project {
	t.Helper()
	build.ID = "dev"
	if build.TargetDir == "" {
		build.TargetDir = "out"
	}
	p, err := project.New(&config.Config{
		Project:  "test",
		Packages: []config.PackageDecl{{ID: "app", Configs: []config.ConfigDecl{{ID: "dev", Groups: groups}}}},
		Builds:   []config.BuildDecl{build},
	})
	require.NoError(t, err)
	return p
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	actions  map[metrics.FileAction]int
	outcomes map[metrics.BuildOutcomeLabel]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		actions:  map[metrics.FileAction]int{},
		outcomes: map[metrics.BuildOutcomeLabel]int{},
	}
}

func (c *countingRecorder) IncFileAction(a metrics.FileAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions[a]++
}

func (c *countingRecorder) IncBuildOutcome(_ string, o metrics.BuildOutcomeLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[o]++
}
