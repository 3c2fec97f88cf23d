package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packager/internal/config"
	"git.home.luguber.info/inful/packager/internal/journal"
	"git.home.luguber.info/inful/packager/internal/metrics"
	"git.home.luguber.info/inful/packager/internal/notify"
	"git.home.luguber.info/inful/packager/internal/pipeline"
	"git.home.luguber.info/inful/packager/internal/project"
)

type fixture struct {
	dir     string
	cfgPath string
	loads   int
	loadErr error
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, cfgPath: filepath.Join(dir, "packager.json")}
	require.NoError(t, os.WriteFile(f.cfgPath, []byte("{}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	f.write(t, "src/a.js", "a")

	f.cfg = &config.Config{
		Project: "watched",
		Packages: []config.PackageDecl{{ID: "app", Configs: []config.ConfigDecl{{ID: "dev", Groups: []config.GroupDecl{
			{Key: "js_files", Matchers: []config.MatcherDecl{config.Glob(filepath.Join(dir, "src"), "*.js")}},
		}}}}},
		Builds: []config.BuildDecl{
			{ID: "dev", TargetDir: filepath.Join(dir, "out")},
			{ID: "hidden", TargetDir: filepath.Join(dir, "hidden"), Hidden: true},
		},
	}
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, rel), []byte(content), 0o644))
}

func (f *fixture) loader(string) (*project.Project, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return project.New(f.cfg)
}

func (f *fixture) touchConfig(t *testing.T, at time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(f.cfgPath, at, at))
}

func (f *fixture) watcher(opts Options) *Watcher {
	opts.ConfigPath = f.cfgPath
	if opts.Selector == "" {
		opts.Selector = project.AllBuilds
	}
	return New(opts, f.loader, pipeline.NewRunner())
}

// outPath maps a source under the fixture dir to its copy in the dev target.
func (f *fixture) outPath(rel string) string {
	return filepath.Join(f.dir, "out", filepath.Join(f.dir, rel))
}

func TestTick_InitialBuildThenQuiet(t *testing.T) {
	f := newFixture(t)
	w := f.watcher(Options{})
	ctx := context.Background()

	tr, err := w.Tick(ctx)
	require.NoError(t, err)
	require.True(t, tr.Reloaded)
	require.True(t, tr.Rebuilt)
	require.Equal(t, metrics.RebuildInitial, tr.Reason)
	require.Len(t, tr.Results, 1, "hidden builds are not selected")
	require.FileExists(t, f.outPath("src/a.js"))

	tr, err = w.Tick(ctx)
	require.NoError(t, err)
	require.False(t, tr.Reloaded)
	require.False(t, tr.Rebuilt)
	require.Equal(t, 1, f.loads)
}

func TestTick_RebuildsOnModifiedAndNewFiles(t *testing.T) {
	f := newFixture(t)
	w := f.watcher(Options{})
	ctx := context.Background()
	_, err := w.Tick(ctx)
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(f.dir, "src/a.js"), later, later))
	tr, err := w.Tick(ctx)
	require.NoError(t, err)
	require.True(t, tr.Rebuilt)
	require.Equal(t, metrics.RebuildFiles, tr.Reason)
	require.Contains(t, tr.Changes.Modified, filepath.Join(f.dir, "src/a.js"))

	f.write(t, "src/b.js", "b")
	tr, err = w.Tick(ctx)
	require.NoError(t, err)
	require.True(t, tr.Rebuilt)
	require.Contains(t, tr.Changes.Added, filepath.Join(f.dir, "src/b.js"))
	require.FileExists(t, f.outPath("src/b.js"))

	require.NoError(t, os.Remove(filepath.Join(f.dir, "src/b.js")))
	tr, err = w.Tick(ctx)
	require.NoError(t, err)
	require.True(t, tr.Rebuilt)
	require.Contains(t, tr.Changes.Removed, filepath.Join(f.dir, "src/b.js"))
}

func TestTick_ReloadsChangedConfiguration(t *testing.T) {
	f := newFixture(t)
	w := f.watcher(Options{})
	ctx := context.Background()
	_, err := w.Tick(ctx)
	require.NoError(t, err)
	first := w.Project()

	f.cfg.Builds[1].Hidden = false
	f.touchConfig(t, time.Now().Add(time.Hour))
	tr, err := w.Tick(ctx)
	require.NoError(t, err)
	require.True(t, tr.Reloaded)
	require.Equal(t, metrics.RebuildConfig, tr.Reason)
	require.Len(t, tr.Results, 2)
	require.Equal(t, 2, f.loads)
	require.NotSame(t, first, w.Project())
}

func TestTick_ReloadFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	w := f.watcher(Options{})
	ctx := context.Background()
	_, err := w.Tick(ctx)
	require.NoError(t, err)

	f.loadErr = errors.New("broken config")
	f.touchConfig(t, time.Now().Add(time.Hour))
	_, err = w.Tick(ctx)
	require.EqualError(t, err, "broken config")

	err = f.watcher(Options{Interval: time.Millisecond}).Run(ctx)
	require.EqualError(t, err, "broken config")
}

func TestTick_UnknownSelectorIsFatal(t *testing.T) {
	f := newFixture(t)
	_, err := f.watcher(Options{Selector: "nope"}).Tick(context.Background())
	require.ErrorIs(t, err, project.ErrUnknownBuild)
}

func TestTick_MissingConfigBeforeFirstLoad(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.cfgPath))
	_, err := f.watcher(Options{}).Tick(context.Background())
	require.Error(t, err)
	require.Zero(t, f.loads)
}

func TestTick_DebounceWaitsForStableTree(t *testing.T) {
	f := newFixture(t)
	w := f.watcher(Options{Debounce: 10 * time.Millisecond})
	ctx := context.Background()
	_, err := w.Tick(ctx)
	require.NoError(t, err)

	f.write(t, "src/b.js", "b")
	tr, err := w.Tick(ctx)
	require.NoError(t, err)
	require.True(t, tr.Rebuilt)

	tr, err = w.Tick(ctx)
	require.NoError(t, err)
	require.False(t, tr.Rebuilt, "settled snapshot becomes the baseline")
}

func TestTick_OutputInsideGlobRootStaysQuiet(t *testing.T) {
	f := newFixture(t)
	f.write(t, "root.js", "r")
	f.cfg.Packages[0].Configs[0].Groups[0].Matchers = []config.MatcherDecl{config.Glob(f.dir, "*.js")}
	w := f.watcher(Options{})
	ctx := context.Background()

	tr, err := w.Tick(ctx)
	require.NoError(t, err)
	require.True(t, tr.Rebuilt)
	require.FileExists(t, f.outPath("root.js"))

	rebuilds := 0
	for range 4 {
		tr, err = w.Tick(ctx)
		require.NoError(t, err)
		if tr.Rebuilt {
			rebuilds++
		}
	}
	require.Zero(t, rebuilds)
	require.NoDirExists(t, filepath.Join(f.dir, "out", f.dir, "out"))
}

func TestTick_ChangeRebuildsEverySelectedBuild(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "lib"), 0o755))
	f.write(t, "lib/l.js", "l")
	f.cfg.Packages[0].Configs = append(f.cfg.Packages[0].Configs, config.ConfigDecl{ID: "prod", Groups: []config.GroupDecl{
		{Key: "js_files", Matchers: []config.MatcherDecl{config.Glob(filepath.Join(f.dir, "lib"), "*.js")}},
	}})
	f.cfg.Builds = append(f.cfg.Builds, config.BuildDecl{ID: "prod", TargetDir: filepath.Join(f.dir, "dist")})
	w := f.watcher(Options{})
	ctx := context.Background()

	tr, err := w.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, tr.Results, 2)

	f.write(t, "lib/m.js", "m")
	tr, err = w.Tick(ctx)
	require.NoError(t, err)
	require.True(t, tr.Rebuilt)
	require.Equal(t, []string{filepath.Join(f.dir, "lib/m.js")}, tr.Changes.Added)

	require.Len(t, tr.Results, 2)
	require.Equal(t, "dev", tr.Results[0].BuildID)
	require.Equal(t, "prod", tr.Results[1].BuildID)
	require.NoError(t, tr.Results[0].Err)
	require.Equal(t, 1, tr.Results[0].Skipped, "unchanged build is still processed")
	require.Equal(t, 1, tr.Results[1].Copied)
	require.FileExists(t, filepath.Join(f.dir, "dist", filepath.Join(f.dir, "lib/m.js")))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	onPub  func()
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	if p.onPub != nil {
		p.onPub()
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := &recordingPublisher{onPub: cancel}
	store, err := journal.NewStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	w := f.watcher(Options{Interval: 5 * time.Millisecond, FSNotify: true}).
		WithPublisher(pub).
		WithJournal(store)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}

	require.Len(t, pub.events, 1)
	require.Equal(t, "watched", pub.events[0].Project)
	require.Equal(t, string(metrics.RebuildInitial), pub.events[0].Reason)

	entries, err := store.Recent(context.Background(), "dev", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, journal.TriggerInitial, entries[0].Trigger)
	require.Equal(t, pub.events[0].RunID, entries[0].RunID)
}
