package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packager/internal/pipeline"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := newMemoryStore(t)
	ctx := t.Context()
	run := NewRunID()

	require.NoError(t, s.Append(ctx, Entry{RunID: run, BuildID: "dev", Trigger: TriggerInitial, Copied: 3, Duration: 40 * time.Millisecond}))
	require.NoError(t, s.Append(ctx, Entry{RunID: run, BuildID: "prod", Trigger: TriggerInitial, Compressed: true}))
	require.NoError(t, s.Append(ctx, Entry{RunID: NewRunID(), BuildID: "dev", Trigger: TriggerFiles, Skipped: 3, Error: "boom"}))

	all, err := s.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, TriggerFiles, all[0].Trigger, "newest first")
	require.False(t, all[0].Succeeded())
	require.True(t, all[1].Compressed)

	dev, err := s.Recent(ctx, "dev", 1)
	require.NoError(t, err)
	require.Len(t, dev, 1)
	require.Equal(t, 3, dev[0].Skipped)

	older, err := s.Recent(ctx, "dev", 5)
	require.NoError(t, err)
	require.Len(t, older, 2)
	require.Equal(t, 3, older[1].Copied)
	require.Equal(t, 40*time.Millisecond, older[1].Duration)
	require.Equal(t, run, older[1].RunID)

	none, err := s.Recent(ctx, "dev", 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(t.Context(), Entry{RunID: "r1", BuildID: "dev", Trigger: TriggerOneShot}))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	entries, err := s.Recent(t.Context(), "dev", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "r1", entries[0].RunID)
}

func TestFromResult(t *testing.T) {
	e := FromResult("run", TriggerConfig, pipeline.Result{
		BuildID:  "dev",
		Copied:   2,
		Duration: time.Second,
		Err:      errors.New("disk full"),
	})
	require.Equal(t, "dev", e.BuildID)
	require.Equal(t, TriggerConfig, e.Trigger)
	require.Equal(t, 2, e.Copied)
	require.Equal(t, "disk full", e.Error)
	require.WithinDuration(t, time.Now().Add(-time.Second), e.StartedAt, time.Second)
}
