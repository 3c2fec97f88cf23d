package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/pipeline"
)

type fakeConn struct {
	subject  string
	data     []byte
	flushErr error
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error { return f.flushErr }
func (f *fakeConn) Close()                                 { f.closed = true }

func TestNATSPublisher_PublishesJSON(t *testing.T) {
	fc := &fakeConn{}
	p := &NATSPublisher{conn: fc, subject: "packager.builds"}

	ev := Event{
		Project: "demo",
		RunID:   "r1",
		Reason:  "files",
		Changed: []string{"src/app.js"},
		Builds: Summarize([]pipeline.Result{
			{BuildID: "dev", Copied: 1},
			{BuildID: "prod", Err: errors.New("tool failed")},
		}),
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Equal(t, "packager.builds", fc.subject)

	var got map[string]any
	require.NoError(t, json.Unmarshal(fc.data, &got))
	require.Equal(t, "demo", got["project"])
	require.Equal(t, "files", got["reason"])
	require.NotEmpty(t, got["timestamp"])

	builds := got["builds"].([]any)
	require.Len(t, builds, 2)
	require.Equal(t, float64(1), builds[0].(map[string]any)["copied"])
	require.NotContains(t, builds[0].(map[string]any), "error")
	require.Equal(t, "tool failed", builds[1].(map[string]any)["error"])

	require.NoError(t, p.Close())
	require.True(t, fc.closed)
}

func TestNATSPublisher_FlushFailure(t *testing.T) {
	p := &NATSPublisher{conn: &fakeConn{flushErr: errors.New("timeout")}, subject: "s"}
	err := p.Publish(context.Background(), Event{})
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
}

func TestNewNATSPublisher_ConnectFailure(t *testing.T) {
	start := time.Now()
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "")
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	require.NoError(t, p.Publish(context.Background(), Event{}))
	require.NoError(t, p.Close())
}
