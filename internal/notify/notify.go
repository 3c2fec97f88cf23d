// Package notify announces watch-mode rebuilds to external listeners.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/packager/internal/config"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/pipeline"
)

// BuildSummary is the per-build part of an Event.
type BuildSummary struct {
	ID          string `json:"id"`
	Copied      int    `json:"copied"`
	Skipped     int    `json:"skipped"`
	Substituted int    `json:"substituted"`
	Compressed  bool   `json:"compressed"`
	Error       string `json:"error,omitempty"`
}

// Event describes one watch-loop rebuild.
type Event struct {
	Project   string         `json:"project"`
	RunID     string         `json:"run_id"`
	Reason    string         `json:"reason"`
	Changed   []string       `json:"changed,omitempty"`
	Builds    []BuildSummary `json:"builds"`
	Timestamp time.Time      `json:"timestamp"`
}

// Summarize converts pipeline results.
func Summarize(results []pipeline.Result) []BuildSummary {
	out := make([]BuildSummary, 0, len(results))
	for _, r := range results {
		s := BuildSummary{
			ID:          r.BuildID,
			Copied:      r.Copied,
			Skipped:     r.Skipped,
			Substituted: r.Substituted,
			Compressed:  r.Compressed,
		}
		if r.Err != nil {
			s.Error = r.Err.Error()
		}
		out = append(out, s)
	}
	return out
}

// Publisher delivers rebuild events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes JSON events on a core NATS subject.
type NATSPublisher struct {
	conn    conn
	subject string
}

// DefaultConnectTimeout bounds the initial NATS dial.
const DefaultConnectTimeout = 5 * time.Second

// NewNATSPublisher connects to url. An empty subject uses the default.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = config.DefaultNATSSubject
	}
	nc, err := nats.Connect(url,
		nats.Name("packager"),
		nats.Timeout(DefaultConnectTimeout),
		nats.RetryOnFailedConnect(false))
	if err != nil {
		return nil, ferrors.RuntimeError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS publisher connected", slog.String("url", url), slog.String("subject", subject))
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

// Publish sends ev and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return ferrors.InternalError("failed to marshal rebuild event").WithCause(err).Build()
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return ferrors.RuntimeError("failed to publish rebuild event").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return ferrors.RuntimeError("failed to flush rebuild event").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}
	slog.Debug("Published rebuild event", slog.String("subject", p.subject), slog.String("run_id", ev.RunID))
	return nil
}

// Close drops the connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
