package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/project"
)

// Global carries process-level dependencies into Run.
type Global struct {
	Context context.Context
	Logger  *slog.Logger
	Stdout  io.Writer
}

// CLI is the packager command line.
type CLI struct {
	Config string `arg:"" name:"config" help:"Project configuration file (JSON or YAML)."`

	Build    string `short:"b" name:"build" default:"all" help:"Build to process; 'all' selects every non-hidden build."`
	Clobber  bool   `help:"Remove the target directory of each selected build and exit."`
	Monitor  bool   `short:"m" help:"Keep running and rebuild when sources or the configuration change."`
	Interval int    `default:"1" help:"Seconds between change checks in --monitor mode."`

	Debounce    time.Duration `help:"Wait until sources are unchanged for this long before rebuilding (monitor mode)."`
	NotifyFS    bool          `name:"notify-fs" help:"Wake the monitor loop early on filesystem events."`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address in monitor mode (overrides settings.metrics_listen)."`
	NATSURL     string        `name:"nats-url" help:"Publish rebuild events to this NATS server (overrides settings.nats.url)."`
	Journal     string        `help:"SQLite file recording every build pass (overrides settings.journal)."`
	History     int           `help:"Print the last N recorded passes from the journal and exit."`

	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// Validate rejects flag combinations kong cannot express.
func (c *CLI) Validate() error {
	if c.Interval <= 0 {
		return ferrors.ValidationError("--interval must be a positive number of seconds").
			WithContext("interval", c.Interval).
			Build()
	}
	if c.History < 0 {
		return ferrors.ValidationError("--history must not be negative").Build()
	}
	if c.Debounce < 0 {
		return ferrors.ValidationError("--debounce must not be negative").Build()
	}
	return nil
}

// Run dispatches to the selected mode: history, clobber, monitor or a
// single build pass.
func (c *CLI) Run(g *Global) error {
	ctx := g.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if g.Logger == nil {
		g.Logger = slog.Default()
	}
	if g.Stdout == nil {
		g.Stdout = os.Stdout
	}

	switch {
	case c.History > 0:
		return c.runHistory(ctx, g)
	case c.Clobber:
		return c.runClobber(g)
	case c.Monitor:
		return c.runMonitor(ctx, g)
	default:
		return c.runOnce(ctx, g)
	}
}

func (c *CLI) selector() string {
	if c.Build == "" {
		return project.AllBuilds
	}
	return c.Build
}
