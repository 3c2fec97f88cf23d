package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/packager/internal/config"
	"git.home.luguber.info/inful/packager/internal/journal"
	"git.home.luguber.info/inful/packager/internal/logfields"
	"git.home.luguber.info/inful/packager/internal/metrics"
	"git.home.luguber.info/inful/packager/internal/notify"
	"git.home.luguber.info/inful/packager/internal/watch"
)

func (c *CLI) runMonitor(ctx context.Context, g *Global) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Integrations are read once; reloads only replace the project graph.
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if addr := firstNonEmpty(c.MetricsAddr, cfg.Settings.MetricsListen); addr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		if _, err := metrics.Serve(ctx, addr, reg); err != nil {
			return err
		}
	}

	var publisher notify.Publisher = notify.Noop{}
	if url := firstNonEmpty(c.NATSURL, cfg.Settings.NATS.URL); url != "" {
		p, err := notify.NewNATSPublisher(url, cfg.Settings.NATS.Subject)
		if err != nil {
			return err
		}
		publisher = p
	}
	defer func() { _ = publisher.Close() }()

	w := watch.New(watch.Options{
		ConfigPath: c.Config,
		Selector:   c.selector(),
		Interval:   time.Duration(c.Interval) * time.Second,
		Debounce:   c.Debounce,
		FSNotify:   c.NotifyFS,
	}, watch.LoadProject, c.newRunner(g, recorder)).
		WithLogger(g.Logger).
		WithRecorder(recorder).
		WithPublisher(publisher)

	if path := c.journalPath(cfg); path != "" {
		store, err := journal.NewStore(path)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		w = w.WithJournal(store)
	}

	if err := w.Run(ctx); err != nil {
		g.Logger.Error("Monitor stopped", logfields.Error(err))
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
