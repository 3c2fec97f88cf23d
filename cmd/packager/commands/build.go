package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/packager/internal/config"
	"git.home.luguber.info/inful/packager/internal/git"
	"git.home.luguber.info/inful/packager/internal/journal"
	"git.home.luguber.info/inful/packager/internal/logfields"
	"git.home.luguber.info/inful/packager/internal/metrics"
	"git.home.luguber.info/inful/packager/internal/pipeline"
	"git.home.luguber.info/inful/packager/internal/project"
	"git.home.luguber.info/inful/packager/internal/subst"
)

// load reads the configuration and resolves the selected builds.
func (c *CLI) load() (*config.Config, *project.Project, []string, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, nil, nil, err
	}
	proj, err := project.New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	ids, err := proj.SelectBuilds(c.selector())
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, proj, ids, nil
}

func (c *CLI) newRunner(g *Global, rec metrics.Recorder) *pipeline.Runner {
	configDir := filepath.Dir(c.Config)
	renderer := subst.NewRenderer().
		WithLogger(g.Logger).
		WithRevision(func() string { return git.ShortRevision(configDir) })
	return pipeline.NewRunner().
		WithRenderer(renderer).
		WithLogger(g.Logger).
		WithRecorder(rec)
}

// journalPath prefers the flag over the configuration setting.
func (c *CLI) journalPath(cfg *config.Config) string {
	if c.Journal != "" {
		return c.Journal
	}
	if cfg != nil {
		return cfg.Settings.Journal
	}
	return ""
}

func (c *CLI) runOnce(ctx context.Context, g *Global) error {
	cfg, proj, ids, err := c.load()
	if err != nil {
		return err
	}

	var store *journal.Store
	if path := c.journalPath(cfg); path != "" {
		if store, err = journal.NewStore(path); err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	results, runErr := c.newRunner(g, metrics.NoopRecorder{}).Run(ctx, proj, ids)
	if store != nil {
		runID := journal.NewRunID()
		for _, res := range results {
			if err := store.Append(ctx, journal.FromResult(runID, journal.TriggerOneShot, res)); err != nil {
				g.Logger.Warn("Failed to record build pass", logfields.Build(res.BuildID), logfields.Error(err))
			}
		}
	}
	if runErr != nil {
		return runErr
	}
	_, _ = fmt.Fprintln(g.Stdout, "Done")
	return nil
}

func (c *CLI) runClobber(g *Global) error {
	_, proj, ids, err := c.load()
	if err != nil {
		return err
	}
	return c.newRunner(g, metrics.NoopRecorder{}).Clobber(proj, ids)
}
