package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"git.home.luguber.info/inful/packager/internal/config"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/journal"
	"git.home.luguber.info/inful/packager/internal/project"
)

func (c *CLI) runHistory(ctx context.Context, g *Global) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	path := c.journalPath(cfg)
	if path == "" {
		return ferrors.ValidationError("--history needs a journal (--journal or settings.journal)").Build()
	}
	store, err := journal.NewStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	buildID := c.selector()
	if buildID == project.AllBuilds {
		buildID = ""
	}
	entries, err := store.Recent(ctx, buildID, c.History)
	if err != nil {
		return err
	}

	const row = "%-19s  %-12s  %-8s  %6s  %7s  %5s  %10s  %8s  %s\n"
	_, _ = fmt.Fprintf(g.Stdout, row, "STARTED", "BUILD", "TRIGGER", "COPIED", "SKIPPED", "SUBST", "COMPRESSED", "DURATION", "STATUS")
	for _, e := range entries {
		status := "ok"
		if !e.Succeeded() {
			status = e.Error
		}
		_, _ = fmt.Fprintf(g.Stdout, row,
			e.StartedAt.Format(time.DateTime), e.BuildID, e.Trigger,
			strconv.Itoa(e.Copied), strconv.Itoa(e.Skipped), strconv.Itoa(e.Substituted),
			strconv.FormatBool(e.Compressed), e.Duration.Round(time.Millisecond), status)
	}
	return nil
}
