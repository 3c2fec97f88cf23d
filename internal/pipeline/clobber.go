package pipeline

import (
	"os"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/logfields"
	"git.home.luguber.info/inful/packager/internal/project"
)

// Clobber removes the target directory of each build. A missing directory is
// not an error; an unknown build id is.
func (r *Runner) Clobber(proj *project.Project, buildIDs []string) error {
	for _, id := range buildIDs {
		build, err := proj.Build(id)
		if err != nil {
			return err
		}
		if _, err := os.Stat(build.TargetDir); os.IsNotExist(err) {
			r.logger.Debug("Nothing to clobber", logfields.Build(id), logfields.Target(build.TargetDir))
			continue
		}
		if err := os.RemoveAll(build.TargetDir); err != nil {
			return ferrors.FileSystemError("failed to remove target directory").
				WithCause(err).
				WithContext("build", id).
				WithContext("target", build.TargetDir).
				Build()
		}
		r.logger.Info("Clobbered build", logfields.Build(id), logfields.Target(build.TargetDir))
	}
	return nil
}
