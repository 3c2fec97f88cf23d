package git

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/packager/internal/logfields"
)

// ShortHashLength is the number of hex digits ShortRevision returns.
const ShortHashLength = 7

// ReadRepoHead returns the full HEAD commit hash of the repository containing
// path, searching parent directories for the .git directory.
func ReadRepoHead(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// ShortRevision returns the abbreviated HEAD hash for path, or "" when path is
// not inside a repository or the repository has no commits yet.
// Other read failures are logged at warn level.
func ShortRevision(path string) string {
	return shortRevision(path, slog.Default())
}

func shortRevision(path string, logger *slog.Logger) string {
	hash, err := ReadRepoHead(path)
	switch {
	case err == nil:
		return hash[:ShortHashLength]
	case IsRepositoryMissing(err), IsEmptyRepository(err):
		return ""
	default:
		logger.Warn("Cannot read repository HEAD for revision", logfields.Path(path), logfields.Error(err))
		return ""
	}
}

// IsRepositoryMissing reports whether err means no repository was found.
func IsRepositoryMissing(err error) bool {
	return errors.Is(err, git.ErrRepositoryNotExists)
}

// IsEmptyRepository reports whether err means HEAD points at no commit.
func IsEmptyRepository(err error) bool {
	return errors.Is(err, plumbing.ErrReferenceNotFound)
}
