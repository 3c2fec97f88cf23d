package project

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/packager/internal/config"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/logfields"
)

// DefaultIgnoreDirs are directory names never descended into by glob matchers.
var DefaultIgnoreDirs = []string{".svn", ".sass-cache", ".git", ".hg"}

// Matcher is one configured source reference: a literal file or a glob rule.
type Matcher struct {
	kind    config.MatcherKind
	path    string
	root    string
	pattern string
}

// NewMatcher validates a declaration. Literal paths must exist now; they are
// not re-checked by later updates.
func NewMatcher(decl config.MatcherDecl) (Matcher, error) {
	switch decl.Kind {
	case config.MatcherLiteral:
		if _, err := os.Stat(decl.Path); err != nil {
			return Matcher{}, ferrors.ConfigError("source file not found").
				WithCause(fmt.Errorf("%w: %w", ErrMissingSourceFile, err)).
				WithContext("path", decl.Path).
				Build()
		}
		return Matcher{kind: config.MatcherLiteral, path: filepath.Clean(decl.Path)}, nil
	case config.MatcherGlob:
		if _, err := filepath.Match(decl.Pattern, ""); err != nil {
			return Matcher{}, ferrors.ConfigError("invalid glob pattern").
				WithCause(err).
				WithContext("root", decl.Root).
				WithContext("pattern", decl.Pattern).
				Build()
		}
		return Matcher{kind: config.MatcherGlob, root: decl.Root, pattern: decl.Pattern}, nil
	default:
		return Matcher{}, ferrors.InternalError(fmt.Sprintf("unknown matcher kind %d", decl.Kind)).Build()
	}
}

// Kind reports the matcher variant.
func (m Matcher) Kind() config.MatcherKind { return m.kind }

func (m Matcher) String() string {
	if m.kind == config.MatcherLiteral {
		return m.path
	}
	return filepath.Join(m.root, m.pattern)
}

// Resolve returns the current file paths for the matcher. ignoreDirs holds
// directory names, and absolute paths of directories, that globs never enter.
func (m Matcher) Resolve(ignoreDirs map[string]bool) []string {
	if m.kind == config.MatcherLiteral {
		return []string{m.path}
	}
	var out []string
	walkGlob(m.root, m.pattern, ignoreDirs, &out)
	return out
}

// walkGlob visits a directory top-down: matching files of a directory come
// before anything found in its subdirectories.
func walkGlob(dir, pattern string, ignoreDirs map[string]bool, out *[]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Skipping unreadable directory", logfields.Path(dir), logfields.Error(err))
		}
		return
	}

	var subdirs []string
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			if st, err := os.Stat(full); err == nil && st.IsDir() {
				continue
			}
		}
		if isDir {
			if !ignoreDirs[entry.Name()] && !ignoreDirs[absDir(full)] {
				subdirs = append(subdirs, full)
			}
			continue
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); ok {
			*out = append(*out, full)
		}
	}
	for _, sub := range subdirs {
		walkGlob(sub, pattern, ignoreDirs, out)
	}
}

// absDir returns the cleaned absolute form of dir, or "" when it cannot be
// resolved.
func absDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	return abs
}
