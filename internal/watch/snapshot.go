package watch

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/packager/internal/project"
)

// Snapshot maps every watched path to its modification time.
type Snapshot map[string]time.Time

// TakeSnapshot records every resolved file of the given builds and every
// directory containing one. Paths that no longer exist are skipped.
func TakeSnapshot(proj *project.Project, buildIDs []string) Snapshot {
	snap := make(Snapshot)
	for _, id := range buildIDs {
		for _, f := range proj.Merged(id).All() {
			dir := filepath.Dir(f)
			if _, seen := snap[dir]; !seen {
				if info, err := os.Stat(dir); err == nil {
					snap[dir] = info.ModTime()
				}
			}
			if _, seen := snap[f]; !seen {
				if info, err := os.Stat(f); err == nil {
					snap[f] = info.ModTime()
				}
			}
		}
	}
	return snap
}

// Dirs returns the directories in the snapshot.
func (s Snapshot) Dirs() []string {
	var dirs []string
	for p := range s {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs = append(dirs, p)
		}
	}
	slices.Sort(dirs)
	return dirs
}

// refreshAncestors re-reads the modification time of every directory in the
// snapshot that contains one of targets. Writing build output changes those
// directories without any source change.
func (s Snapshot) refreshAncestors(targets []string) {
	for p := range s {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		for _, t := range targets {
			rel, err := filepath.Rel(abs, t)
			if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				continue
			}
			if info, err := os.Stat(p); err == nil {
				s[p] = info.ModTime()
			}
			break
		}
	}
}

// Changes lists the differences between two snapshots, each sorted.
type Changes struct {
	Added    []string
	Removed  []string
	Modified []string
}

// Empty reports whether the snapshots were identical.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Modified) == 0
}

// Paths returns every differing path.
func (c Changes) Paths() []string {
	out := make([]string, 0, len(c.Added)+len(c.Removed)+len(c.Modified))
	out = append(out, c.Added...)
	out = append(out, c.Removed...)
	out = append(out, c.Modified...)
	return out
}

// Diff compares prev against next.
func Diff(prev, next Snapshot) Changes {
	var c Changes
	for p, mtime := range next {
		old, ok := prev[p]
		switch {
		case !ok:
			c.Added = append(c.Added, p)
		case !old.Equal(mtime):
			c.Modified = append(c.Modified, p)
		}
	}
	for p := range prev {
		if _, ok := next[p]; !ok {
			c.Removed = append(c.Removed, p)
		}
	}
	slices.Sort(c.Added)
	slices.Sort(c.Removed)
	slices.Sort(c.Modified)
	return c
}
