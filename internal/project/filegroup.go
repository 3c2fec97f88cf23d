package project

import (
	"slices"

	"git.home.luguber.info/inful/packager/internal/config"
)

// FileGroup is a named, ordered, de-duplicated list of files produced by its matchers.
type FileGroup struct {
	key        string
	matchers   []Matcher
	files      []string
	ignoreDirs map[string]bool
}

// NewFileGroup creates an empty group.
func NewFileGroup(key string, ignoreDirs map[string]bool) *FileGroup {
	return &FileGroup{key: key, ignoreDirs: ignoreDirs}
}

// Key returns the group identifier.
func (g *FileGroup) Key() string { return g.key }

// Matchers returns the configured matchers in declaration order.
func (g *FileGroup) Matchers() []Matcher { return slices.Clone(g.matchers) }

// Files returns the resolved file list as of the last Update.
func (g *FileGroup) Files() []string { return slices.Clone(g.files) }

// Add appends matchers after the existing ones and refreshes the file list.
func (g *FileGroup) Add(decls ...config.MatcherDecl) error {
	for _, decl := range decls {
		m, err := NewMatcher(decl)
		if err != nil {
			return err
		}
		g.matchers = append(g.matchers, m)
	}
	g.Update()
	return nil
}

// Update recomputes the file list from the matchers. Repeated calls against an
// unchanged filesystem yield the same list.
func (g *FileGroup) Update() {
	seen := make(map[string]bool)
	files := make([]string, 0, len(g.files))
	for _, m := range g.matchers {
		for _, f := range m.Resolve(g.ignoreDirs) {
			if seen[f] {
				continue
			}
			seen[f] = true
			files = append(files, f)
		}
	}
	g.files = files
}

// Clone returns an independent copy; changes to either side never propagate.
func (g *FileGroup) Clone() *FileGroup {
	return &FileGroup{
		key:        g.key,
		matchers:   slices.Clone(g.matchers),
		files:      slices.Clone(g.files),
		ignoreDirs: g.ignoreDirs,
	}
}
