package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packager/internal/config"
)

func TestFileGroup_DedupKeepsFirstOccurrence(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.js", "b.js", "c.js")
	a, b, c := filepath.Join(dir, "a.js"), filepath.Join(dir, "b.js"), filepath.Join(dir, "c.js")

	g := NewFileGroup("js_files", noIgnore())
	require.NoError(t, g.Add(config.Literal(a), config.Literal(b), config.Literal(a), config.Literal(c)))

	require.Equal(t, []string{a, b, c}, g.Files())
}

func TestFileGroup_LiteralThenGlobOrder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "src/main.js", "src/util.js", "vendor.js")
	main := filepath.Join(dir, "src", "main.js")

	g := NewFileGroup("js_files", noIgnore())
	require.NoError(t, g.Add(
		config.Literal(filepath.Join(dir, "vendor.js")),
		config.Literal(main),
		config.Glob(filepath.Join(dir, "src"), "*.js"),
	))

	require.Equal(t, []string{
		filepath.Join(dir, "vendor.js"),
		main,
		filepath.Join(dir, "src", "util.js"),
	}, g.Files())
}

func TestFileGroup_UpdateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.js", "sub/b.js")

	g := NewFileGroup("js_files", noIgnore())
	require.NoError(t, g.Add(config.Glob(dir, "*.js"), config.Glob(dir, "*.js")))
	first := g.Files()

	g.Update()
	g.Update()
	require.Equal(t, first, g.Files())
	require.Len(t, first, 2)
}

func TestFileGroup_UpdatePicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.js")

	g := NewFileGroup("js_files", noIgnore())
	require.NoError(t, g.Add(config.Glob(dir, "*.js")))
	require.Len(t, g.Files(), 1)

	writeFiles(t, dir, "b.js")
	require.Len(t, g.Files(), 1, "files only change on Update")

	g.Update()
	require.Equal(t, []string{filepath.Join(dir, "a.js"), filepath.Join(dir, "b.js")}, g.Files())
}

func TestFileGroup_CloneIsIndependent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.js", "b.js")

	parent := NewFileGroup("js_files", noIgnore())
	require.NoError(t, parent.Add(config.Literal(filepath.Join(dir, "a.js"))))

	child := parent.Clone()
	require.NoError(t, child.Add(config.Literal(filepath.Join(dir, "b.js"))))

	require.Len(t, parent.Matchers(), 1)
	require.Len(t, parent.Files(), 1)
	require.Len(t, child.Files(), 2)
}
