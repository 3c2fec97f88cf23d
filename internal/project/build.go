package project

import (
	"path/filepath"

	"git.home.luguber.info/inful/packager/internal/config"
)

// Build holds the static settings of one output target.
type Build struct {
	ID          string
	TargetDir   string
	Hidden      bool
	Compression config.CompressionDecl
}

func newBuild(decl config.BuildDecl) *Build {
	c := decl.Compression
	c.Level = min(max(c.Level, 0), config.MaxCompressionLevel)
	if c.Filename == "" {
		c.Filename = config.DefaultCompressedFilename
	}
	return &Build{ID: decl.ID, TargetDir: decl.TargetDir, Hidden: decl.Hidden, Compression: c}
}

// Compresses reports whether scripts are combined into one artifact.
func (b *Build) Compresses() bool { return b.Compression.Level > 0 }

// CompressedOutput is where the combined script artifact is written.
func (b *Build) CompressedOutput() string {
	return filepath.Join(b.TargetDir, b.Compression.Filename)
}
