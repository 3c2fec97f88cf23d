// Package subst rewrites template markers inside copied subst files.
package subst

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/logfields"
	"git.home.luguber.info/inful/packager/internal/project"
)

// TimestampLayout renders the datetime marker.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Marker names.
const (
	MarkerCSS      = "css_files"
	MarkerJS       = "js_files"
	MarkerDatetime = "datetime"
	MarkerCache    = "cache_files"
	MarkerRevision = "revision"
)

var markers = map[string]*regexp.Regexp{}

func init() {
	for _, name := range []string{MarkerCSS, MarkerJS, MarkerDatetime, MarkerCache, MarkerRevision} {
		markers[name] = regexp.MustCompile(`\{%\s*` + name + `\s*%\}`)
	}
}

// Renderer expands markers against a merged file map.
type Renderer struct {
	now      func() time.Time
	revision func() string
	logger   *slog.Logger
}

// NewRenderer returns a Renderer using the wall clock and no revision.
func NewRenderer() *Renderer {
	return &Renderer{
		now:      time.Now,
		revision: func() string { return "" },
		logger:   slog.Default(),
	}
}

// WithClock replaces the time source of the datetime marker.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	return r
}

// WithRevision sets the source of the revision marker.
func (r *Renderer) WithRevision(fn func() string) *Renderer {
	r.revision = fn
	return r
}

// WithLogger sets the logger.
func (r *Renderer) WithLogger(logger *slog.Logger) *Renderer {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Render replaces every marker in content. A marker whose group is absent
// or empty becomes an empty block.
func (r *Renderer) Render(content string, files *project.FileMap) string {
	content = replace(content, MarkerCSS, cssBlock(files.Files(project.GroupCSS)))
	content = replace(content, MarkerJS, jsBlock(files.Files(project.GroupJS)))
	content = replace(content, MarkerDatetime, r.now().Format(TimestampLayout))
	content = replace(content, MarkerCache, cacheBlock(files.All()))
	content = replace(content, MarkerRevision, r.revision())
	return content
}

// ApplyFile rewrites path in place.
func (r *Renderer) ApplyFile(path string, files *project.FileMap) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ferrors.FileSystemError("failed to read subst file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	st, err := os.Stat(path)
	if err != nil {
		return ferrors.FileSystemError("failed to stat subst file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	out := r.Render(string(data), files)
	if err := os.WriteFile(path, []byte(out), st.Mode().Perm()); err != nil {
		return ferrors.FileSystemError("failed to write subst file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	r.logger.Info("Substituted markers", logfields.Path(path))
	return nil
}

func replace(content, name, block string) string {
	return markers[name].ReplaceAllLiteralString(content, block)
}

func cssBlock(files []string) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<!-- CSS Files -->\n")
	for _, f := range files {
		fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"%s\" type=\"text/css\"/>\n", filepath.ToSlash(f))
	}
	return b.String()
}

func jsBlock(files []string) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<!-- JS Files -->\n")
	for _, f := range files {
		fmt.Fprintf(&b, "<script type=\"text/javascript\" src=\"%s\"></script>\n", filepath.ToSlash(f))
	}
	return b.String()
}

func cacheBlock(files []string) string {
	var b strings.Builder
	for _, f := range files {
		b.WriteString(filepath.ToSlash(filepath.Clean(f)))
		b.WriteByte('\n')
	}
	return b.String()
}
