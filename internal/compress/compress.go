// Package compress combines a build's scripts into a single artifact.
//
// Level 0 disables compression. Level 1 concatenates the sources as-is,
// level 2 runs the in-process minifier and level 3 pipes the concatenation
// through an external tool.
package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"

	"git.home.luguber.info/inful/packager/internal/config"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/logfields"
)

// ErrToolUnavailable is returned when the level-3 tool cannot be started.
var ErrToolUnavailable = errors.New("compression tool unavailable")

const scriptMediaType = "application/javascript"

// Minifier turns script source into a smaller equivalent.
type Minifier func(src []byte) ([]byte, error)

// Compressor produces the combined script artifact.
type Compressor struct {
	minify Minifier
	logger *slog.Logger
}

// New returns a Compressor backed by the tdewolff JavaScript minifier.
func New() *Compressor {
	m := minify.New()
	m.AddFunc(scriptMediaType, js.Minify)
	return &Compressor{
		minify: func(src []byte) ([]byte, error) { return m.Bytes(scriptMediaType, src) },
		logger: slog.Default(),
	}
}

// WithMinifier replaces the level-2 minifier.
func (c *Compressor) WithMinifier(fn Minifier) *Compressor {
	c.minify = fn
	return c
}

// WithLogger sets the logger.
func (c *Compressor) WithLogger(logger *slog.Logger) *Compressor {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Concat joins files in order with a newline between consecutive files.
func Concat(files []string) ([]byte, error) {
	var buf bytes.Buffer
	for i, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, ferrors.FileSystemError("failed to read script").
				WithCause(err).
				WithContext("path", f).
				Build()
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// Compress returns the artifact for files at the given level. Levels outside
// 1..3 are clamped; level 0 yields nil.
func (c *Compressor) Compress(ctx context.Context, level int, files []string, decl config.CompressionDecl) ([]byte, error) {
	level = min(max(level, 0), config.MaxCompressionLevel)
	if level == 0 {
		return nil, nil
	}

	src, err := Concat(files)
	if err != nil {
		return nil, err
	}

	switch level {
	case 1:
		return src, nil
	case 2:
		return c.minifySource(src)
	}

	out, err := c.runTool(ctx, src, decl)
	if err == nil || !errors.Is(err, ErrToolUnavailable) {
		return out, err
	}

	switch config.NormalizeFallback(string(decl.Fallback)) {
	case config.FallbackPassthrough:
		c.logger.Warn("Compression tool unavailable, writing plain concatenation",
			logfields.Level(level), logfields.Error(err))
		return src, nil
	case config.FallbackMinify:
		c.logger.Warn("Compression tool unavailable, falling back to built-in minifier",
			logfields.Level(level), logfields.Error(err))
		return c.minifySource(src)
	default:
		return nil, err
	}
}

func (c *Compressor) minifySource(src []byte) ([]byte, error) {
	out, err := c.minify(src)
	if err != nil {
		return nil, ferrors.BuildError("script minification failed").WithCause(err).Build()
	}
	return out, nil
}

func (c *Compressor) runTool(ctx context.Context, src []byte, decl config.CompressionDecl) ([]byte, error) {
	tool := decl.Tool
	if tool == "" {
		tool = config.DefaultMinifierTool
	}
	tool = expandHome(tool)

	path, err := exec.LookPath(tool)
	if err != nil {
		return nil, ferrors.ToolError("compression tool not found").
			WithCause(fmt.Errorf("%w: %w", ErrToolUnavailable, err)).
			WithContext("tool", tool).
			Build()
	}

	timeout := decl.Timeout
	if timeout <= 0 {
		timeout = config.DefaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, decl.Args...)
	cmd.Stdin = bytes.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		b := ferrors.ToolError("compression tool failed").
			WithCause(err).
			WithContext("tool", path)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			b = b.WithContext("stderr", msg)
		}
		if ctx.Err() != nil {
			b = b.WithContext("timeout", timeout.String())
		}
		return nil, b.Build()
	}
	c.logger.Debug("Compression tool finished",
		slog.String("tool", path),
		logfields.Duration(time.Since(start)))
	return stdout.Bytes(), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
