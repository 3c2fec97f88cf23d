package compress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packager/internal/config"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
)

func writeScripts(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.js")
	b := filepath.Join(dir, "b.js")
	require.NoError(t, os.WriteFile(a, []byte("function add(first, second) {\n    return first + second;\n}"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("var total = add(1, 2);"), 0o644))
	return dir, []string{a, b}
}

func writeTool(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are unix only")
	}
	path := filepath.Join(dir, "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCompress_LevelZeroIsNoop(t *testing.T) {
	_, files := writeScripts(t)
	out, err := New().Compress(context.Background(), 0, files, config.CompressionDecl{})
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestCompress_LevelOneConcatenates(t *testing.T) {
	_, files := writeScripts(t)
	out, err := New().Compress(context.Background(), 1, files, config.CompressionDecl{})
	require.NoError(t, err)
	require.Equal(t,
		"function add(first, second) {\n    return first + second;\n}\nvar total = add(1, 2);",
		string(out))
}

func TestCompress_LevelTwoMinifies(t *testing.T) {
	_, files := writeScripts(t)
	plain, err := Concat(files)
	require.NoError(t, err)

	out, err := New().Compress(context.Background(), 2, files, config.CompressionDecl{})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Less(t, len(out), len(plain))
	require.NotContains(t, string(out), "    return")
}

func TestCompress_MinifierErrorIsBuildError(t *testing.T) {
	_, files := writeScripts(t)
	c := New().WithMinifier(func([]byte) ([]byte, error) { return nil, errors.New("boom") })
	_, err := c.Compress(context.Background(), 2, files, config.CompressionDecl{})
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryBuild))
}

func TestCompress_LevelAboveMaxIsClamped(t *testing.T) {
	dir, files := writeScripts(t)
	tool := writeTool(t, dir, "exec tr 'a-z' 'A-Z'")

	out, err := New().Compress(context.Background(), 7, files, config.CompressionDecl{Tool: tool})
	require.NoError(t, err)
	require.Contains(t, string(out), "VAR TOTAL = ADD(1, 2);")
}

func TestCompress_LevelThreePassesArgs(t *testing.T) {
	dir, files := writeScripts(t)
	tool := writeTool(t, dir, `printf '%s|' "$@"; cat >/dev/null`)

	out, err := New().Compress(context.Background(), 3, files, config.CompressionDecl{
		Tool: tool,
		Args: []string{"--compress", "--mangle"},
	})
	require.NoError(t, err)
	require.Equal(t, "--compress|--mangle|", string(out))
}

func TestCompress_MissingToolFallbacks(t *testing.T) {
	_, files := writeScripts(t)
	missing := filepath.Join(t.TempDir(), "no-such-tool")
	plain, err := Concat(files)
	require.NoError(t, err)
	stub := func([]byte) ([]byte, error) { return []byte("minified"), nil }

	t.Run("minify", func(t *testing.T) {
		out, err := New().WithMinifier(stub).Compress(context.Background(), 3, files,
			config.CompressionDecl{Tool: missing})
		require.NoError(t, err)
		require.Equal(t, "minified", string(out))
	})

	t.Run("passthrough", func(t *testing.T) {
		out, err := New().WithMinifier(stub).Compress(context.Background(), 3, files,
			config.CompressionDecl{Tool: missing, Fallback: config.FallbackPassthrough})
		require.NoError(t, err)
		require.Equal(t, plain, out)
	})

	t.Run("fail", func(t *testing.T) {
		_, err := New().WithMinifier(stub).Compress(context.Background(), 3, files,
			config.CompressionDecl{Tool: missing, Fallback: config.FallbackFail})
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrToolUnavailable))
		require.True(t, ferrors.HasCategory(err, ferrors.CategoryTool))
	})
}

func TestCompress_ToolFailureDoesNotFallBack(t *testing.T) {
	dir, files := writeScripts(t)
	tool := writeTool(t, dir, "echo 'parse error' >&2; exit 3")

	_, err := New().Compress(context.Background(), 3, files, config.CompressionDecl{Tool: tool})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrToolUnavailable))

	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	msg, _ := classified.Context().GetString("stderr")
	require.Equal(t, "parse error", msg)
}

func TestCompress_ToolTimeout(t *testing.T) {
	dir, files := writeScripts(t)
	tool := writeTool(t, dir, "exec sleep 10")

	start := time.Now()
	_, err := New().Compress(context.Background(), 3, files, config.CompressionDecl{
		Tool:    tool,
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestConcat_MissingFile(t *testing.T) {
	_, err := Concat([]string{filepath.Join(t.TempDir(), "gone.js")})
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "node_modules/.bin/uglifyjs"), expandHome("~/node_modules/.bin/uglifyjs"))
	require.Equal(t, "/usr/bin/uglifyjs", expandHome("/usr/bin/uglifyjs"))
}
