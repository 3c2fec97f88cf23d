package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFiles creates each relative path under root with its own name as content.
func writeFiles(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(rel), 0o644))
	}
}

func noIgnore() map[string]bool { return map[string]bool{} }

func defaultIgnore() map[string]bool {
	m := make(map[string]bool)
	for _, d := range DefaultIgnoreDirs {
		m[d] = true
	}
	return m
}
