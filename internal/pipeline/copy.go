package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
)

// Destination maps a source path into targetDir, keeping its relative layout.
// Paths that would land outside targetDir are rejected.
func Destination(targetDir, src string) (string, error) {
	dst := filepath.Join(targetDir, src)
	rel, err := filepath.Rel(targetDir, dst)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ferrors.ValidationError("source path escapes target directory").
			WithContext("path", src).
			WithContext("target", targetDir).
			Build()
	}
	return dst, nil
}

// copyFile copies src to dst, creating parent directories and preserving
// permissions and modification time.
func copyFile(src, dst string) error {
	if err := copyContents(src, dst); err != nil {
		return ferrors.FileSystemError("failed to copy file").
			WithCause(err).
			WithContext("path", src).
			WithContext("target", dst).
			Build()
	}
	return nil
}

func copyContents(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
}
