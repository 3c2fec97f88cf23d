package pipeline

import (
	"os"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
)

// NeedsCopy reports whether dst is missing or differs from src in byte size
// or modification time truncated to whole seconds.
func NeedsCopy(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, ferrors.FileSystemError("failed to stat source").
			WithCause(err).
			WithContext("path", src).
			Build()
	}
	dstInfo, err := os.Stat(dst)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, ferrors.FileSystemError("failed to stat destination").
			WithCause(err).
			WithContext("target", dst).
			Build()
	}
	if srcInfo.ModTime().Unix() != dstInfo.ModTime().Unix() {
		return true, nil
	}
	return srcInfo.Size() != dstInfo.Size(), nil
}

// ArtifactStale reports whether artifact is missing or any script was
// modified in a later second than the artifact.
func ArtifactStale(scripts []string, artifact string) (bool, error) {
	artInfo, err := os.Stat(artifact)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, ferrors.FileSystemError("failed to stat compressed output").
			WithCause(err).
			WithContext("target", artifact).
			Build()
	}
	built := artInfo.ModTime().Unix()
	for _, s := range scripts {
		info, err := os.Stat(s)
		if err != nil {
			return false, ferrors.FileSystemError("failed to stat script").
				WithCause(err).
				WithContext("path", s).
				Build()
		}
		if info.ModTime().Unix() > built {
			return true, nil
		}
	}
	return false, nil
}
