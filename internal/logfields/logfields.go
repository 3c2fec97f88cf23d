package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuild      = "build"
	KeyPackage    = "package"
	KeyGroup      = "group"
	KeyPath       = "path"
	KeyTarget     = "target"
	KeyLevel      = "level"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Build(id string) slog.Attr       { return slog.String(KeyBuild, id) }
func Package(id string) slog.Attr     { return slog.String(KeyPackage, id) }
func Group(key string) slog.Attr      { return slog.String(KeyGroup, key) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Target(p string) slog.Attr       { return slog.String(KeyTarget, p) }
func Level(l int) slog.Attr           { return slog.Int(KeyLevel, l) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
