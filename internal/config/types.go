// Package config loads and validates the packager project description.
//
// The source is a single JSON or YAML document. Decoding walks the YAML node
// tree so the declaration order of packages, configurations, file groups and
// builds survives into the typed model; that order drives merge and copy order.
package config

import "time"

// MaxCompressionLevel is the highest supported script compression level.
// Requested levels above it are clamped.
const MaxCompressionLevel = 3

// DefaultCompressedFilename is used when js_compression omits a filename.
const DefaultCompressedFilename = "compressed_app.js"

// DefaultMinifierTool is the conventional location of the level-3 minifier.
const DefaultMinifierTool = "~/node_modules/.bin/uglifyjs"

// DefaultToolTimeout bounds a level-3 minifier run.
const DefaultToolTimeout = 60 * time.Second

// DefaultNATSSubject is used when settings.nats.subject is empty.
const DefaultNATSSubject = "packager.builds"

// Config is the validated project description.
type Config struct {
	// Source is the path the configuration was loaded from (empty for in-memory input).
	Source   string
	Project  string
	Packages []PackageDecl
	Builds   []BuildDecl
	Settings Settings
}

// PackageDecl declares one package and its per-build configurations in declaration order.
type PackageDecl struct {
	ID      string // empty when the package id was omitted
	Configs []ConfigDecl
}

// ConfigDecl declares the file groups one package contributes to one build.
type ConfigDecl struct {
	ID     string
	Ref    string
	Groups []GroupDecl
}

// GroupDecl is a named, ordered list of matchers.
type GroupDecl struct {
	Key      string
	Matchers []MatcherDecl
}

// MatcherKind tags the MatcherDecl variant.
type MatcherKind int

const (
	MatcherLiteral MatcherKind = iota
	MatcherGlob
)

func (k MatcherKind) String() string {
	switch k {
	case MatcherLiteral:
		return "literal"
	case MatcherGlob:
		return "glob"
	default:
		return "unknown"
	}
}

// MatcherDecl is either Literal(Path) or Glob(Root, Pattern).
type MatcherDecl struct {
	Kind    MatcherKind
	Path    string
	Root    string
	Pattern string
}

// Literal declares a single existing file.
func Literal(path string) MatcherDecl {
	return MatcherDecl{Kind: MatcherLiteral, Path: path}
}

// Glob declares a recursive root + shell pattern search.
func Glob(root, pattern string) MatcherDecl {
	return MatcherDecl{Kind: MatcherGlob, Root: root, Pattern: pattern}
}

// FallbackPolicy decides what a level-3 compression does when its tool is missing.
type FallbackPolicy string

const (
	// FallbackMinify drops to the in-process minifier (level 2).
	FallbackMinify FallbackPolicy = "minify"
	// FallbackPassthrough writes the plain concatenation (level 1).
	FallbackPassthrough FallbackPolicy = "passthrough"
	// FallbackFail aborts the build pass.
	FallbackFail FallbackPolicy = "fail"
)

// NormalizeFallback returns the canonical policy or "" when unknown.
func NormalizeFallback(raw string) FallbackPolicy {
	switch FallbackPolicy(raw) {
	case "":
		return FallbackMinify
	case FallbackMinify, FallbackPassthrough, FallbackFail:
		return FallbackPolicy(raw)
	default:
		return ""
	}
}

// CompressionDecl configures script compression for a build.
type CompressionDecl struct {
	Level    int
	Filename string
	Tool     string
	Args     []string
	Timeout  time.Duration
	Fallback FallbackPolicy
}

// BuildDecl declares one output target.
type BuildDecl struct {
	ID          string
	TargetDir   string
	Hidden      bool
	Compression CompressionDecl
}

// Settings holds optional runtime integrations.
type Settings struct {
	IgnoreDirs    []string     `yaml:"ignore_dirs"`
	Journal       string       `yaml:"journal"`
	MetricsListen string       `yaml:"metrics_listen"`
	NATS          NATSSettings `yaml:"nats"`
}

// NATSSettings configures rebuild notifications.
type NATSSettings struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}
