package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
)

// decoder walks the node tree and records the first schema violation.
type decoder struct {
	source string
	err    error
}

type rawMatcher struct {
	Root    *string `yaml:"root"`
	Pattern *string `yaml:"pattern"`
}

type rawCompression struct {
	Level    int           `yaml:"level"`
	Filename string        `yaml:"filename"`
	Tool     string        `yaml:"tool"`
	Args     []string      `yaml:"args"`
	Timeout  time.Duration `yaml:"timeout"`
	Fallback string        `yaml:"fallback"`
}

type rawBuild struct {
	TargetDir     string          `yaml:"target_dir"`
	Hidden        bool            `yaml:"hidden"`
	JSCompression *rawCompression `yaml:"js_compression"`
}

func (d *decoder) fail(node *yaml.Node, path, format string, args ...any) {
	if d.err != nil {
		return
	}
	line := 0
	if node != nil {
		line = node.Line
	}
	d.err = ferrors.ConfigError(fmt.Sprintf(format, args...)).
		WithCause(ErrConfigParse).
		WithContext("file", d.source).
		WithContext("path", path).
		WithContext("line", line).
		Build()
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// eachPair visits mapping entries in document order, rejecting duplicate keys.
func (d *decoder) eachPair(m *yaml.Node, path string, fn func(key string, val *yaml.Node)) {
	seen := make(map[string]bool, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content) && d.err == nil; i += 2 {
		k, v := resolve(m.Content[i]), resolve(m.Content[i+1])
		if k.Kind != yaml.ScalarNode {
			d.fail(k, path, "mapping keys must be scalars")
			return
		}
		if seen[k.Value] {
			d.fail(k, join(path, k.Value), "duplicate key %q", k.Value)
			return
		}
		seen[k.Value] = true
		fn(k.Value, v)
	}
}

func (d *decoder) scalar(n *yaml.Node, path string) string {
	if isNull(n) {
		return ""
	}
	if n.Kind != yaml.ScalarNode {
		d.fail(n, path, "expected a scalar value")
		return ""
	}
	return n.Value
}

func (d *decoder) document(doc *yaml.Node) *Config {
	cfg := &Config{}
	root := resolve(doc)
	if root != nil && root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			root = nil
		} else {
			root = resolve(root.Content[0])
		}
	}
	if root == nil || root.Kind == 0 {
		d.fail(doc, "", "configuration is empty")
		return cfg
	}
	if root.Kind != yaml.MappingNode {
		d.fail(root, "", "top level must be a mapping")
		return cfg
	}

	d.eachPair(root, "", func(key string, val *yaml.Node) {
		switch key {
		case "project":
			cfg.Project = d.scalar(val, key)
		case "packages":
			cfg.Packages = d.packages(val, key)
		case "builds":
			cfg.Builds = d.builds(val, key)
		case "settings":
			cfg.Settings = d.settings(val, key)
		default:
			slog.Debug("Ignoring unknown top-level configuration key", "key", key)
		}
	})
	return cfg
}

func (d *decoder) packages(n *yaml.Node, path string) []PackageDecl {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		d.fail(n, path, "packages must be a list")
		return nil
	}
	pkgs := make([]PackageDecl, 0, len(n.Content))
	for i, item := range n.Content {
		item = resolve(item)
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if item.Kind != yaml.MappingNode {
			d.fail(item, itemPath, "package must be a mapping")
			return nil
		}
		var pkg PackageDecl
		d.eachPair(item, itemPath, func(key string, val *yaml.Node) {
			if key == "id" {
				pkg.ID = d.scalar(val, join(itemPath, key))
				return
			}
			pkg.Configs = append(pkg.Configs, d.configDecl(key, val, join(itemPath, key)))
		})
		pkgs = append(pkgs, pkg)
	}
	return pkgs
}

func (d *decoder) configDecl(id string, n *yaml.Node, path string) ConfigDecl {
	cfg := ConfigDecl{ID: id}
	if isNull(n) {
		return cfg
	}
	if n.Kind != yaml.MappingNode {
		d.fail(n, path, "configuration must be a mapping of file groups")
		return cfg
	}
	d.eachPair(n, path, func(key string, val *yaml.Node) {
		if key == "ref" {
			cfg.Ref = d.scalar(val, join(path, key))
			return
		}
		cfg.Groups = append(cfg.Groups, GroupDecl{Key: key, Matchers: d.matchers(val, join(path, key))})
	})
	return cfg
}

func (d *decoder) matchers(n *yaml.Node, path string) []MatcherDecl {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		d.fail(n, path, "file group must be a list")
		return nil
	}
	out := make([]MatcherDecl, 0, len(n.Content))
	for i, item := range n.Content {
		item = resolve(item)
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		switch item.Kind {
		case yaml.ScalarNode:
			if strings.TrimSpace(item.Value) == "" || isNull(item) {
				d.fail(item, itemPath, "file path must not be empty")
				return nil
			}
			out = append(out, Literal(item.Value))
		case yaml.MappingNode:
			var raw rawMatcher
			if err := item.Decode(&raw); err != nil {
				d.fail(item, itemPath, "invalid matcher: %v", err)
				return nil
			}
			if raw.Root == nil || raw.Pattern == nil {
				d.fail(item, itemPath, "matcher needs both root and pattern")
				return nil
			}
			if *raw.Pattern == "" {
				d.fail(item, itemPath, "matcher pattern must not be empty")
				return nil
			}
			root := *raw.Root
			if root == "" {
				root = "."
			}
			out = append(out, Glob(root, *raw.Pattern))
		default:
			d.fail(item, itemPath, "matcher must be a file path or a {root, pattern} mapping")
			return nil
		}
	}
	return out
}

func (d *decoder) builds(n *yaml.Node, path string) []BuildDecl {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		d.fail(n, path, "builds must be a mapping keyed by build id")
		return nil
	}
	var out []BuildDecl
	d.eachPair(n, path, func(id string, val *yaml.Node) {
		bPath := join(path, id)
		if id == "" {
			d.fail(val, bPath, "build id must not be empty")
			return
		}
		if val.Kind != yaml.MappingNode {
			d.fail(val, bPath, "build must be a mapping")
			return
		}
		var raw rawBuild
		if err := val.Decode(&raw); err != nil {
			d.fail(val, bPath, "invalid build: %v", err)
			return
		}
		if strings.TrimSpace(raw.TargetDir) == "" {
			d.fail(val, join(bPath, "target_dir"), "target_dir is required")
			return
		}
		build := BuildDecl{ID: id, TargetDir: raw.TargetDir, Hidden: raw.Hidden}
		build.Compression = d.compression(raw.JSCompression, val, join(bPath, "js_compression"))
		out = append(out, build)
	})
	return out
}

func (d *decoder) compression(raw *rawCompression, n *yaml.Node, path string) CompressionDecl {
	c := CompressionDecl{
		Filename: DefaultCompressedFilename,
		Tool:     DefaultMinifierTool,
		Timeout:  DefaultToolTimeout,
		Fallback: FallbackMinify,
	}
	if raw == nil {
		return c
	}
	if raw.Level < 0 {
		d.fail(n, join(path, "level"), "compression level must be >= 0")
		return c
	}
	c.Level = min(raw.Level, MaxCompressionLevel)
	if raw.Filename != "" {
		c.Filename = raw.Filename
	}
	if raw.Tool != "" {
		c.Tool = raw.Tool
	}
	c.Args = raw.Args
	if raw.Timeout > 0 {
		c.Timeout = raw.Timeout
	}
	if c.Fallback = NormalizeFallback(raw.Fallback); c.Fallback == "" {
		d.fail(n, join(path, "fallback"), "unknown fallback %q (want minify, passthrough or fail)", raw.Fallback)
	}
	return c
}

func (d *decoder) settings(n *yaml.Node, path string) Settings {
	var s Settings
	if isNull(n) {
		return s
	}
	if err := n.Decode(&s); err != nil {
		d.fail(n, path, "invalid settings: %v", err)
		return s
	}
	if s.NATS.URL != "" && s.NATS.Subject == "" {
		s.NATS.Subject = DefaultNATSSubject
	}
	return s
}
