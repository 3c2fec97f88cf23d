package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
)

// ErrConfigParse marks every malformed or unreadable configuration source.
var ErrConfigParse = errors.New("config parse error")

// Load reads, expands and validates the configuration file at path.
func Load(path string) (*Config, error) {
	loadEnvFiles(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.ConfigError("cannot read configuration").
			WithCause(fmt.Errorf("%w: %w", ErrConfigParse, err)).
			WithContext("file", path).
			Build()
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))), path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a JSON or YAML document. source is only used for error context.
func Parse(data []byte, source string) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ferrors.ConfigError("malformed configuration").
			WithCause(fmt.Errorf("%w: %w", ErrConfigParse, err)).
			WithContext("file", source).
			Build()
	}

	d := &decoder{source: source}
	cfg := d.document(&doc)
	if d.err != nil {
		return nil, d.err
	}
	cfg.Source = source
	return cfg, nil
}
