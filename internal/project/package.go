package project

import (
	"log/slog"
	"slices"

	"git.home.luguber.info/inful/packager/internal/config"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/logfields"
)

// Package owns the configurations of one logical source unit, keyed by build id.
type Package struct {
	id      string
	order   []string
	configs map[string]*Configuration
}

// NewPackage resolves ref inheritance between the declared configurations.
//
// Each pass resolves every configuration whose ref is empty or already
// resolved. A pass that resolves nothing means a cycle or a dangling ref.
func NewPackage(id string, decls []config.ConfigDecl, ignoreDirs map[string]bool) (*Package, error) {
	p := &Package{id: id, configs: make(map[string]*Configuration, len(decls))}
	for _, d := range decls {
		if slices.Contains(p.order, d.ID) {
			return nil, ferrors.ConfigError("duplicate configuration id").
				WithCause(ErrDuplicateID).
				WithContext("package", id).
				WithContext("configuration", d.ID).
				Build()
		}
		p.order = append(p.order, d.ID)
	}

	remaining := decls
	for len(remaining) > 0 {
		var pending []config.ConfigDecl
		for _, d := range remaining {
			var cfg *Configuration
			switch parent, ok := p.configs[d.Ref]; {
			case d.Ref == "":
				cfg = newConfiguration(d.ID, "")
			case ok:
				cfg = parent.inherit(d.ID, d.Ref)
			default:
				pending = append(pending, d)
				continue
			}
			if err := cfg.overlay(d, ignoreDirs); err != nil {
				if c, ok := ferrors.AsClassified(err); ok {
					return nil, c.WithContext("package", id).WithContext("configuration", d.ID)
				}
				return nil, err
			}
			p.configs[d.ID] = cfg
		}

		if len(pending) == len(remaining) {
			unresolved := make([]string, 0, len(pending))
			for _, d := range pending {
				unresolved = append(unresolved, d.ID+"->"+d.Ref)
			}
			return nil, ferrors.ReferenceError("configuration references cannot be resolved").
				WithCause(ErrCyclicReference).
				WithContext("package", id).
				WithContext("unresolved", unresolved).
				Build()
		}
		remaining = pending
	}

	slog.Debug("Package resolved", logfields.Package(id), logfields.Count(len(p.configs)))
	return p, nil
}

// ID returns the package identifier.
func (p *Package) ID() string { return p.id }

// Config returns the configuration for a build id.
func (p *Package) Config(buildID string) (*Configuration, bool) {
	c, ok := p.configs[buildID]
	return c, ok
}

// Configs returns all configurations in declaration order.
func (p *Package) Configs() []*Configuration {
	out := make([]*Configuration, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.configs[id])
	}
	return out
}
