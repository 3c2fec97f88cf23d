package project

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/packager/internal/config"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/logfields"
)

// AllBuilds selects every non-hidden build.
const AllBuilds = "all"

// Project owns all packages and builds of one configuration load.
type Project struct {
	name     string
	source   string
	packages []*Package
	builds   []*Build
}

// New resolves a configuration into a fresh project graph.
func New(cfg *config.Config) (*Project, error) {
	p := &Project{name: cfg.Project, source: cfg.Source}

	ignore := make(map[string]bool)
	for _, d := range DefaultIgnoreDirs {
		ignore[d] = true
	}
	for _, d := range cfg.Settings.IgnoreDirs {
		ignore[d] = true
	}
	// Build outputs must never feed back into a glob.
	for _, b := range cfg.Builds {
		if b.TargetDir == "" {
			continue
		}
		if abs := absDir(b.TargetDir); abs != "" {
			ignore[abs] = true
		}
	}

	seen := make(map[string]bool)
	for i, decl := range cfg.Packages {
		id := decl.ID
		if id == "" {
			id = generatedPackageID(cfg.Project, i)
		}
		if seen[id] {
			return nil, ferrors.ConfigError("duplicate package id").
				WithCause(ErrDuplicateID).
				WithContext("package", id).
				Build()
		}
		seen[id] = true

		pkg, err := NewPackage(id, decl.Configs, ignore)
		if err != nil {
			return nil, err
		}
		p.packages = append(p.packages, pkg)
	}

	seen = make(map[string]bool)
	for _, decl := range cfg.Builds {
		if seen[decl.ID] {
			return nil, ferrors.ConfigError("duplicate build id").
				WithCause(ErrDuplicateID).
				WithContext("build", decl.ID).
				Build()
		}
		seen[decl.ID] = true
		p.builds = append(p.builds, newBuild(decl))
	}

	slog.Debug("Project loaded",
		slog.String("project", p.name),
		slog.Int("packages", len(p.packages)),
		slog.Int("builds", len(p.builds)))
	return p, nil
}

// generatedPackageID derives a stable id from the project name and position so
// reloading an unchanged configuration yields the same ids.
func generatedPackageID(project string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "packager:%s:%d", project, index)).String()
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Source returns the configuration path the project was loaded from.
func (p *Project) Source() string { return p.source }

// Packages returns the packages in declaration order.
func (p *Project) Packages() []*Package { return p.packages }

// Builds returns the builds in declaration order.
func (p *Project) Builds() []*Build { return p.builds }

// Build looks up build settings.
func (p *Project) Build(id string) (*Build, error) {
	for _, b := range p.builds {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, ferrors.NotFoundError("no settings for build").
		WithCause(ErrUnknownBuild).
		WithContext("build", id).
		Build()
}

// SelectBuilds expands a build selector: AllBuilds (or empty) yields every
// non-hidden build, anything else must name a declared build.
func (p *Project) SelectBuilds(selector string) ([]string, error) {
	if selector == "" || selector == AllBuilds {
		var ids []string
		for _, b := range p.builds {
			if !b.Hidden {
				ids = append(ids, b.ID)
			}
		}
		return ids, nil
	}
	if _, err := p.Build(selector); err != nil {
		return nil, err
	}
	return []string{selector}, nil
}

// Merged concatenates, in package order, every package's groups for buildID.
// Duplicates across packages are kept.
func (p *Project) Merged(buildID string) *FileMap {
	m := NewFileMap()
	for _, pkg := range p.packages {
		cfg, ok := pkg.Config(buildID)
		if !ok {
			continue
		}
		for _, g := range cfg.Groups() {
			m.Append(g.Key(), g.Files()...)
		}
	}
	return m
}

// Update re-scans every file group reachable from the given builds.
func (p *Project) Update(buildIDs []string) {
	for _, pkg := range p.packages {
		for _, id := range buildIDs {
			cfg, ok := pkg.Config(id)
			if !ok {
				continue
			}
			for _, g := range cfg.Groups() {
				g.Update()
			}
			slog.Debug("Updated file groups", logfields.Package(pkg.ID()), logfields.Build(id))
		}
	}
}
