package project

import "git.home.luguber.info/inful/packager/internal/config"

// Configuration is the set of file groups one package contributes to one build.
type Configuration struct {
	id     string
	ref    string
	keys   []string
	groups map[string]*FileGroup
}

func newConfiguration(id, ref string) *Configuration {
	return &Configuration{id: id, ref: ref, groups: make(map[string]*FileGroup)}
}

// ID returns the configuration identifier (the build id it serves).
func (c *Configuration) ID() string { return c.id }

// Ref returns the sibling configuration this one inherits from, if any.
func (c *Configuration) Ref() string { return c.ref }

// Group returns the group for key.
func (c *Configuration) Group(key string) (*FileGroup, bool) {
	g, ok := c.groups[key]
	return g, ok
}

// Groups returns the groups in declaration order, inherited keys first.
func (c *Configuration) Groups() []*FileGroup {
	out := make([]*FileGroup, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.groups[k])
	}
	return out
}

// inherit returns a fresh configuration seeded with deep copies of c's groups.
func (c *Configuration) inherit(id, ref string) *Configuration {
	child := newConfiguration(id, ref)
	for _, k := range c.keys {
		child.keys = append(child.keys, k)
		child.groups[k] = c.groups[k].Clone()
	}
	return child
}

// overlay applies the declared groups: matchers for an existing key are
// appended after the inherited ones, new keys are added at the end.
func (c *Configuration) overlay(decl config.ConfigDecl, ignoreDirs map[string]bool) error {
	for _, gd := range decl.Groups {
		g, ok := c.groups[gd.Key]
		if !ok {
			g = NewFileGroup(gd.Key, ignoreDirs)
			c.groups[gd.Key] = g
			c.keys = append(c.keys, gd.Key)
		}
		if err := g.Add(gd.Matchers...); err != nil {
			return err
		}
	}
	return nil
}
