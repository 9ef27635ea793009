package scene

import (
	"maps"
	"slices"
)

// Model is a set of named groups sharing a transform.
type Model struct {
	Transform

	options RenderOption
	groups  map[string]*Group
}

// NewModel returns a model without groups.
func NewModel() *Model {
	return &Model{Transform: identity(), groups: make(map[string]*Group)}
}

// RenderOptions returns the render flags.
func (m *Model) RenderOptions() RenderOption { return m.options }

// SetRenderOptions sets the render flags.
func (m *Model) SetRenderOptions(o RenderOption) { m.options = o }

// Hidden reports whether the Hidden flag is set.
func (m *Model) Hidden() bool { return m.options&Hidden != 0 }

// Group returns the group called name, or nil.
func (m *Model) Group(name string) *Group { return m.groups[name] }

// AddGroup returns the group called name, creating it if needed.
func (m *Model) AddGroup(name string) *Group {
	if g, ok := m.groups[name]; ok {
		return g
	}
	g := newGroup(name, m)
	m.groups[name] = g
	return g
}

// RemoveGroup drops the group called name.
func (m *Model) RemoveGroup(name string) {
	if g, ok := m.groups[name]; ok {
		g.model = nil
		delete(m.groups, name)
	}
}

// GroupNames returns the group names in sorted order.
func (m *Model) GroupNames() []string {
	return slices.Sorted(maps.Keys(m.groups))
}

// Groups returns the groups ordered by name.
func (m *Model) Groups() []*Group {
	names := m.GroupNames()
	out := make([]*Group, len(names))
	for i, n := range names {
		out[i] = m.groups[n]
	}
	return out
}

// Clone copies the model and its groups. A deep clone also copies every
// referenced resource; the copies are unregistered and owned by the caller.
func (m *Model) Clone(deep bool) *Model {
	c := NewModel()
	c.Transform = m.Transform
	c.options = m.options
	for name, g := range m.groups {
		c.groups[name] = g.clone(c, deep)
	}
	return c
}
