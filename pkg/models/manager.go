package models

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/taigrr/prism/pkg/logging"
)

var (
	// ErrNotFound is returned when no resource is registered under a name.
	ErrNotFound = errors.New("resource not found")
	// ErrExists is returned when a name is already registered.
	ErrExists = errors.New("resource already registered")
)

// Resource is implemented by every type a Registry holds.
type Resource interface {
	Name() string
	SetName(string)
	SetLogger(logrus.FieldLogger)
	Destroy()
}

// Registry owns resources of one type by name.
type Registry[T Resource] struct {
	kind  string
	log   logrus.FieldLogger
	items map[string]T
}

func newRegistry[T Resource](kind string, log logrus.FieldLogger) *Registry[T] {
	return &Registry[T]{kind: kind, log: log, items: make(map[string]T)}
}

// Add registers r under name and takes ownership of it.
func (r *Registry[T]) Add(name string, res T) (T, error) {
	if _, ok := r.items[name]; ok {
		return res, fmt.Errorf("%w: %s %q", ErrExists, r.kind, name)
	}
	res.SetName(name)
	res.SetLogger(r.log.WithField("name", name))
	r.items[name] = res
	return res, nil
}

// Get returns the resource registered under name.
func (r *Registry[T]) Get(name string) (T, error) {
	res, ok := r.items[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrNotFound, r.kind, name)
	}
	return res, nil
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	return slices.Sorted(maps.Keys(r.items))
}

// Len returns the number of registered resources.
func (r *Registry[T]) Len() int { return len(r.items) }

// Remove unregisters and destroys the resource under name.
func (r *Registry[T]) Remove(name string) error {
	res, ok := r.items[name]
	if !ok {
		return fmt.Errorf("%w: %s %q", ErrNotFound, r.kind, name)
	}
	delete(r.items, name)
	res.Destroy()
	return nil
}

func (r *Registry[T]) destroyAll() {
	for _, name := range r.Names() {
		r.items[name].Destroy()
	}
	clear(r.items)
}

// Manager owns the named resources loaded by an application.
type Manager struct {
	Meshes     *Registry[*Mesh]
	LineGroups *Registry[*LineGroup]
	Materials  *Registry[*Material]
	Properties *Registry[*MaterialProperties]
	Textures   *Registry[*Texture]
	Cubemaps   *Registry[*Cubemap]
}

// NewManager returns an empty manager. Registered resources log through
// log.
func NewManager(log logrus.FieldLogger) *Manager {
	log = logging.OrDefault(log).WithField("component", "resources")
	return &Manager{
		Meshes:     newRegistry[*Mesh]("mesh", log),
		LineGroups: newRegistry[*LineGroup]("line group", log),
		Materials:  newRegistry[*Material]("material", log),
		Properties: newRegistry[*MaterialProperties]("material properties", log),
		Textures:   newRegistry[*Texture]("texture", log),
		Cubemaps:   newRegistry[*Cubemap]("cubemap", log),
	}
}

// Destroy destroys every registered resource.
func (m *Manager) Destroy() {
	m.Meshes.destroyAll()
	m.LineGroups.destroyAll()
	m.Materials.destroyAll()
	m.Properties.destroyAll()
	m.Textures.destroyAll()
	m.Cubemaps.destroyAll()
}
