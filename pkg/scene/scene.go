package scene

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/models"
	"github.com/taigrr/prism/pkg/resource"
)

// PointLight is an omnidirectional light. Color.W scales the intensity.
type PointLight struct {
	Position math3d.Vec3
	Color    math3d.Vec4
}

// Radiance returns the color premultiplied by intensity.
func (l PointLight) Radiance() math3d.Vec3 {
	return l.Color.Vec3().Scale(l.Color.W)
}

// Scene is the root entity of a scene graph.
type Scene struct {
	Entity

	lights      map[int]*PointLight
	skybox      resource.Weak[*models.Cubemap]
	controllers []SceneController

	running    bool
	multiplier float64
	last       time.Time
	now        func() time.Time
}

// New returns an empty stopped scene with a time multiplier of 1.
func New() *Scene {
	return &Scene{
		Entity:     Entity{Transform: identity()},
		lights:     make(map[int]*PointLight),
		multiplier: 1,
		now:        time.Now,
	}
}

// Light returns the light with id.
func (s *Scene) Light(id int) (PointLight, bool) {
	l, ok := s.lights[id]
	if !ok {
		return PointLight{}, false
	}
	return *l, true
}

// GetOrCreateLight returns the light with id for modification, adding a
// white light at the origin if none exists.
func (s *Scene) GetOrCreateLight(id int) *PointLight {
	l, ok := s.lights[id]
	if !ok {
		l = &PointLight{Color: math3d.V4(1, 1, 1, 1)}
		s.lights[id] = l
	}
	return l
}

// RemoveLight deletes the light with id.
func (s *Scene) RemoveLight(id int) { delete(s.lights, id) }

// Lights returns the lights ordered by id.
func (s *Scene) Lights() []PointLight {
	ids := slices.Sorted(maps.Keys(s.lights))
	out := make([]PointLight, len(ids))
	for i, id := range ids {
		out[i] = *s.lights[id]
	}
	return out
}

// Skybox returns the environment cubemap, nil if unset or destroyed.
func (s *Scene) Skybox() *models.Cubemap {
	c, _ := s.skybox.Get()
	return c
}

// SetSkybox sets the environment cubemap. Nil removes it.
func (s *Scene) SetSkybox(c *models.Cubemap) {
	if c == nil {
		s.skybox = resource.Weak[*models.Cubemap]{}
		return
	}
	s.skybox = resource.MakeWeak(c, c.Anchor())
}

// AddController attaches a scene controller.
func (s *Scene) AddController(c SceneController) {
	s.controllers = append(s.controllers, c)
}

// RemoveController detaches a scene controller.
func (s *Scene) RemoveController(c SceneController) {
	s.controllers = slices.DeleteFunc(s.controllers, func(o SceneController) bool { return o == c })
}

// RunTimeMultiplier returns the factor applied to elapsed time.
func (s *Scene) RunTimeMultiplier() float64 { return s.multiplier }

// SetRunTimeMultiplier sets the factor applied to elapsed time.
func (s *Scene) SetRunTimeMultiplier(m float64) { s.multiplier = m }

// IsRunning reports whether Update advances time.
func (s *Scene) IsRunning() bool { return s.running }

// SetRunning starts or stops the run timer.
func (s *Scene) SetRunning(running bool) {
	if running && !s.running {
		s.last = s.now()
	}
	s.running = running
}

// Run starts the run timer.
func (s *Scene) Run() { s.SetRunning(true) }

// Stop stops the run timer.
func (s *Scene) Stop() { s.SetRunning(false) }

// Update advances the scene by the scaled time since the previous Update
// and reports whether any controller changed something. A stopped scene
// does nothing.
func (s *Scene) Update() bool {
	if !s.running {
		return false
	}
	now := s.now()
	dt := now.Sub(s.last)
	s.last = now
	return s.Step(time.Duration(float64(dt) * s.multiplier))
}

// Step runs the scene controllers, then every entity controller, with dt.
func (s *Scene) Step(dt time.Duration) bool {
	changed := false
	for _, c := range s.controllers {
		if c.Update(s, dt) {
			changed = true
		}
	}
	if s.step(dt) {
		changed = true
	}
	return changed
}

// ClosestLights returns up to n lights nearest to p, nearest first.
func (s *Scene) ClosestLights(p math3d.Vec3, n int) []PointLight {
	lights := s.Lights()
	slices.SortStableFunc(lights, func(a, b PointLight) int {
		return cmp.Compare(a.Position.Distance(p), b.Position.Distance(p))
	})
	if len(lights) > n {
		lights = lights[:max(n, 0)]
	}
	return lights
}
