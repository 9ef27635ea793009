package scene

import (
	"time"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/prism/pkg/math3d"
)

// settle is the distance and speed below which a spring snaps to rest.
const settle = 1e-4

// SpringController pulls an entity toward Target with a damped spring per
// axis.
type SpringController struct {
	Target    math3d.Vec3
	Frequency float64 // angular frequency
	Damping   float64 // 1 is critically damped

	velocity math3d.Vec3
}

// NewSpringController returns a critically damped spring toward target.
func NewSpringController(target math3d.Vec3, frequency float64) *SpringController {
	return &SpringController{Target: target, Frequency: frequency, Damping: 1}
}

// Velocity returns the current spring velocity.
func (s *SpringController) Velocity() math3d.Vec3 { return s.velocity }

// Impulse adds v to the spring velocity.
func (s *SpringController) Impulse(v math3d.Vec3) { s.velocity = s.velocity.Add(v) }

// Update advances the spring by dt.
func (s *SpringController) Update(e *Entity, dt time.Duration) bool {
	if dt <= 0 {
		return false
	}
	spring := harmonica.NewSpring(dt.Seconds(), s.Frequency, s.Damping)
	p := e.Position()
	var next math3d.Vec3
	next.X, s.velocity.X = spring.Update(p.X, s.velocity.X, s.Target.X)
	next.Y, s.velocity.Y = spring.Update(p.Y, s.velocity.Y, s.Target.Y)
	next.Z, s.velocity.Z = spring.Update(p.Z, s.velocity.Z, s.Target.Z)
	if next.Distance(s.Target) < settle && s.velocity.Len() < settle {
		next = s.Target
		s.velocity = math3d.Vec3{}
	}
	e.SetPosition(next)
	return next != p
}
