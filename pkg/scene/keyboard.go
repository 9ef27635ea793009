package scene

import (
	"math"
	"time"

	"github.com/taigrr/prism/pkg/math3d"
)

// CameraAction is something a key can do to the camera.
type CameraAction int

const (
	MoveForward CameraAction = iota
	MoveBackward
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
	MovePrecise
	MoveQuick
	LookLeft
	LookRight
	LookUp
	LookDown
	TiltLeft
	TiltRight
	LookHome
	cameraActionCount
)

// DefaultKeyBindings maps terminal key names to actions.
func DefaultKeyBindings() map[string]CameraAction {
	return map[string]CameraAction{
		"w":     MoveForward,
		"s":     MoveBackward,
		"a":     MoveLeft,
		"d":     MoveRight,
		"q":     MoveUp,
		"z":     MoveDown,
		"shift": MoveQuick,
		"ctrl":  MovePrecise,
		"left":  LookLeft,
		"right": LookRight,
		"up":    LookUp,
		"down":  LookDown,
		"h":     LookHome,
	}
}

// KeyboardCameraController flies a camera from held keys.
type KeyboardCameraController struct {
	camera   *Camera
	bindings map[string]CameraAction
	pressed  map[string]bool
	tapped   map[string]bool
	actions  [cameraActionCount]bool

	precise   float64
	quick     float64
	moveSpeed math3d.Vec3 // units per second
	turnSpeed math3d.Vec3 // radians per second
	home      math3d.Vec3
}

// NewKeyboardCameraController returns a controller with the default
// bindings.
func NewKeyboardCameraController(c *Camera) *KeyboardCameraController {
	return &KeyboardCameraController{
		camera:    c,
		bindings:  DefaultKeyBindings(),
		pressed:   make(map[string]bool),
		tapped:    make(map[string]bool),
		precise:   0.2,
		quick:     5,
		moveSpeed: math3d.V3(1, 1, 1),
		turnSpeed: math3d.V3(math.Pi/3, math.Pi/3, math.Pi/3),
	}
}

// AddKeyBinding binds key to action.
func (k *KeyboardCameraController) AddKeyBinding(key string, a CameraAction) {
	k.bindings[key] = a
	k.updateActions()
}

// SetKeyBindings replaces every binding.
func (k *KeyboardCameraController) SetKeyBindings(b map[string]CameraAction) {
	k.bindings = b
	k.updateActions()
}

// SetPreciseMovementFactor scales movement while MovePrecise is held.
func (k *KeyboardCameraController) SetPreciseMovementFactor(f float64) { k.precise = f }

// SetQuickMovementFactor scales movement while MoveQuick is held.
func (k *KeyboardCameraController) SetQuickMovementFactor(f float64) { k.quick = f }

// SetBaseMovementSpeed sets units per second along right, up and forward.
func (k *KeyboardCameraController) SetBaseMovementSpeed(v math3d.Vec3) { k.moveSpeed = v }

// SetBaseRotationSpeed sets radians per second for pitch, yaw and roll.
func (k *KeyboardCameraController) SetBaseRotationSpeed(v math3d.Vec3) { k.turnSpeed = v }

// SetHomePosition sets the point LookHome turns toward.
func (k *KeyboardCameraController) SetHomePosition(p math3d.Vec3) { k.home = p }

// KeyDown marks key held.
func (k *KeyboardCameraController) KeyDown(key string) {
	k.pressed[key] = true
	k.updateActions()
}

// KeyUp marks key released.
func (k *KeyboardCameraController) KeyUp(key string) {
	delete(k.pressed, key)
	k.updateActions()
}

// Tap holds key for the next Update only, for inputs without release
// events.
func (k *KeyboardCameraController) Tap(key string) {
	k.tapped[key] = true
	k.updateActions()
}

// Release drops every held key, as on focus loss.
func (k *KeyboardCameraController) Release() {
	clear(k.pressed)
	clear(k.tapped)
	k.updateActions()
}

func (k *KeyboardCameraController) updateActions() {
	k.actions = [cameraActionCount]bool{}
	for key, a := range k.bindings {
		if k.pressed[key] || k.tapped[key] {
			k.actions[a] = true
		}
	}
}

func axis(pos, neg bool) float64 {
	switch {
	case pos && !neg:
		return 1
	case neg && !pos:
		return -1
	}
	return 0
}

// Update moves and turns the camera for the held actions over dt and
// reports whether it changed.
func (k *KeyboardCameraController) Update(dt time.Duration) bool {
	a := &k.actions
	defer func() {
		if len(k.tapped) > 0 {
			clear(k.tapped)
			k.updateActions()
		}
	}()

	move := math3d.V3(
		axis(a[MoveRight], a[MoveLeft]),
		axis(a[MoveUp], a[MoveDown]),
		axis(a[MoveForward], a[MoveBackward]),
	)
	if a[MovePrecise] {
		move = move.Scale(k.precise)
	}
	if a[MoveQuick] {
		move = move.Scale(k.quick)
	}
	turn := math3d.V3(
		axis(a[LookUp], a[LookDown]),
		axis(a[LookLeft], a[LookRight]),
		axis(a[TiltLeft], a[TiltRight]), // positive roll tilts left
	)
	move = move.Mul(k.moveSpeed)
	turn = turn.Mul(k.turnSpeed)

	if move.LenSq() == 0 && turn.LenSq() == 0 && !a[LookHome] {
		return false
	}

	secs := dt.Seconds()
	c := k.camera
	c.OffsetOrientation(turn.Scale(secs))
	step := c.Forward().Scale(move.Z).Add(c.Right().Scale(move.X)).Add(c.Up().Scale(move.Y))
	c.OffsetPosition(step.Scale(secs))
	if a[LookHome] {
		c.SetOrientationTarget(k.home)
	}
	return true
}
