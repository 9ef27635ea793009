package scene

import "time"

// EntityController animates one entity. Update reports whether anything
// changed. Controllers are compared by identity, so implement them on
// pointer types.
type EntityController interface {
	Update(e *Entity, dt time.Duration) bool
}

// SceneController animates scene-wide state such as lights.
type SceneController interface {
	Update(s *Scene, dt time.Duration) bool
}
