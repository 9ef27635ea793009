package gpu

import (
	"github.com/sirupsen/logrus"

	"github.com/taigrr/prism/pkg/logging"
)

// DefaultStateStackDepth caps nested pushes.
const DefaultStateStackDepth = 24

// State is the device global state saved around nested passes.
type State struct {
	Framebuffer Handle
	Viewport    Viewport
	Features    [FeatureCount]bool
	ActiveUnit  int
	Textures    [MaxTextureUnits]Handle
	DepthMask   bool
	Program     Handle
	Blend       BlendFunc
	DepthFunc   DepthFunc
}

type stateFrame struct {
	saved       State
	framebuffer Handle // created by the push, NoHandle otherwise
}

// StateStack saves and restores device state for nested render passes.
// Misuse (pop on empty, push past the cap) is logged at critical severity
// and ignored.
type StateStack struct {
	dev    Device
	log    logrus.FieldLogger
	limit  int
	frames []stateFrame
}

// NewStateStack returns a stack over dev. A non-positive limit selects
// DefaultStateStackDepth.
func NewStateStack(dev Device, limit int, log logrus.FieldLogger) *StateStack {
	if limit <= 0 {
		limit = DefaultStateStackDepth
	}
	return &StateStack{
		dev:   dev,
		log:   logging.OrDefault(log),
		limit: limit,
	}
}

// Depth returns the number of saved frames.
func (s *StateStack) Depth() int {
	return len(s.frames)
}

// Push snapshots the device state. With newFramebuffer it also creates and
// binds a framebuffer that the matching Pop deletes; the handle is returned.
func (s *StateStack) Push(newFramebuffer bool) Handle {
	if len(s.frames) >= s.limit {
		logging.Criticalf(s.log, "state stack overflow: push beyond %d frames ignored", s.limit)
		return NoHandle
	}

	frame := stateFrame{saved: s.dev.State()}
	if newFramebuffer {
		fb, err := s.dev.CreateFramebuffer()
		if err != nil {
			logging.Criticalf(s.log, "state stack push: create framebuffer: %v", err)
		} else {
			frame.framebuffer = fb
			s.dev.BindFramebuffer(fb)
		}
	}
	s.frames = append(s.frames, frame)
	return frame.framebuffer
}

// Pop restores the most recent snapshot and deletes the framebuffer its
// push created.
func (s *StateStack) Pop() {
	if len(s.frames) == 0 {
		logging.Critical(s.log, "state stack underflow: pop on empty stack ignored")
		return
	}

	frame := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	st := frame.saved

	s.dev.BindFramebuffer(st.Framebuffer)
	s.dev.SetViewport(st.Viewport)
	for f := range FeatureCount {
		s.dev.SetFeature(f, st.Features[f])
	}
	for unit := MaxTextureUnits - 1; unit >= 0; unit-- {
		s.dev.SetActiveTexture(unit)
		s.dev.BindTexture(st.Textures[unit])
	}
	s.dev.SetActiveTexture(st.ActiveUnit)
	s.dev.SetDepthMask(st.DepthMask)
	s.dev.UseProgram(st.Program)
	s.dev.SetBlendFunc(st.Blend)
	s.dev.SetDepthFunc(st.DepthFunc)

	if frame.framebuffer != NoHandle {
		s.dev.Delete(frame.framebuffer)
	}
}
