package gpu

import "github.com/sirupsen/logrus"

// ErrorScope drains device errors around one logical operation. Errors left
// over from earlier work are logged on entry so they are not attributed to
// the operation; errors raised inside are logged on Exit.
type ErrorScope struct {
	dev Device
	log logrus.FieldLogger
	op  string
}

// maxDrain bounds draining so a device that keeps reporting cannot hang.
const maxDrain = 64

// EnterErrorScope starts a scope for op.
func EnterErrorScope(dev Device, log logrus.FieldLogger, op string) *ErrorScope {
	s := &ErrorScope{dev: dev, log: log, op: op}
	s.drain("before")
	return s
}

// Exit logs each error raised since entry and returns how many there were.
func (s *ErrorScope) Exit() int {
	return s.drain("during")
}

func (s *ErrorScope) drain(when string) int {
	n := 0
	for range maxDrain {
		err := s.dev.Error()
		if err == nil {
			break
		}
		n++
		s.log.WithFields(logrus.Fields{"op": s.op, "when": when}).Warnf("device error: %v", err)
	}
	return n
}
