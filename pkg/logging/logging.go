// Package logging builds the logrus logger shared by prism components and
// provides the critical severity used for renderer state misuse.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// FieldSeverity marks entries whose severity does not map onto a logrus level.
const FieldSeverity = "severity"

// SeverityCritical is the FieldSeverity value for critical entries.
const SeverityCritical = "critical"

// Options configures New.
type Options struct {
	Level  string    // logrus level name; empty means "info"
	JSON   bool      // JSON output instead of text
	Output io.Writer // defaults to os.Stderr
}

// New returns a logger configured from opts.
func New(opts Options) (*logrus.Logger, error) {
	log := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	levelName := opts.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(level)

	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// Critical logs at error level with severity=critical. Used for logic errors
// that are reported but must not abort a running frame.
func Critical(log logrus.FieldLogger, args ...any) {
	log.WithField(FieldSeverity, SeverityCritical).Error(args...)
}

// Criticalf is the formatted form of Critical.
func Criticalf(log logrus.FieldLogger, format string, args ...any) {
	log.WithField(FieldSeverity, SeverityCritical).Errorf(format, args...)
}

// OrDefault returns log, or the logrus standard logger when log is nil.
func OrDefault(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}
