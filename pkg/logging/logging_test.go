package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    logrus.Level
		wantErr bool
	}{
		{"default", "", logrus.InfoLevel, false},
		{"debug", "debug", logrus.DebugLevel, false},
		{"warning", "warning", logrus.WarnLevel, false},
		{"bogus", "loud", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, err := New(Options{Level: tc.level, Output: &bytes.Buffer{}})
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, log.GetLevel())
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{JSON: true, Output: &buf})
	require.NoError(t, err)

	log.WithField("kind", "mesh").Info("built")
	assert.Contains(t, buf.String(), `"kind":"mesh"`)
}

func TestCritical(t *testing.T) {
	log, hook := test.NewNullLogger()

	Criticalf(log, "stack %s", "overflow")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, SeverityCritical, entry.Data[FieldSeverity])
	assert.Equal(t, "stack overflow", entry.Message)
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, logrus.StandardLogger(), OrDefault(nil))

	log, _ := test.NewNullLogger()
	assert.Equal(t, log, OrDefault(log))
}
