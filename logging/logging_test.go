package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromVerbosity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FatalLevel, FromVerbosity(0))
	assert.Equal(t, FatalLevel, FromVerbosity(-3))
	assert.Equal(t, ErrorLevel, FromVerbosity(1))
	assert.Equal(t, WarnLevel, FromVerbosity(2))
	assert.Equal(t, InfoLevel, FromVerbosity(3))
	assert.Equal(t, DebugLevel, FromVerbosity(4))
	assert.Equal(t, TraceLevel, FromVerbosity(5))
	assert.Equal(t, TraceLevel, FromVerbosity(99))
}

func TestLevelString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "TRACE", TraceLevel.String())
	assert.Equal(t, "FATAL", FatalLevel.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)

	l := NewDefaultLoggerNoColor()
	SetGlobalLogger(l)
	assert.Equal(t, Logger(l), GetGlobalLogger())
}

func TestWithFieldsIsolation(t *testing.T) {
	t.Parallel()

	base := NewDefaultLoggerNoColor()
	child := base.WithFields(Fields{"component": "test"})
	assert.NotNil(t, child)

	// the derived logger carries its own field set
	grandchild := child.WithFields(Fields{"extra": 1})
	assert.NotSame(t, child, grandchild)
}
