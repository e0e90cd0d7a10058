package core

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		" warn ":  WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("loud")
	assert.ErrorIs(t, err, ErrUnknownLogLevel)
}

func TestSetLogLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)
	defer SetLogLevel(DebugLevel)

	SetLogLevel(ErrorLevel)
	LogInfo("hidden %d", 1)
	assert.Empty(t, buf.String())

	LogError("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}

func TestMetricsAverages(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(FrameStats{FrameSeconds: 0.010, CompileSeconds: 0.001, Passes: 4, Barriers: 2, Transitions: 1})
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)
	assert.InDelta(t, 1.0, m.CompileTime(), 1e-9)
	assert.EqualValues(t, AVG_COUNT, m.TotalFrames)
	assert.EqualValues(t, 2*int(AVG_COUNT), m.TotalBarriers)
	assert.EqualValues(t, AVG_COUNT, m.TotalTransitions)
	assert.Equal(t, 4, m.LastPasses)
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed())

	c.Start()
	time.Sleep(time.Millisecond)
	c.Update()
	assert.Greater(t, c.ElapsedSeconds(), 0.0)

	c.Stop()
	before := c.Elapsed()
	c.Update()
	assert.Equal(t, before, c.Elapsed())
}
