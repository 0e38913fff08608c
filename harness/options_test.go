package harness

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/joeycumines/go-tuitest/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOptions_Defaults(t *testing.T) {
	cfg, err := resolveOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(DefaultWidth), cfg.width)
	assert.Equal(t, uint16(DefaultHeight), cfg.height)
	assert.Equal(t, DefaultTimeout, cfg.timeout)
	assert.Equal(t, DefaultPollInterval, cfg.pollInterval)
	assert.Equal(t, DefaultKeyDelay, cfg.keyDelay)
	assert.Equal(t, DefaultBufferSize, cfg.bufferSize)
	assert.Equal(t, os.Stderr, cfg.diagnostics)
	assert.Nil(t, cfg.logger)
	assert.Nil(t, cfg.typingRates)
}

func TestResolveOptions_Values(t *testing.T) {
	var buf bytes.Buffer
	cfg, err := resolveOptions([]Option{
		WithSize(100, 30),
		WithTimeout(time.Second),
		WithPollInterval(10 * time.Millisecond),
		WithKeyDelay(0),
		WithBufferSize(16),
		WithDiagnostics(&buf),
		WithTypingRate(map[time.Duration]int{time.Second: 10, time.Minute: 300}),
		WithTerminalOptions(terminal.WithEcho(false)),
		nil,
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(100), cfg.width)
	assert.Equal(t, uint16(30), cfg.height)
	assert.Equal(t, time.Second, cfg.timeout)
	assert.Equal(t, 10*time.Millisecond, cfg.pollInterval)
	assert.Zero(t, cfg.keyDelay)
	assert.Equal(t, 16, cfg.bufferSize)
	assert.Same(t, &buf, cfg.diagnostics)
	assert.Len(t, cfg.typingRates, 2)
	assert.Len(t, cfg.termOpts, 1)

	cfg, err = resolveOptions([]Option{WithDiagnostics(nil)})
	require.NoError(t, err)
	assert.Nil(t, cfg.diagnostics)
}

func TestResolveOptions_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		opt  Option
	}{
		{"zero width", WithSize(0, 24)},
		{"zero height", WithSize(80, 0)},
		{"zero timeout", WithTimeout(0)},
		{"negative poll", WithPollInterval(-time.Second)},
		{"negative key delay", WithKeyDelay(-1)},
		{"zero buffer", WithBufferSize(0)},
		{"zero rate", WithTypingRate(map[time.Duration]int{time.Second: 0})},
		{"non-increasing rates", WithTypingRate(map[time.Duration]int{time.Second: 10, time.Minute: 5})},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolveOptions([]Option{tc.opt})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to apply harness option")
		})
	}

	_, err := resolveOptions([]Option{WithSize(0, 0)})
	assert.ErrorIs(t, err, terminal.ErrInvalidDimensions)
}

func TestValidateRates(t *testing.T) {
	assert.NoError(t, validateRates(nil))
	assert.NoError(t, validateRates(map[time.Duration]int{time.Millisecond * 100: 1}))
	err := validateRates(map[time.Duration]int{-time.Second: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid typing rate")
}
