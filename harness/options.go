package harness

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joeycumines/go-tuitest/terminal"
	"github.com/joeycumines/logiface"
)

const (
	DefaultWidth        = 80
	DefaultHeight       = 24
	DefaultTimeout      = 5 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
	DefaultBufferSize   = 4096
	DefaultKeyDelay     = 50 * time.Millisecond
)

// Option configures a Harness.
type Option interface {
	applyHarness(*config) error
}

type config struct {
	logger       *logiface.Logger[logiface.Event]
	diagnostics  io.Writer
	typingRates  map[time.Duration]int
	termOpts     []terminal.Option
	timeout      time.Duration
	pollInterval time.Duration
	keyDelay     time.Duration
	bufferSize   int
	width        uint16
	height       uint16
}

type optionFunc func(*config) error

func (f optionFunc) applyHarness(c *config) error { return f(c) }

// WithSize sets the terminal dimensions, as (width, height). Default is
// 80x24. Ignored by NewWithTerminal, which adopts the terminal's size.
func WithSize(width, height uint16) Option {
	return optionFunc(func(c *config) error {
		if width == 0 || height == 0 {
			return &terminal.DimensionError{Width: width, Height: height}
		}
		c.width, c.height = width, height
		return nil
	})
}

// WithTimeout sets the default timeout for WaitFor and friends. Default is 5s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		c.timeout = d
		return nil
	})
}

// WithPollInterval sets how often wait loops refresh and re-check. Default
// is 100ms.
func WithPollInterval(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive")
		}
		c.pollInterval = d
		return nil
	})
}

// WithBufferSize sets the read chunk size used by UpdateState. Default is 4096.
func WithBufferSize(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("buffer size must be positive")
		}
		c.bufferSize = n
		return nil
	})
}

// WithKeyDelay sets the pause after each key, before the screen is refreshed.
// Default is 50ms.
func WithKeyDelay(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d < 0 {
			return fmt.Errorf("key delay must not be negative")
		}
		c.keyDelay = d
		return nil
	})
}

// WithLogger sets the logger. It is also passed to the terminal created by
// New. Default is nil (disabled).
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(c *config) error {
		c.logger = logger
		return nil
	})
}

// WithDiagnostics sets where the failure diagnostic block of a wait is
// printed. Default is os.Stderr, nil disables it.
func WithDiagnostics(w io.Writer) Option {
	return optionFunc(func(c *config) error {
		c.diagnostics = w
		return nil
	})
}

// WithTypingRate limits TypeText to the given rates, a map of window to
// maximum keys per window, e.g. {time.Second: 20}. Longer windows must allow
// more events, at a lower average rate.
func WithTypingRate(rates map[time.Duration]int) Option {
	return optionFunc(func(c *config) error {
		if err := validateRates(rates); err != nil {
			return err
		}
		c.typingRates = rates
		return nil
	})
}

// WithTerminalOptions passes options to the terminal created by New.
func WithTerminalOptions(opts ...terminal.Option) Option {
	return optionFunc(func(c *config) error {
		c.termOpts = append(c.termOpts, opts...)
		return nil
	})
}

func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{
		diagnostics:  os.Stderr,
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
		keyDelay:     DefaultKeyDelay,
		bufferSize:   DefaultBufferSize,
		width:        DefaultWidth,
		height:       DefaultHeight,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyHarness(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply harness option: %w", err)
		}
	}
	return cfg, nil
}
