package pool

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-tuitest/terminal"
	"github.com/joeycumines/logiface"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultCapacity       = 16
	DefaultAcquireTimeout = 30 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultWidth          = 80
	DefaultHeight         = 24
)

// Option configures a Pool.
type Option interface {
	applyPool(*config) error
}

type config struct {
	logger         *logiface.Logger[logiface.Event]
	registerer     prometheus.Registerer
	termOpts       []terminal.Option
	acquireTimeout time.Duration
	pollInterval   time.Duration
	capacity       int
	width          uint16
	height         uint16
}

type optionFunc func(*config) error

func (f optionFunc) applyPool(c *config) error { return f(c) }

// WithCapacity sets the maximum number of terminals. Default is 16.
func WithCapacity(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("capacity must be positive")
		}
		c.capacity = n
		return nil
	})
}

// WithAcquireTimeout sets how long Acquire waits for a terminal to become
// available. Default is 30s.
func WithAcquireTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("acquire timeout must be positive")
		}
		c.acquireTimeout = d
		return nil
	})
}

// WithPollInterval sets how often a blocked Acquire retries. Default is 50ms.
func WithPollInterval(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive")
		}
		c.pollInterval = d
		return nil
	})
}

// WithDefaultSize sets the dimensions used by AcquireDefault. Default is 80x24.
func WithDefaultSize(width, height uint16) Option {
	return optionFunc(func(c *config) error {
		if width == 0 || height == 0 {
			return &terminal.DimensionError{Width: width, Height: height}
		}
		c.width, c.height = width, height
		return nil
	})
}

// WithLogger sets the logger, which is also passed to each terminal.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(c *config) error {
		c.logger = logger
		return nil
	})
}

// WithRegisterer registers the pool's metrics with r. By default they are
// not registered.
func WithRegisterer(r prometheus.Registerer) Option {
	return optionFunc(func(c *config) error {
		c.registerer = r
		return nil
	})
}

// WithTerminalOptions passes options to every terminal the pool creates.
func WithTerminalOptions(opts ...terminal.Option) Option {
	return optionFunc(func(c *config) error {
		c.termOpts = append(c.termOpts, opts...)
		return nil
	})
}

func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{
		acquireTimeout: DefaultAcquireTimeout,
		pollInterval:   DefaultPollInterval,
		capacity:       DefaultCapacity,
		width:          DefaultWidth,
		height:         DefaultHeight,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPool(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply pool option: %w", err)
		}
	}
	return cfg, nil
}
