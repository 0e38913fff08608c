package terminal

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeycumines/logiface"
)

const (
	// DefaultReadTimeout is the budget for a single Read.
	DefaultReadTimeout = 100 * time.Millisecond
	// DefaultWriteTimeout bounds how long a write waits for the pty to
	// become writable.
	DefaultWriteTimeout = 5 * time.Second
	// DefaultKillGrace is how long Kill waits after SIGTERM, before SIGKILL.
	DefaultKillGrace = 100 * time.Millisecond
	// DefaultTermName is the TERM value given to spawned processes.
	DefaultTermName = "xterm-256color"
)

// Option configures a Terminal.
type Option interface {
	applyTerminal(*config) error
}

type config struct {
	logger       *logiface.Logger[logiface.Event]
	termName     string
	env          []string
	readTimeout  time.Duration
	writeTimeout time.Duration
	killGrace    time.Duration
	noEcho       bool
}

type optionFunc func(*config) error

func (f optionFunc) applyTerminal(c *config) error { return f(c) }

// WithReadTimeout sets the budget for Read. Default is 100ms.
func WithReadTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("read timeout must be positive")
		}
		c.readTimeout = d
		return nil
	})
}

// WithWriteTimeout bounds how long a write may wait for the pty to accept
// data. Default is 5s.
func WithWriteTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("write timeout must be positive")
		}
		c.writeTimeout = d
		return nil
	})
}

// WithKillGrace sets how long Kill waits for the process to exit after
// SIGTERM, before sending SIGKILL. Default is 100ms.
func WithKillGrace(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d < 0 {
			return fmt.Errorf("kill grace must not be negative")
		}
		c.killGrace = d
		return nil
	})
}

// WithEnv appends KEY=VALUE pairs to the environment of spawned processes.
func WithEnv(env ...string) Option {
	return optionFunc(func(c *config) error {
		for _, kv := range env {
			if !strings.Contains(kv, "=") {
				return fmt.Errorf("invalid env entry %q: expected KEY=VALUE", kv)
			}
		}
		c.env = append(c.env, env...)
		return nil
	})
}

// WithTermName sets TERM for spawned processes. Default is xterm-256color.
func WithTermName(name string) Option {
	return optionFunc(func(c *config) error {
		if name == "" {
			return fmt.Errorf("term name must not be empty")
		}
		c.termName = name
		return nil
	})
}

// WithEcho controls whether the pty echoes input. Default is true, matching
// a freshly allocated terminal.
func WithEcho(enabled bool) Option {
	return optionFunc(func(c *config) error {
		c.noEcho = !enabled
		return nil
	})
}

// WithLogger sets the logger. A nil logger disables logging, which is the
// default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(c *config) error {
		c.logger = logger
		return nil
	})
}

func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{
		termName:     DefaultTermName,
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		killGrace:    DefaultKillGrace,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyTerminal(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply terminal option: %w", err)
		}
	}
	return cfg, nil
}
