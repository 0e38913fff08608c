// Package config loads tuitest CLI configuration from defaults, an optional
// YAML file, TUITEST_ environment variables, and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds CLI configuration.
type Config struct {
	Log      LogConfig
	Terminal TerminalConfig
	Wait     WaitConfig
	Pool     PoolConfig
	Run      RunConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is a logiface level keyword, e.g. info, debug, trace, or
	// disabled.
	Level string
	// TimeField is the name of the timestamp field, empty to omit it.
	TimeField string `mapstructure:"time_field"`
}

// TerminalConfig holds the default terminal geometry.
type TerminalConfig struct {
	Cols int
	Rows int
	Term string
}

// WaitConfig holds harness wait settings.
type WaitConfig struct {
	Timeout      time.Duration
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// PoolConfig holds terminal pool settings.
type PoolConfig struct {
	Capacity       int
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

// RunConfig holds scenario runner settings.
type RunConfig struct {
	Parallel int
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"cols":          "terminal.cols",
	"rows":          "terminal.rows",
	"timeout":       "wait.timeout",
	"poll-interval": "wait.poll_interval",
	"parallel":      "run.parallel",
}

// Load reads configuration. The file at path is read if path is not empty.
// Flags in flags named in flagKeys are bound to their keys, and override
// every other source when set.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "warning")
	v.SetDefault("log.time_field", "time")
	v.SetDefault("terminal.cols", 80)
	v.SetDefault("terminal.rows", 24)
	v.SetDefault("terminal.term", "xterm-256color")
	v.SetDefault("wait.timeout", 5*time.Second)
	v.SetDefault("wait.poll_interval", 100*time.Millisecond)
	v.SetDefault("pool.capacity", 16)
	v.SetDefault("pool.acquire_timeout", 30*time.Second)
	v.SetDefault("run.parallel", 4)

	v.SetEnvPrefix("TUITEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that would otherwise fail later, deep in a run.
func (c Config) Validate() error {
	var errs []error
	if c.Terminal.Cols <= 0 || c.Terminal.Cols > 0xffff || c.Terminal.Rows <= 0 || c.Terminal.Rows > 0xffff {
		errs = append(errs, fmt.Errorf("invalid terminal size %dx%d", c.Terminal.Cols, c.Terminal.Rows))
	}
	if c.Wait.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("wait timeout must be positive"))
	}
	if c.Wait.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("wait poll interval must be positive"))
	}
	if c.Pool.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("pool capacity must be positive"))
	}
	if c.Pool.AcquireTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pool acquire timeout must be positive"))
	}
	if c.Run.Parallel <= 0 {
		errs = append(errs, fmt.Errorf("run parallelism must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

var levels = map[string]logiface.Level{
	"disabled": logiface.LevelDisabled,
	"emerg":    logiface.LevelEmergency,
	"alert":    logiface.LevelAlert,
	"crit":     logiface.LevelCritical,
	"err":      logiface.LevelError,
	"error":    logiface.LevelError,
	"warning":  logiface.LevelWarning,
	"warn":     logiface.LevelWarning,
	"notice":   logiface.LevelNotice,
	"info":     logiface.LevelInformational,
	"debug":    logiface.LevelDebug,
	"trace":    logiface.LevelTrace,
}

// ParseLevel resolves a level keyword, as printed by logiface.Level.String,
// or one of the aliases error and warn.
func ParseLevel(s string) (logiface.Level, error) {
	if level, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return level, nil
	}
	return logiface.LevelDisabled, fmt.Errorf("unknown log level: %q", s)
}

// NewLogger builds a JSON logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*logiface.Logger[logiface.Event], error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
			stumpy.WithTimeField(c.TimeField),
		),
		stumpy.L.WithLevel(level),
	).Logger(), nil
}
