// Package scenario loads and runs YAML test scenarios: a command, and a
// list of steps driving it through a harness.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/joeycumines/go-tuitest/harness"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name    string
	Command []string
	Env     []string
	Size    Size
	// Timeout is the default wait timeout, zero to use the harness default.
	Timeout time.Duration
	Steps   []Step
}

// Size is a terminal size, zero values meaning the runner's default.
type Size struct {
	Cols int
	Rows int
}

type rawScenario struct {
	Name    string
	Command []string
	Env     []string
	Size    Size
	Timeout time.Duration
	Steps   []map[string]any
}

// Load reads and parses a scenario file. The name defaults to the file name.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse parses a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if doc == nil {
		return nil, errors.New("empty scenario")
	}

	var raw rawScenario
	if err := decode(doc, &raw); err != nil {
		return nil, err
	}
	if len(raw.Command) == 0 || raw.Command[0] == "" {
		return nil, errors.New("command is required")
	}
	if raw.Size.Cols < 0 || raw.Size.Rows < 0 || raw.Size.Cols > 0xffff || raw.Size.Rows > 0xffff {
		return nil, fmt.Errorf("invalid size %dx%d", raw.Size.Cols, raw.Size.Rows)
	}
	if raw.Timeout < 0 {
		return nil, errors.New("timeout must not be negative")
	}

	s := &Scenario{
		Name:    raw.Name,
		Command: raw.Command,
		Env:     raw.Env,
		Size:    raw.Size,
		Timeout: raw.Timeout,
		Steps:   make([]Step, 0, len(raw.Steps)),
	}
	for i, m := range raw.Steps {
		step, err := parseStep(m)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		s.Steps = append(s.Steps, step)
	}
	return s, nil
}

// decode is mapstructure.Decode, with durations parsed from strings, and
// unknown keys rejected.
func decode(input, output any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      output,
	})
	if err != nil {
		return err
	}
	return d.Decode(input)
}

func parseStep(m map[string]any) (Step, error) {
	if len(m) != 1 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("expected exactly one action, got [%s]", strings.Join(keys, ", "))
	}
	for kind, value := range m {
		parse, ok := stepParsers[kind]
		if !ok {
			return nil, fmt.Errorf("unknown action %q", kind)
		}
		step, err := parse(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return step, nil
	}
	panic("unreachable")
}

// Cmd builds the command to spawn, bound to ctx.
func (s *Scenario) Cmd(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	if len(s.Env) != 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	return cmd
}

// HarnessOptions returns the harness options the scenario implies.
func (s *Scenario) HarnessOptions() []harness.Option {
	var opts []harness.Option
	if s.Timeout > 0 {
		opts = append(opts, harness.WithTimeout(s.Timeout))
	}
	return opts
}

// StepError is returned by Run when a step fails.
type StepError struct {
	Step  Step
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Run spawns the command in h, then runs each step in order, stopping at the
// first failure, which is returned as a *StepError.
func (s *Scenario) Run(ctx context.Context, h *harness.Harness) error {
	if err := h.Spawn(s.Cmd(ctx)); err != nil {
		return err
	}
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Run(ctx, h); err != nil {
			return &StepError{Step: step, Index: i, Err: err}
		}
	}
	return nil
}
