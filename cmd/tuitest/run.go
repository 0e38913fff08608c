package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/joeycumines/go-tuitest/internal/scenario"
	"github.com/joeycumines/go-tuitest/pool"
	"github.com/joeycumines/go-tuitest/terminal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// errScenariosFailed is returned by run once every failure is reported.
var errScenariosFailed = errors.New("scenarios failed")

type runFlags struct {
	metricsFile string
	failFast    bool
	verbose     bool
}

type scenarioResult struct {
	err         error
	diagnostics bytes.Buffer
	elapsed     time.Duration
}

func newRunCommand(c *cli) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Run YAML scenario files",
		Long: `Run YAML scenario files in parallel, each on a terminal acquired from a shared
pool, and report PASS or FAIL per scenario. Scenario sizes default to
--cols and --rows.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args, f)
		},
	}
	flags := cmd.Flags()
	flags.Int("parallel", 4, "maximum number of scenarios to run at once")
	flags.BoolVar(&f.failFast, "fail-fast", false, "cancel remaining scenarios after the first failure")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "print diagnostics for passing scenarios too")
	flags.StringVar(&f.metricsFile, "metrics", "", "write pool metrics to this file, in the Prometheus text format")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, paths []string, f runFlags) error {
	scenarios := make([]*scenario.Scenario, len(paths))
	for i, path := range paths {
		s, err := scenario.Load(path)
		if err != nil {
			return err
		}
		scenarios[i] = s
	}

	reg := prometheus.NewRegistry()
	p, err := pool.New(
		pool.WithCapacity(c.cfg.Pool.Capacity),
		pool.WithAcquireTimeout(c.cfg.Pool.AcquireTimeout),
		pool.WithDefaultSize(uint16(c.cfg.Terminal.Cols), uint16(c.cfg.Terminal.Rows)),
		pool.WithLogger(c.logger),
		pool.WithRegisterer(reg),
		pool.WithTerminalOptions(terminal.WithTermName(c.cfg.Terminal.Term)),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			c.logger.Warning().Err(err).Log("failed to close pool")
		}
	}()

	results := make([]*scenarioResult, len(scenarios))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(c.cfg.Run.Parallel)
	for i, s := range scenarios {
		result := new(scenarioResult)
		results[i] = result
		g.Go(func() error {
			start := time.Now()
			result.err = c.runScenario(ctx, p, s, &result.diagnostics)
			result.elapsed = time.Since(start)
			if result.err != nil && f.failFast {
				return result.err
			}
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Debug().Str("stats", p.Stats().Summary()).Log("scenarios finished")

	failed := report(cmd.OutOrStdout(), scenarios, results, f.verbose)

	if f.metricsFile != "" {
		if err := prometheus.WriteToTextfile(f.metricsFile, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if failed != 0 {
		return fmt.Errorf("%w: %d of %d", errScenariosFailed, failed, len(scenarios))
	}
	return nil
}

// runScenario runs s on a pooled terminal, sized per the scenario, or the
// pool's default.
func (c *cli) runScenario(ctx context.Context, p *pool.Pool, s *scenario.Scenario, diag io.Writer) (err error) {
	cols, rows := s.Size.Cols, s.Size.Rows
	if cols == 0 {
		cols = c.cfg.Terminal.Cols
	}
	if rows == 0 {
		rows = c.cfg.Terminal.Rows
	}

	guard, err := pool.Acquire(ctx, p, uint16(cols), uint16(rows))
	if err != nil {
		return err
	}
	defer func() {
		if e := guard.Release(); e != nil {
			c.logger.Warning().
				Str("scenario", s.Name).
				Err(e).
				Log("failed to release terminal")
		}
	}()

	h, err := guard.Harness(append(c.harnessOptions(diag), s.HarnessOptions()...)...)
	if err != nil {
		return err
	}

	c.logger.Info().
		Str("scenario", s.Name).
		Str("terminal", string(guard.ID())).
		Log("running scenario")

	return s.Run(ctx, h)
}

// report writes one line per scenario, with diagnostics for failures, and
// returns the number of failures.
func report(w io.Writer, scenarios []*scenario.Scenario, results []*scenarioResult, verbose bool) (failed int) {
	for i, s := range scenarios {
		r := results[i]
		elapsed := r.elapsed.Round(time.Millisecond)
		if r.err == nil {
			fmt.Fprintf(w, "PASS %s (%s)\n", s.Name, elapsed)
		} else {
			failed++
			fmt.Fprintf(w, "FAIL %s (%s): %v\n", s.Name, elapsed, r.err)
		}
		if (r.err != nil || verbose) && r.diagnostics.Len() != 0 {
			_, _ = r.diagnostics.WriteTo(w)
		}
	}
	return failed
}
