package main

import (
	"io"

	"github.com/joeycumines/go-tuitest/harness"
	"github.com/joeycumines/go-tuitest/internal/config"
	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"
)

// cli is the state shared by every command, populated before any command
// runs.
type cli struct {
	logger *logiface.Logger[logiface.Event]
	cfg    config.Config
}

func newRootCommand() *cobra.Command {
	c := new(cli)
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "tuitest",
		Short: "tuitest runs terminal programs in a pseudo-terminal and checks what they draw",
		Long: `tuitest spawns programs attached to a pseudo-terminal, feeds their output
through a VT100 screen model, and waits on or asserts against the result.

Configuration is read from defaults, the --config file, TUITEST_ environment
variables (e.g. TUITEST_TERMINAL_COLS), and flags, in increasing order of
precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c.cfg, c.logger = cfg, logger
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.String("log-level", "warning", "log level (trace, debug, info, notice, warning, error, disabled)")
	flags.Int("cols", 80, "terminal width in columns")
	flags.Int("rows", 24, "terminal height in rows")
	flags.Duration("timeout", harness.DefaultTimeout, "default wait timeout")
	flags.Duration("poll-interval", harness.DefaultPollInterval, "interval between screen checks while waiting")

	rootCmd.AddCommand(
		newExecCommand(c),
		newRunCommand(c),
		newVersionCommand(),
	)
	return rootCmd
}

// harnessOptions returns the options every harness gets, diagnostics
// written to diag.
func (c *cli) harnessOptions(diag io.Writer) []harness.Option {
	return []harness.Option{
		harness.WithTimeout(c.cfg.Wait.Timeout),
		harness.WithPollInterval(c.cfg.Wait.PollInterval),
		harness.WithLogger(c.logger),
		harness.WithDiagnostics(diag),
	}
}
