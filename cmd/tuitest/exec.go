package main

import (
	"fmt"
	"os/exec"

	"github.com/joeycumines/go-tuitest/harness"
	"github.com/joeycumines/go-tuitest/terminal"
	"github.com/spf13/cobra"
)

func newExecCommand(c *cli) *cobra.Command {
	var (
		waitFor string
		color   string
	)
	cmd := &cobra.Command{
		Use:   "exec [flags] -- command [args...]",
		Short: "Run a command in a pseudo-terminal and print the resulting screen",
		Long: `Run a command in a pseudo-terminal, wait for it to exit (or, with --wait-for,
for text to appear), then print the screen, the cursor position, and any
inline graphics.

The command fails if the wait fails, or if the process exits unsuccessfully.`,
		Example: `  tuitest exec -- ls --color=always
  tuitest exec --cols 120 --wait-for '$ ' -- bash --norc`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseColorMode(color)
			if err != nil {
				return err
			}
			return c.exec(cmd, args, waitFor, mode)
		},
	}
	cmd.Flags().StringVar(&waitFor, "wait-for", "", "print the screen once this text appears, instead of on exit")
	cmd.Flags().StringVar(&color, "color", "auto", "color the screen dump (auto, always, never)")
	return cmd
}

func (c *cli) exec(cmd *cobra.Command, args []string, waitFor string, mode colorMode) error {
	opts := append(
		c.harnessOptions(cmd.ErrOrStderr()),
		harness.WithSize(uint16(c.cfg.Terminal.Cols), uint16(c.cfg.Terminal.Rows)),
		harness.WithTerminalOptions(terminal.WithTermName(c.cfg.Terminal.Term)),
	)
	h, err := harness.New(opts...)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Spawn(exec.CommandContext(cmd.Context(), args[0], args[1:]...)); err != nil {
		return err
	}
	c.logger.Debug().
		Str("command", args[0]).
		Int("pid", h.Terminal().Pid()).
		Log("spawned")

	var runErr error
	if waitFor != "" {
		runErr = h.WaitForText(waitFor)
	} else if status, err := h.WaitExit(c.cfg.Wait.Timeout); err != nil {
		runErr = err
	} else if !status.Success() {
		runErr = fmt.Errorf("command failed: %s", status)
	}

	out := cmd.OutOrStdout()
	if err := newScreenPrinter(out, mode).Print(h.Screen()); err != nil {
		return err
	}
	return runErr
}
