//go:build unix

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/go-tuitest/terminal"
	"github.com/joeycumines/go-tuitest/vt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "tuitest version "), out)
}

func TestRoot_ConfigError(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	_, _, err = execute(t, "--cols", "0", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid terminal size 0x24")
}

func TestExec(t *testing.T) {
	out, _, err := execute(t, "--cols", "40", "--rows", "5", "exec", "--", "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "--- screen 40x5 ---\nhello\n--- cursor (0, 5) ---\n--- graphics: none ---\n", out)
}

func TestExec_Failure(t *testing.T) {
	out, _, err := execute(t, "exec", "--", "sh", "-c", "echo oops; exit 2")
	require.Error(t, err)
	assert.Equal(t, "command failed: exit status 2", err.Error())
	assert.Contains(t, out, "\noops\n")
}

func TestExec_WaitFor(t *testing.T) {
	out, _, err := execute(t, "exec", "--wait-for", "ready", "--", "sh", "-c", "echo ready; sleep 5")
	require.NoError(t, err)
	assert.Contains(t, out, "\nready\n")
	assert.Contains(t, out, "--- cursor (1, 0) ---\n")
}

func TestExec_WaitForTimeout(t *testing.T) {
	_, stderr, err := execute(t, "--timeout", "200ms", "exec", "--wait-for", "nope", "--", "sh", "-c", "echo yes; sleep 5")
	require.Error(t, err)
	assert.ErrorIs(t, err, terminal.ErrTimeout)
	assert.Contains(t, stderr, `Timeout waiting for: text "nope"`)
	assert.Contains(t, stderr, "yes")
}

func TestExec_Color(t *testing.T) {
	out, _, err := execute(t, "exec", "--color", "always", "--", "sh", "-c", `printf '\033[31mred\033[0m plain'`)
	require.NoError(t, err)
	assert.Contains(t, out, "\n\x1b[31mred\x1b[0m plain\n")

	_, _, err = execute(t, "exec", "--color", "sometimes", "--", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid color mode: "sometimes"`)
}

func TestExec_SpawnFailure(t *testing.T) {
	_, _, err := execute(t, "exec", "--", "/nonexistent/tuitest-binary")
	var spawnErr *terminal.SpawnError
	assert.ErrorAs(t, err, &spawnErr)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	pass := writeFile(t, dir, "greeting.yaml", `
name: greeting
command: [sh, -c, 'echo hi; read x; echo "got $x"']
size: {cols: 40, rows: 10}
steps:
  - wait_text: hi
  - send_text: "yo\n"
  - wait_text: got yo
  - wait_exit: {code: 0}
`)
	fail := writeFile(t, dir, "broken.yaml", `
command: [sh, -c, 'echo nope; sleep 5']
timeout: 200ms
steps:
  - wait_text: never
`)
	metrics := filepath.Join(dir, "metrics.prom")

	out, _, err := execute(t, "run", "--parallel", "2", "--metrics", metrics, pass, fail)
	require.Error(t, err)
	assert.ErrorIs(t, err, errScenariosFailed)
	assert.Equal(t, "scenarios failed: 1 of 2", err.Error())

	assert.Regexp(t, `(?m)^PASS greeting \([0-9.]+m?s\)$`, out)
	assert.Regexp(t, `(?m)^FAIL broken \([0-9.]+m?s\): step 1 \(wait_text "never"\): `, out)
	assert.Contains(t, out, `Timeout waiting for: text "never"`)
	assert.Less(t, strings.Index(out, "PASS greeting"), strings.Index(out, "FAIL broken"))

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tuitest_pool_acquisitions_total")
	assert.Contains(t, string(data), "tuitest_pool_releases_total 2")
}

func TestRun_AllPass(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.yaml", "b.yaml", "c.yaml"} {
		paths = append(paths, writeFile(t, dir, name, "command: [sh, -c, 'echo done']\nsteps:\n  - wait_text: done\n"))
	}
	out, _, err := execute(t, append([]string{"run", "--parallel", "1"}, paths...)...)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "PASS "))
}

func TestRun_LoadError(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScreenPrinter(t *testing.T) {
	screen := vt.MustNew(10, 4)
	_, _ = screen.WriteString("\x1b[44m  \x1b[0mab\r\n\x1b[1mB\x1b[0m")

	var plain bytes.Buffer
	require.NoError(t, newScreenPrinter(&plain, colorNever).Print(screen))
	assert.Equal(t, "--- screen 10x4 ---\n  ab\nB\n--- cursor (1, 1) ---\n--- graphics: none ---\n", plain.String())

	var colored bytes.Buffer
	require.NoError(t, newScreenPrinter(&colored, colorAlways).Print(screen))
	assert.Contains(t, colored.String(), "\n\x1b[44m  \x1b[0mab\n\x1b[1mB\x1b[0m\n")

	// a buffer is never a terminal
	var auto bytes.Buffer
	require.NoError(t, newScreenPrinter(&auto, colorAuto).Print(screen))
	assert.Equal(t, plain.String(), auto.String())
}

func TestScreenPrinter_Graphics(t *testing.T) {
	screen := vt.MustNew(20, 10)
	_, _ = screen.WriteString("\x1b[3;4H\x1bPq\"1;1;16;12#0~\x1b\\")

	var out bytes.Buffer
	require.NoError(t, newScreenPrinter(&out, colorNever).Print(screen))
	assert.Contains(t, out.String(), "--- graphics: 1 ---\nSixel at (2, 3), bounds (2, 3, 2, 2), 16x12 px\n")
}
