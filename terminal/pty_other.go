//go:build !unix

package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// ptyMaster is unavailable on this platform, and exists so the package
// compiles.
type ptyMaster struct {
	file *os.File
}

func newPTYMaster(file *os.File) *ptyMaster { return &ptyMaster{file: file} }

func (m *ptyMaster) Open() error { return errors.ErrUnsupported }

func (m *ptyMaster) Close() error {
	if m.file == nil {
		return nil
	}
	return m.file.Close()
}

func (m *ptyMaster) Read([]byte, time.Duration) (int, error) { return 0, errors.ErrUnsupported }

func (m *ptyMaster) Write([]byte, time.Duration) (int, error) { return 0, errors.ErrUnsupported }

func openPTY(uint16, uint16, bool) (*os.File, *os.File, error) {
	return nil, nil, fmt.Errorf("failed to open pty: %w", errors.ErrUnsupported)
}

func (m *ptyMaster) SetSize(uint16, uint16) error { return errors.ErrUnsupported }

func attachCommand(*exec.Cmd, *os.File) {}

func signalProcess(cmd *exec.Cmd, _ syscall.Signal) error {
	if cmd.Process == nil {
		return ErrNoProcess
	}
	return cmd.Process.Kill()
}
