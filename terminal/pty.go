//go:build unix

package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// ptyOps collects platform and system call operations used by ptyMaster.
// Using an ops struct allows tests to inject mocks per-instance instead of
// mutating package globals.
type ptyOps struct {
	setNonblock  func(int, bool) error
	read         func(int, []byte) (int, error)
	write        func(int, []byte) (int, error)
	initPoller   func(*ptyMaster) error
	waitForRead  func(*ptyMaster, time.Duration) (bool, error)
	waitForWrite func(*ptyMaster, time.Duration) (bool, error)
	pipe         func([]int) error
	closeFD      func(int) error

	// platform-specific primitives used by the poller implementations

	//lint:ignore U1000 Unused depending on env.
	kqueue func() (int, error)
	//lint:ignore U1000 Unused depending on env.
	kevent func(int, []ptyOpsUnixKevent_t, []ptyOpsUnixKevent_t, *unix.Timespec) (int, error)

	//lint:ignore U1000 Unused depending on env.
	epollCreate1 func(int) (int, error)
	//lint:ignore U1000 Unused depending on env.
	epollCtl func(int, int, int, *ptyOpsEpollEvent_t) error
	//lint:ignore U1000 Unused depending on env.
	epollWait func(int, []ptyOpsEpollEvent_t, int) (int, error)

	//lint:ignore U1000 Unused depending on env.
	poll func([]unix.PollFd, int) (int, error)
}

func newPTYOps() *ptyOps {
	x := ptyOps{
		setNonblock:  syscall.SetNonblock,
		read:         unix.Read,
		write:        unix.Write,
		initPoller:   func(m *ptyMaster) error { return m.initPoller() },
		waitForRead:  func(m *ptyMaster, d time.Duration) (bool, error) { return m.waitForRead(d) },
		waitForWrite: func(m *ptyMaster, d time.Duration) (bool, error) { return m.waitForWrite(d) },
		pipe:         unix.Pipe,
		closeFD:      unix.Close,
		poll:         unix.Poll,
	}
	x.init()
	return &x
}

// ptyMaster performs bounded, non-blocking I/O on the master side of a pty.
// Reads wait on a platform poller (epoll, kqueue, or poll), which Close wakes
// via a self-pipe.
type ptyMaster struct {
	file      *os.File
	ops       *ptyOps
	fd        int
	pollFD    int
	wakeR     int
	wakeW     int
	mu        sync.Mutex
	closeOnce sync.Once
	closed    bool
}

func newPTYMaster(file *os.File) *ptyMaster {
	return &ptyMaster{
		file:   file,
		fd:     -1,
		pollFD: -1,
		wakeR:  -1,
		wakeW:  -1,
		ops:    newPTYOps(),
	}
}

func (m *ptyMaster) Open() error {
	if m.file == nil {
		return fmt.Errorf("ptyMaster has no file")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Fd puts the file into blocking mode, so it must precede SetNonblock
	m.fd = int(m.file.Fd())

	if err := m.ops.setNonblock(m.fd, true); err != nil {
		return fmt.Errorf("failed to set non-blocking mode: %w", err)
	}
	if err := m.ops.initPoller(m); err != nil {
		return fmt.Errorf("failed to init poller: %w", err)
	}
	return nil
}

func (m *ptyMaster) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.wakeW >= 0 {
			_, _ = unix.Write(m.wakeW, []byte("x"))
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		m.closed = true
		if m.file != nil {
			err = m.file.Close()
			_ = m.closePoller()
			m.file = nil
			m.fd = -1
		}
	})
	return err
}

// Read reads available output, waiting at most timeout for some to arrive.
// No data within the budget, or an interrupted system call, is reported as
// (0, nil). Once the slave side has hung up, Read returns io.EOF.
func (m *ptyMaster) Read(p []byte, timeout time.Duration) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		if m.closed || m.fd < 0 {
			m.mu.Unlock()
			return 0, io.EOF
		}
		n, err := m.ops.read(m.fd, p)
		m.mu.Unlock()

		switch {
		case n > 0:
			return n, nil
		case err == nil:
			return 0, io.EOF
		case errors.Is(err, syscall.EINTR):
			return 0, nil
		case errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK):
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return 0, nil
			}
			if _, err := m.ops.waitForRead(m, remaining); err != nil {
				if m.isClosed() {
					return 0, io.EOF
				}
				return 0, err
			}
		case m.shouldInterpretAsEOF(err):
			return 0, io.EOF
		default:
			return 0, err
		}
	}
}

// Write performs a single successful write, retrying interrupted calls, and
// waiting up to timeout for the pty to accept data.
func (m *ptyMaster) Write(p []byte, timeout time.Duration) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		if m.closed || m.fd < 0 {
			m.mu.Unlock()
			return 0, ErrClosed
		}
		n, err := m.ops.write(m.fd, p)
		m.mu.Unlock()

		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, syscall.EINTR):
			continue
		case errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK):
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return max(n, 0), &TimeoutError{Op: "pty write", Timeout: timeout}
			}
			if _, err := m.ops.waitForWrite(m, remaining); err != nil {
				return 0, err
			}
		default:
			return max(n, 0), err
		}
	}
}

func (m *ptyMaster) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// waitForWrite blocks until the fd is writable, or the timeout elapses.
func (m *ptyMaster) waitForWrite(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLOUT}}
	n, err := m.ops.poll(fds, timeoutMillis(timeout))
	if err != nil {
		if errors.Is(err, syscall.EINTR) {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}

// timeoutMillis converts d to a poll timeout, rounding up so a short
// positive remainder does not become a busy loop.
func timeoutMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

// openPTY allocates a pty pair at the given size, applying termios settings
// to the slave.
func openPTY(cols, rows uint16, echo bool) (ptm, pts *os.File, err error) {
	ptm, pts, err = pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pty: %w", err)
	}
	if err := pty.Setsize(ptm, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		_ = ptm.Close()
		_ = pts.Close()
		return nil, nil, fmt.Errorf("failed to set pty size: %w", err)
	}
	if !echo {
		if err := setEcho(pts, false); err != nil {
			_ = ptm.Close()
			_ = pts.Close()
			return nil, nil, err
		}
	}
	return ptm, pts, nil
}

func setEcho(tty *os.File, enabled bool) error {
	fd := tty.Fd()
	attrs, err := termios.Tcgetattr(fd)
	if err != nil {
		return fmt.Errorf("failed to get terminal attributes: %w", err)
	}
	if enabled {
		attrs.Lflag |= unix.ECHO
	} else {
		attrs.Lflag &^= unix.ECHO
	}
	if err := termios.Tcsetattr(fd, termios.TCSANOW, attrs); err != nil {
		return fmt.Errorf("failed to set terminal attributes: %w", err)
	}
	return nil
}

// SetSize sets the window size via the stored fd. It must not go through
// pty.Setsize, since (*os.File).Fd would put the master back into blocking
// mode.
func (m *ptyMaster) SetSize(cols, rows uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.fd < 0 {
		return ErrClosed
	}
	return unix.IoctlSetWinsize(m.fd, unix.TIOCSWINSZ, &unix.Winsize{Row: rows, Col: cols})
}

// attachCommand connects cmd to the slave side, as a session leader with
// the pty as its controlling terminal.
func attachCommand(cmd *exec.Cmd, pts *os.File) {
	cmd.Stdin = pts
	cmd.Stdout = pts
	cmd.Stderr = pts
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setctty = true
	// Ctty is a descriptor in the child, and stdin is the pty
	cmd.SysProcAttr.Ctty = 0
}

// signalProcess signals the process group led by cmd (the process is a
// session leader), falling back to the process alone.
func signalProcess(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return ErrNoProcess
	}
	if err := unix.Kill(-cmd.Process.Pid, sig); err == nil {
		return nil
	}
	return cmd.Process.Signal(sig)
}
