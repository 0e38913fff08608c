package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"sync"
	"syscall"
	"time"
)

const (
	// killReapTimeout bounds the wait for a SIGKILLed process to be reaped.
	killReapTimeout = time.Second
	// drainReadTimeout is the per-read budget used by Drain.
	drainReadTimeout = 10 * time.Millisecond
	// drainMaxDuration caps Drain, for children that never stop writing.
	drainMaxDuration = time.Second
)

// Terminal is a pseudo-terminal pair plus at most one child process attached
// to the slave side. Output is read from the master with bounded,
// non-blocking reads, so callers never hang on a quiet child.
//
// Both ends of the pty stay open for the lifetime of the Terminal, which
// allows a sequence of processes to be spawned on the same pty. Process exit
// is therefore observed by reaping, not by end of file.
//
// A Terminal is safe for concurrent use, though reads and writes are
// normally driven by a single owner.
type Terminal struct {
	cfg       *config
	pts       *os.File
	master    *ptyMaster
	proc      *process
	closeOnce sync.Once
	closeErr  error
	mu        sync.Mutex
	width     uint16
	height    uint16
	closed    bool
}

// ExitStatus describes how a child process terminated.
type ExitStatus struct {
	// Code is the exit code, or -1 if the process was killed by a signal.
	Code int
	// Signal is the terminating signal, valid if Signaled is set.
	Signal   syscall.Signal
	Signaled bool
}

// Success reports whether the process exited normally with code 0.
func (s ExitStatus) Success() bool { return !s.Signaled && s.Code == 0 }

func (s ExitStatus) String() string {
	if s.Signaled {
		return "signal: " + s.Signal.String()
	}
	return "exit status " + strconv.Itoa(s.Code)
}

// process tracks a started command. The wait goroutine owns cmd.Wait, and
// the results are published by closing exitCh.
type process struct {
	cmd    *exec.Cmd
	exitCh chan struct{}
	state  *os.ProcessState
	err    error
}

func (p *process) wait() {
	err := p.cmd.Wait()
	p.state = p.cmd.ProcessState
	p.err = err
	close(p.exitCh)
}

func (p *process) exited() bool {
	select {
	case <-p.exitCh:
		return true
	default:
		return false
	}
}

// status must only be called after exitCh is closed.
func (p *process) status() (ExitStatus, error) {
	if p.state == nil {
		return ExitStatus{Code: -1}, fmt.Errorf("failed to wait for process: %w", p.err)
	}
	status := ExitStatus{Code: p.state.ExitCode()}
	if ws, ok := p.state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signaled = true
		status.Signal = ws.Signal()
	}
	return status, nil
}

// New allocates a pty of the given size. No process is started.
func New(width, height uint16, opts ...Option) (*Terminal, error) {
	if width == 0 || height == 0 {
		return nil, &DimensionError{Width: width, Height: height}
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	ptm, pts, err := openPTY(width, height, !cfg.noEcho)
	if err != nil {
		return nil, err
	}

	master := newPTYMaster(ptm)
	if err := master.Open(); err != nil {
		_ = ptm.Close()
		_ = pts.Close()
		return nil, fmt.Errorf("failed to open pty master: %w", err)
	}

	cfg.logger.Debug().
		Int("width", int(width)).
		Int("height", int(height)).
		Str("tty", pts.Name()).
		Log("opened terminal")

	return &Terminal{
		cfg:    cfg,
		pts:    pts,
		master: master,
		width:  width,
		height: height,
	}, nil
}

// Spawn starts cmd with the pty as its controlling terminal and standard
// streams. TERM, COLUMNS and LINES are set from the terminal, followed by any
// WithEnv entries. A previous process that has already exited is detached
// automatically, otherwise ErrProcessRunning is returned.
func (t *Terminal) Spawn(cmd *exec.Cmd) error {
	if cmd == nil {
		return errors.New("failed to spawn: nil command")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.proc != nil {
		if !t.proc.exited() {
			return ErrProcessRunning
		}
		t.proc = nil
	}

	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	env = append(slices.Clip(env),
		"TERM="+t.cfg.termName,
		"COLUMNS="+strconv.Itoa(int(t.width)),
		"LINES="+strconv.Itoa(int(t.height)),
	)
	cmd.Env = append(env, t.cfg.env...)
	attachCommand(cmd, t.pts)

	if err := cmd.Start(); err != nil {
		t.cfg.logger.Err().
			Err(err).
			Str("path", cmd.Path).
			Log("failed to spawn process")
		return &SpawnError{Path: cmd.Path, Err: err}
	}

	p := &process{cmd: cmd, exitCh: make(chan struct{})}
	go p.wait()
	t.proc = p

	t.cfg.logger.Debug().
		Int("pid", cmd.Process.Pid).
		Str("path", cmd.Path).
		Log("spawned process")

	return nil
}

// Read reads available output, waiting at most the configured read timeout.
// A return of (0, nil) means no output arrived within the budget.
func (t *Terminal) Read(p []byte) (int, error) {
	return t.ReadTimeout(p, t.cfg.readTimeout)
}

// ReadTimeout is Read with an explicit budget.
func (t *Terminal) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	master, err := t.getMaster()
	if err != nil {
		return 0, err
	}
	n, err := master.Read(p, timeout)
	if n > 0 {
		t.cfg.logger.Trace().
			Int("bytes", n).
			Log("read from pty")
	}
	return n, err
}

// ReadAll collects output until a read yields nothing, or timeout elapses.
func (t *Terminal) ReadAll(timeout time.Duration) ([]byte, error) {
	var (
		out      []byte
		buf      = make([]byte, 4096)
		deadline = time.Now().Add(timeout)
	)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return out, nil
		}
		n, err := t.ReadTimeout(buf, remaining)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}

// Write performs a single write to the pty, which may be partial.
func (t *Terminal) Write(p []byte) (int, error) {
	master, err := t.getMaster()
	if err != nil {
		return 0, err
	}
	return master.Write(p, t.cfg.writeTimeout)
}

// WriteString is Write for strings.
func (t *Terminal) WriteString(s string) (int, error) {
	return t.Write([]byte(s))
}

// WriteAll writes every byte of p, or returns an error.
func (t *Terminal) WriteAll(p []byte) error {
	for len(p) > 0 {
		n, err := t.Write(p)
		if err != nil {
			return fmt.Errorf("failed to write to pty: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// Resize changes the pty window size. The kernel delivers SIGWINCH to the
// foreground process group of the child.
func (t *Terminal) Resize(width, height uint16) error {
	if width == 0 || height == 0 {
		return &DimensionError{Width: width, Height: height}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if err := t.master.SetSize(width, height); err != nil {
		return fmt.Errorf("failed to resize pty: %w", err)
	}
	t.width, t.height = width, height

	t.cfg.logger.Debug().
		Int("width", int(width)).
		Int("height", int(height)).
		Log("resized terminal")

	return nil
}

// Size returns the current window size, as (width, height).
func (t *Terminal) Size() (uint16, uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// Pid returns the pid of the attached process, or 0 if there is none.
func (t *Terminal) Pid() int {
	p := t.getProcess()
	if p == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// HasProcess reports whether a process is attached, running or not.
func (t *Terminal) HasProcess() bool {
	return t.getProcess() != nil
}

// IsRunning reports whether the attached process has not yet exited.
func (t *Terminal) IsRunning() bool {
	p := t.getProcess()
	return p != nil && !p.exited()
}

// Exited reports whether a process is attached and has exited.
func (t *Terminal) Exited() bool {
	p := t.getProcess()
	return p != nil && p.exited()
}

// Wait blocks until the attached process exits.
func (t *Terminal) Wait() (ExitStatus, error) {
	p := t.getProcess()
	if p == nil {
		return ExitStatus{}, ErrNoProcess
	}
	<-p.exitCh
	return p.status()
}

// WaitTimeout is Wait, failing with a *TimeoutError after timeout.
func (t *Terminal) WaitTimeout(timeout time.Duration) (ExitStatus, error) {
	p := t.getProcess()
	if p == nil {
		return ExitStatus{}, ErrNoProcess
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.exitCh:
		return p.status()
	case <-timer.C:
		return ExitStatus{}, &TimeoutError{Op: "process exit", Timeout: timeout}
	}
}

// Kill terminates the attached process (SIGTERM, then SIGKILL after the kill
// grace period), reaps it, and detaches it from the terminal. An already
// exited process is simply detached.
func (t *Terminal) Kill() error {
	p := t.getProcess()
	if p == nil {
		return ErrNoProcess
	}

	if !p.exited() {
		pid := p.cmd.Process.Pid
		t.cfg.logger.Debug().
			Int("pid", pid).
			Log("terminating process")

		if err := signalProcess(p.cmd, syscall.SIGTERM); err != nil && !p.exited() {
			t.cfg.logger.Debug().
				Err(err).
				Int("pid", pid).
				Log("failed to send SIGTERM")
		}

		grace := time.NewTimer(t.cfg.killGrace)
		select {
		case <-p.exitCh:
		case <-grace.C:
			_ = signalProcess(p.cmd, syscall.SIGKILL)
			reap := time.NewTimer(killReapTimeout)
			select {
			case <-p.exitCh:
			case <-reap.C:
				t.cfg.logger.Warning().
					Int("pid", pid).
					Log("process not reaped after SIGKILL")
			}
			reap.Stop()
		}
		grace.Stop()
	}

	t.mu.Lock()
	if t.proc == p {
		t.proc = nil
	}
	t.mu.Unlock()

	return nil
}

// Drain discards pending output, ready for the pty to be reused.
func (t *Terminal) Drain() error {
	buf := make([]byte, 4096)
	deadline := time.Now().Add(drainMaxDuration)
	for time.Now().Before(deadline) {
		n, err := t.ReadTimeout(buf, drainReadTimeout)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

// Close kills any attached process, then releases the pty.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		if err := t.Kill(); err != nil && !errors.Is(err, ErrNoProcess) {
			t.closeErr = err
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		t.closed = true

		var errs []error
		if t.closeErr != nil {
			errs = append(errs, t.closeErr)
		}
		if err := t.master.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close pty master: %w", err))
		}
		if err := t.pts.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close pty slave: %w", err))
		}
		t.closeErr = errors.Join(errs...)

		t.cfg.logger.Debug().Log("closed terminal")
	})
	return t.closeErr
}

func (t *Terminal) getMaster() (*ptyMaster, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	return t.master, nil
}

func (t *Terminal) getProcess() *process {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.proc
}
