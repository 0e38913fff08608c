//go:build unix && !linux && !darwin

package terminal

import (
	"errors"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type ptyOpsUnixKevent_t = any
type ptyOpsEpollEvent_t = any

func (x *ptyOps) init() {}

// initPoller creates the wake pipe. Readiness is checked with poll(2), so
// there is no persistent poller descriptor.
func (m *ptyMaster) initPoller() error {
	var fds [2]int
	if err := m.ops.pipe(fds[:]); err != nil {
		return err
	}
	m.wakeR = fds[0]
	m.wakeW = fds[1]
	return nil
}

func (m *ptyMaster) closePoller() error {
	var errs []error
	for _, fd := range [...]*int{&m.wakeR, &m.wakeW} {
		if *fd >= 0 {
			if err := m.ops.closeFD(*fd); err != nil {
				errs = append(errs, err)
			}
			*fd = -1
		}
	}
	return errors.Join(errs...)
}

func (m *ptyMaster) waitForRead(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{
		{Fd: int32(m.fd), Events: unix.POLLIN},
		{Fd: int32(m.wakeR), Events: unix.POLLIN},
	}
	if _, err := m.ops.poll(fds, timeoutMillis(timeout)); err != nil {
		if errors.Is(err, syscall.EINTR) {
			return false, nil
		}
		return false, err
	}
	if fds[1].Revents != 0 {
		var buf [128]byte
		_, _ = m.ops.read(m.wakeR, buf[:])
	}
	return fds[0].Revents != 0, nil
}

func (m *ptyMaster) shouldInterpretAsEOF(err error) bool {
	return errors.Is(err, syscall.EIO)
}
