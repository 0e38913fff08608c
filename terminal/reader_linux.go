//go:build linux

package terminal

import (
	"errors"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type ptyOpsUnixKevent_t = any
type ptyOpsEpollEvent_t = unix.EpollEvent

func (x *ptyOps) init() {
	x.epollCreate1 = unix.EpollCreate1
	x.epollCtl = unix.EpollCtl
	x.epollWait = unix.EpollWait
}

// initPoller initializes an epoll poller for the pty master.
func (m *ptyMaster) initPoller() error {
	epfd, err := m.ops.epollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	m.pollFD = epfd

	// Create a wake pipe for reliable cross-thread wakeups
	var fds [2]int
	if err := m.ops.pipe(fds[:]); err != nil {
		_ = m.ops.closeFD(m.pollFD)
		m.pollFD = -1
		return err
	}
	m.wakeR = fds[0]
	m.wakeW = fds[1]

	for _, fd := range [...]int{m.fd, m.wakeR} {
		event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := m.ops.epollCtl(m.pollFD, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			_ = m.closePoller()
			return err
		}
	}
	return nil
}

// closePoller closes the epoll fd and wake pipe.
func (m *ptyMaster) closePoller() error {
	var errs []error
	for _, fd := range [...]*int{&m.pollFD, &m.wakeR, &m.wakeW} {
		if *fd >= 0 {
			if err := m.ops.closeFD(*fd); err != nil {
				errs = append(errs, err)
			}
			*fd = -1
		}
	}
	return errors.Join(errs...)
}

// waitForRead blocks until the master is readable, a wake event occurs, or
// the timeout elapses. A hangup is reported as readable, so the following
// read observes it.
func (m *ptyMaster) waitForRead(timeout time.Duration) (bool, error) {
	var events [2]unix.EpollEvent
	n, err := m.ops.epollWait(m.pollFD, events[:], timeoutMillis(timeout))
	if err != nil {
		// Interrupted system call is not a fatal error
		if errors.Is(err, syscall.EINTR) {
			return false, nil
		}
		return false, err
	}

	var ready bool
	for i := 0; i < n; i++ {
		switch int(events[i].Fd) {
		case m.wakeR:
			var buf [128]byte
			_, _ = m.ops.read(m.wakeR, buf[:])
		case m.fd:
			ready = true
		}
	}
	return ready, nil
}

// shouldInterpretAsEOF determines if a specific read error should be treated as EOF on Linux.
// Reading from a master pty returns EIO once every slave descriptor is closed.
func (m *ptyMaster) shouldInterpretAsEOF(err error) bool {
	return errors.Is(err, syscall.EIO)
}
