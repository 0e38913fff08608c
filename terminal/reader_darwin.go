//go:build darwin

package terminal

import (
	"errors"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type ptyOpsUnixKevent_t = unix.Kevent_t
type ptyOpsEpollEvent_t = any

func (x *ptyOps) init() {
	x.kqueue = unix.Kqueue
	x.kevent = unix.Kevent
}

// initPoller initializes a kqueue poller for the pty master.
func (m *ptyMaster) initPoller() error {
	kq, err := m.ops.kqueue()
	if err != nil {
		return err
	}
	m.pollFD = kq

	// Create wake pipe to reliably wake the kqueue waiter across threads
	var fds [2]int
	if err := m.ops.pipe(fds[:]); err != nil {
		_ = m.ops.closeFD(m.pollFD)
		m.pollFD = -1
		return err
	}
	m.wakeR = fds[0]
	m.wakeW = fds[1]

	// Register the pty master and the wake pipe read end
	events := []unix.Kevent_t{
		{
			Ident:  uint64(m.fd),
			Filter: unix.EVFILT_READ,
			Flags:  unix.EV_ADD | unix.EV_ENABLE,
		},
		{
			Ident:  uint64(m.wakeR),
			Filter: unix.EVFILT_READ,
			Flags:  unix.EV_ADD | unix.EV_ENABLE,
		},
	}
	if _, err := m.ops.kevent(m.pollFD, events, nil, nil); err != nil {
		_ = m.closePoller()
		return err
	}
	return nil
}

// closePoller closes the kqueue fd and wake pipe.
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
// the timeout elapses.
func (m *ptyMaster) waitForRead(timeout time.Duration) (bool, error) {
	var events [2]unix.Kevent_t
	ts := unix.NsecToTimespec(int64(max(timeout, 0)))
	n, err := m.ops.kevent(m.pollFD, nil, events[:], &ts)
	if err != nil {
		// Interrupted system call is not a fatal error
		if errors.Is(err, syscall.EINTR) {
			return false, nil
		}
		return false, err
	}

	var ready bool
	for i := 0; i < n; i++ {
		switch int(events[i].Ident) {
		case m.wakeR:
			var buf [128]byte
			_, _ = m.ops.read(m.wakeR, buf[:])
		case m.fd:
			ready = true
		}
	}
	return ready, nil
}

// shouldInterpretAsEOF determines if a specific read error should be treated as EOF on Darwin.
// On macOS, reading from a master PTY often returns EIO when the slave side is closed.
func (m *ptyMaster) shouldInterpretAsEOF(err error) bool {
	return errors.Is(err, syscall.EIO)
}
