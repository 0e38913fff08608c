//go:build linux

package terminal

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPTYMaster_InitCloseWaitAndEOFInterpretation(t *testing.T) {
	ptm, pts, err := pty.Open()
	require.NoError(t, err)
	defer pts.Close()

	m := newPTYMaster(ptm)
	require.NoError(t, m.Open())
	require.GreaterOrEqual(t, m.pollFD, 0)
	require.GreaterOrEqual(t, m.wakeR, 0)
	require.GreaterOrEqual(t, m.wakeW, 0)

	// nothing written, so the wait times out
	ready, err := m.waitForRead(10 * time.Millisecond)
	require.NoError(t, err)
	require.False(t, ready)

	// a wake event is consumed without reporting readiness
	_, err = unix.Write(m.wakeW, []byte("x"))
	require.NoError(t, err)
	ready, err = m.waitForRead(time.Second)
	require.NoError(t, err)
	require.False(t, ready)

	_, err = pts.Write([]byte("data"))
	require.NoError(t, err)
	ready, err = m.waitForRead(time.Second)
	require.NoError(t, err)
	require.True(t, ready)

	require.True(t, m.shouldInterpretAsEOF(syscall.EIO))
	require.False(t, m.shouldInterpretAsEOF(syscall.EINVAL))

	require.NoError(t, m.Close())
}

func TestLinuxPoller_ErrorBranches(t *testing.T) {
	t.Run("initPoller EpollCreate1 error", func(t *testing.T) {
		sentinel := errors.New("epoll create failed")
		ops := newPTYOps()
		ops.epollCreate1 = func(int) (int, error) { return -1, sentinel }
		m := &ptyMaster{fd: 123, pollFD: -1, wakeR: -1, wakeW: -1, ops: ops}
		err := m.initPoller()
		require.ErrorIs(t, err, sentinel)
	})

	t.Run("initPoller pipe error closes epoll fd", func(t *testing.T) {
		sentinel := errors.New("pipe failed")
		ops := newPTYOps()
		ops.epollCreate1 = func(int) (int, error) { return 42, nil }
		ops.pipe = func([]int) error { return sentinel }
		closeCalls := 0
		ops.closeFD = func(fd int) error {
			if fd == 42 {
				closeCalls++
			}
			return nil
		}
		m := &ptyMaster{fd: 7, pollFD: -1, wakeR: -1, wakeW: -1, ops: ops}
		err := m.initPoller()
		require.ErrorIs(t, err, sentinel)
		require.Equal(t, 1, closeCalls)
		require.Equal(t, -1, m.pollFD)
	})

	for _, failOn := range []int{1, 2} {
		t.Run("initPoller EpollCtl error cleans up", func(t *testing.T) {
			sentinel := errors.New("epoll ctl failed")
			ops := newPTYOps()
			ops.epollCreate1 = func(int) (int, error) { return 10, nil }
			ops.pipe = func(fds []int) error { fds[0], fds[1] = 11, 12; return nil }
			calls := 0
			ops.epollCtl = func(int, int, int, *unix.EpollEvent) error {
				calls++
				if calls == failOn {
					return sentinel
				}
				return nil
			}
			closed := make(map[int]bool)
			ops.closeFD = func(fd int) error {
				closed[fd] = true
				return nil
			}
			m := &ptyMaster{fd: 9, pollFD: -1, wakeR: -1, wakeW: -1, ops: ops}
			err := m.initPoller()
			require.ErrorIs(t, err, sentinel)
			require.Equal(t, -1, m.pollFD)
			require.Equal(t, -1, m.wakeR)
			require.Equal(t, -1, m.wakeW)
			require.True(t, closed[10])
			require.True(t, closed[11])
			require.True(t, closed[12])
		})
	}

	t.Run("closePoller joins errors", func(t *testing.T) {
		sentinel := errors.New("close failed")
		ops := newPTYOps()
		ops.closeFD = func(fd int) error {
			if fd == 1 {
				return sentinel
			}
			return nil
		}
		m := &ptyMaster{pollFD: 1, wakeR: 2, wakeW: 3, ops: ops}
		err := m.closePoller()
		require.ErrorIs(t, err, sentinel)
		require.Equal(t, -1, m.pollFD)
		require.Equal(t, -1, m.wakeR)
		require.Equal(t, -1, m.wakeW)
	})

	t.Run("waitForRead treats EINTR as not ready", func(t *testing.T) {
		ops := newPTYOps()
		ops.epollWait = func(int, []unix.EpollEvent, int) (int, error) {
			return 0, syscall.EINTR
		}
		m := &ptyMaster{pollFD: 1, wakeR: 2, ops: ops}
		ready, err := m.waitForRead(time.Second)
		require.NoError(t, err)
		require.False(t, ready)
	})

	t.Run("waitForRead non-EINTR error bubbles", func(t *testing.T) {
		sentinel := errors.New("epoll wait failed")
		ops := newPTYOps()
		ops.epollWait = func(int, []unix.EpollEvent, int) (int, error) {
			return 0, sentinel
		}
		m := &ptyMaster{pollFD: 1, wakeR: 2, ops: ops}
		_, err := m.waitForRead(time.Second)
		require.ErrorIs(t, err, sentinel)
	})

	t.Run("waitForRead passes rounded timeout", func(t *testing.T) {
		ops := newPTYOps()
		var got int
		ops.epollWait = func(_ int, _ []unix.EpollEvent, msec int) (int, error) {
			got = msec
			return 0, nil
		}
		m := &ptyMaster{pollFD: 1, wakeR: 2, fd: 3, ops: ops}
		_, err := m.waitForRead(1500 * time.Microsecond)
		require.NoError(t, err)
		require.Equal(t, 2, got)
	})

	t.Run("waitForRead drains wake pipe", func(t *testing.T) {
		ops := newPTYOps()
		ops.epollWait = func(_ int, events []unix.EpollEvent, _ int) (int, error) {
			events[0] = unix.EpollEvent{Fd: 99}
			return 1, nil
		}
		readCalled := false
		ops.read = func(int, []byte) (int, error) { readCalled = true; return 0, nil }
		m := &ptyMaster{pollFD: 1, wakeR: 99, fd: 5, ops: ops}
		ready, err := m.waitForRead(time.Second)
		require.NoError(t, err)
		require.False(t, ready)
		require.True(t, readCalled)
	})
}
