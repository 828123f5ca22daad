//go:build linux
// +build linux

// File: reactor/poller_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// select(2)-based poller. O(n) per tick, which is acceptable for the modest
// connection counts this server targets; descriptors at or above FD_SETSIZE
// cannot be watched and fail the poll.

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type selectPoller struct {
	wakeR int
	wakeW int
}

// NewPoller constructs the platform poller with its wakeup pipe.
func NewPoller() (Poller, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("poller pipe: %w", err)
	}
	return &selectPoller{wakeR: fds[0], wakeW: fds[1]}, nil
}

func (p *selectPoller) Poll(read, write, except []int, timeout time.Duration) ([]int, []int, []int, error) {
	var rs, ws, xs unix.FdSet
	nfds := p.wakeR
	rs.Set(p.wakeR)

	set := func(s *unix.FdSet, fds []int) error {
		for _, fd := range fds {
			if fd < 0 || fd >= unix.FD_SETSIZE {
				return fmt.Errorf("descriptor %d exceeds select capacity", fd)
			}
			s.Set(fd)
			if fd > nfds {
				nfds = fd
			}
		}
		return nil
	}
	if err := set(&rs, read); err != nil {
		return nil, nil, nil, err
	}
	if err := set(&ws, write); err != nil {
		return nil, nil, nil, err
	}
	if err := set(&xs, except); err != nil {
		return nil, nil, nil, err
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}

	n, err := unix.Select(nfds+1, &rs, &ws, &xs, tv)
	if err != nil {
		if err == unix.EINTR {
			// interrupted by signal, treat as an empty tick
			return nil, nil, nil, nil
		}
		return nil, nil, nil, fmt.Errorf("select: %w", err)
	}
	if n == 0 {
		return nil, nil, nil, nil
	}

	if rs.IsSet(p.wakeR) {
		p.drain()
	}

	collect := func(s *unix.FdSet, fds []int) []int {
		var out []int
		for _, fd := range fds {
			if s.IsSet(fd) {
				out = append(out, fd)
			}
		}
		return out
	}
	return collect(&rs, read), collect(&ws, write), collect(&xs, except), nil
}

// Wake nudges the poll by writing one byte into the pipe. A full pipe means
// a wakeup is already pending; nothing to do.
func (p *selectPoller) Wake() {
	_, _ = unix.Write(p.wakeW, []byte{0})
}

func (p *selectPoller) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(p.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (p *selectPoller) Close() error {
	_ = unix.Close(p.wakeW)
	return unix.Close(p.wakeR)
}
