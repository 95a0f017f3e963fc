// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hub

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Waiter waits for source descriptors to become readable.
type Waiter interface {
	// Wait sets ready[i] for every readable fds[i] and returns how many were
	// found. With block false it returns at once.
	Wait(fds []int, ready []bool, block bool) (int, error)
}

// PollWaiter implements Waiter with poll(2).
type PollWaiter struct {
	pfds []unix.PollFd
}

func (w *PollWaiter) Wait(fds []int, ready []bool, block bool) (int, error) {
	w.pfds = w.pfds[:0]
	for _, fd := range fds {
		w.pfds = append(w.pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}

	timeout := -1
	if !block {
		timeout = 0
	}
	for {
		_, err := unix.Poll(w.pfds, timeout)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		break
	}

	found := 0
	for i, p := range w.pfds {
		if p.Revents != 0 {
			ready[i] = true
			found++
		}
	}
	return found, nil
}
