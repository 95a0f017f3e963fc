// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"fmt"
	"io"
)

// Reader is a fixed-capacity ring of raw events filled from a non-blocking source.
//
// Capacity must cover the largest burst one readiness signal can produce;
// records beyond the free space stay in the kernel until the next Fill.
type Reader struct {
	ring    []Event
	head    int
	count   int
	scratch []byte
}

// NewReader returns a Reader holding up to capacity events.
func NewReader(capacity int) *Reader {
	if capacity < 1 {
		capacity = 1
	}
	return &Reader{
		ring:    make([]Event, capacity),
		scratch: make([]byte, capacity*EventSize),
	}
}

// Fill performs one read from src into the free part of the ring and returns
// the number of events added. A source with nothing to read returns 0.
func (r *Reader) Fill(src io.Reader) (int, error) {
	free := len(r.ring) - r.count
	if free == 0 {
		return 0, nil
	}

	n, err := src.Read(r.scratch[:free*EventSize])
	if err != nil {
		return 0, fmt.Errorf("input read: %w", err)
	}
	if n%EventSize != 0 {
		return 0, fmt.Errorf("input read: truncated event (%d bytes)", n)
	}

	added := n / EventSize
	for i := 0; i < added; i++ {
		ev, err := DecodeEvent(r.scratch[i*EventSize : (i+1)*EventSize])
		if err != nil {
			return i, err
		}
		r.ring[(r.head+r.count)%len(r.ring)] = ev
		r.count++
	}
	return added, nil
}

// Next returns the current event without consuming it.
func (r *Reader) Next() (Event, bool) {
	if r.count == 0 {
		return Event{}, false
	}
	return r.ring[r.head], true
}

// Advance discards the current event.
func (r *Reader) Advance() {
	if r.count == 0 {
		return
	}
	r.head = (r.head + 1) % len(r.ring)
	r.count--
}

// Len returns the number of buffered events.
func (r *Reader) Len() int { return r.count }

// Cap returns the ring capacity in events.
func (r *Reader) Cap() int { return len(r.ring) }
