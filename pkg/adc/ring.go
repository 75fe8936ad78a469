package adc

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrOverrun is returned by ReadExact when the producer has lapped the
// reader and overwritten samples that were never consumed.
var ErrOverrun = errors.New("ring buffer overrun")

// Ring is a fixed-capacity circular buffer of converter codes. The producer
// side (the driver's mover) writes sequentially and wraps; the consumer reads
// sequentially and wraps. Both cursors are absolute 64-bit counters, so an
// overrun is simply write-read exceeding the capacity.
//
// A Ring outlives a single read loop iteration: it is allocated once per
// streaming session and owned by the Driver for that whole session.
type Ring struct {
	mu    sync.Mutex
	buf   []uint16
	read  uint64
	write uint64

	wake chan struct{}
}

// NewRing creates a ring buffer with the given capacity in samples.
func NewRing(capacity int) *Ring {
	return &Ring{
		buf:  make([]uint16, capacity),
		wake: make(chan struct{}, 1),
	}
}

// Cap returns the ring capacity in samples.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Len returns the number of unread samples. A value above Cap means the
// reader has been lapped and the next ReadExact will fail with ErrOverrun.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.write - r.read)
}

// Push appends one sample, overwriting the oldest slot when the buffer is
// full. This is the producer side and never blocks, mirroring a hardware
// mover that cannot be back-pressured.
func (r *Ring) Push(v uint16) {
	r.mu.Lock()
	r.buf[r.write%uint64(len(r.buf))] = v
	r.write++
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// ReadExact suspends until exactly len(out) unread samples are available,
// then copies them out in production order. If the producer overwrote unread
// data before the read completed, it discards the whole unread span and
// returns ErrOverrun; it never returns a short read silently.
func (r *Ring) ReadExact(ctx context.Context, out []uint16) error {
	if len(out) > len(r.buf) {
		return fmt.Errorf("read of %d samples exceeds ring capacity %d", len(out), len(r.buf))
	}
	need := uint64(len(out))

	for {
		r.mu.Lock()
		if r.write-r.read > uint64(len(r.buf)) {
			// Lapped: everything unread is untrustworthy, drop it all.
			r.read = r.write
			r.mu.Unlock()
			return ErrOverrun
		}
		if r.write-r.read >= need {
			for i := range out {
				out[i] = r.buf[(r.read+uint64(i))%uint64(len(r.buf))]
			}
			r.read += need
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
		}
	}
}

// Clear resets both cursors to empty. The producer must be stopped first.
func (r *Ring) Clear() {
	r.mu.Lock()
	r.read = 0
	r.write = 0
	r.mu.Unlock()

	select {
	case <-r.wake:
	default:
	}
}
