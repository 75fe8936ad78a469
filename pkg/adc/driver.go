package adc

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Driver runs a Converter in continuous mode. A mover goroutine paces
// conversions of the configured channel and deposits the codes into the
// session's Ring, so the consumer never polls the converter per sample.
type Driver struct {
	conv     Converter
	ch       Channel
	interval time.Duration
	ring     *Ring

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDriver creates a continuous driver for one channel. interval is the
// spacing between conversions; ringSize is the session buffer capacity in
// samples.
func NewDriver(conv Converter, ch Channel, interval time.Duration, ringSize int) *Driver {
	return &Driver{
		conv:     conv,
		ch:       ch,
		interval: interval,
		ring:     NewRing(ringSize),
	}
}

// Start arms continuous conversion. Starting an active driver is a caller
// bug and fails; so does starting over a buffer that was not cleared.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		return errors.New("driver already started")
	}
	if d.ring.Len() != 0 {
		return errors.New("ring not cleared before start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.move(ctx, d.done)

	return nil
}

// ReadExact suspends until exactly len(out) new samples are available and
// copies them out in production order, or fails with ErrOverrun if the mover
// lapped unread data first.
func (d *Driver) ReadExact(ctx context.Context, out []uint16) error {
	return d.ring.ReadExact(ctx, out)
}

// Stop halts the mover and suspends until it has fully quiesced.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.done = nil
	d.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear resets the session buffer to empty. It must only be called after
// Stop has completed.
func (d *Driver) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		return errors.New("cannot clear while driver is active")
	}
	d.ring.Clear()
	return nil
}

// Active reports whether the mover is currently running.
func (d *Driver) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// move is the producer side: it stands in for the hardware mover, pacing
// conversions and writing them into the ring without back-pressure.
func (d *Driver) move(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			code, err := d.conv.Convert(d.ch)
			if err != nil {
				log.Printf("conversion failed: %v", err)
				continue
			}
			d.ring.Push(code)
		}
	}
}
