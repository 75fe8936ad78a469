// Package stream ties the sampling side to the transport side: a
// connection-lifecycle state machine that starts and stops continuous
// conversion in step with the host connection and forwards calibrated
// samples as full packets.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/itohio/adcstream/pkg/adc"
	"github.com/itohio/adcstream/pkg/bulk"
)

// State is the coordinator's position in the connection lifecycle.
type State int

const (
	// Idle: nothing armed, nothing connected. The initial state and the
	// mandatory stop between any failure and the next connection attempt.
	Idle State = iota
	// WaitConnection: suspended until the host attaches.
	WaitConnection
	// Streaming: continuous conversion armed, samples flowing host-ward.
	Streaming
	// Draining: stopping conversion and discarding session state after a
	// failure or disconnect.
	Draining
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitConnection:
		return "wait-connection"
	case Streaming:
		return "streaming"
	case Draining:
		return "draining"
	default:
		return "unknown"
	}
}

// Source is the continuous sampling side of the pipeline (see adc.Driver).
type Source interface {
	Start() error
	ReadExact(ctx context.Context, out []uint16) error
	Stop(ctx context.Context) error
	Clear() error
}

// Ensure adc.Driver implements Source.
var _ Source = (*adc.Driver)(nil)

// Coordinator runs the sampling-to-transport pipeline. Samples leave in the
// exact order the converter produced them; a packet is the only reordering
// granularity and is only ever flushed full.
type Coordinator struct {
	src Source
	dev bulk.Device
	ref adc.Reference
	spp int // samples per packet

	mu           sync.RWMutex
	state        State
	onTransition func(State)
}

// New creates a coordinator over a sampling source and a transport device.
// The transport's max packet size must be even so packets hold a whole
// number of samples.
func New(src Source, dev bulk.Device, ref adc.Reference) (*Coordinator, error) {
	max := dev.MaxPacketSize()
	if max <= 0 || max%2 != 0 {
		return nil, fmt.Errorf("max packet size %d does not hold a whole number of samples", max)
	}

	return &Coordinator{
		src:   src,
		dev:   dev,
		ref:   ref,
		spp:   max / 2,
		state: Idle,
	}, nil
}

// SamplesPerPacket returns how many samples each transmitted packet carries.
func (c *Coordinator) SamplesPerPacket() int {
	return c.spp
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// OnTransition registers a callback invoked on every state change. Must be
// set before Run.
func (c *Coordinator) OnTransition(fn func(State)) {
	c.mu.Lock()
	c.onTransition = fn
	c.mu.Unlock()
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	fn := c.onTransition
	c.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// Run drives the lifecycle forever: Idle -> WaitConnection -> Streaming ->
// Draining -> Idle. Every failure drains the whole session and restarts the
// cycle; no retry happens inside a connection epoch. Run returns only when
// ctx is done or the source refuses to arm (a coordinator usage bug).
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		c.setState(Idle)

		c.setState(WaitConnection)
		if err := c.dev.WaitConnection(ctx); err != nil {
			return err
		}
		log.Printf("host connected, streaming %d samples per packet", c.spp)

		if err := c.src.Start(); err != nil {
			return fmt.Errorf("failed to arm continuous conversion: %w", err)
		}
		c.setState(Streaming)

		err := c.stream(ctx)

		c.setState(Draining)
		if stopErr := c.src.Stop(context.Background()); stopErr != nil {
			return fmt.Errorf("failed to stop conversion: %w", stopErr)
		}
		if clearErr := c.src.Clear(); clearErr != nil {
			return fmt.Errorf("failed to clear session buffer: %w", clearErr)
		}

		if ctx.Err() != nil {
			c.setState(Idle)
			return ctx.Err()
		}
		if err != nil {
			return err
		}
	}
}

// stream forwards packets until the converter or the transport fails.
// Recoverable failures (overrun, disconnect, overflow) come back as nil so
// Run drains and restarts; anything else propagates.
func (c *Coordinator) stream(ctx context.Context) error {
	raw := make([]uint16, c.spp)
	pkt := make([]byte, c.spp*2)

	for {
		if err := c.src.ReadExact(ctx, raw); err != nil {
			if errors.Is(err, adc.ErrOverrun) {
				log.Printf("converter overrun, draining session: %v", err)
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("sample read failed: %w", err)
		}

		for i, code := range raw {
			binary.LittleEndian.PutUint16(pkt[2*i:], adc.ToMillivolts(code, c.ref))
		}

		if err := c.dev.WritePacket(ctx, pkt); err != nil {
			switch {
			case errors.Is(err, bulk.ErrDisabled):
				log.Printf("host disconnected, draining session: %v", err)
				return nil
			case errors.Is(err, bulk.ErrBufferOverflow):
				// Unreachable under correct packet sizing; kept recoverable
				// so a misconfigured build degrades to a drain loop instead
				// of wedging the device.
				log.Errorf("packet assembly overflow: %v", err)
				return nil
			case ctx.Err() != nil:
				return nil
			default:
				return fmt.Errorf("packet write failed: %w", err)
			}
		}
	}
}
