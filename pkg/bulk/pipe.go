package bulk

import (
	"context"
	"sync"
)

// DefaultQueueDepth is how many packets each direction of a Pipe buffers
// before the writer suspends.
const DefaultQueueDepth = 16

// Pipe is an in-memory endpoint pair. The Pipe itself is the device side;
// Host returns the host side. Each Connect starts a fresh connection epoch
// with empty queues, and a Disconnect discards whatever the old epoch still
// had in flight, exactly like a host driver detaching from the bus.
type Pipe struct {
	max int

	mu        sync.Mutex
	connected bool
	attach    chan struct{} // closed on connect
	gone      chan struct{} // closed on disconnect, one per epoch
	in        chan []byte   // device -> host
	out       chan []byte   // host -> device
}

// NewPipe creates a disconnected endpoint pair with the given max packet
// size.
func NewPipe(maxPacketSize int) *Pipe {
	return &Pipe{
		max:    maxPacketSize,
		attach: make(chan struct{}),
	}
}

// MaxPacketSize returns the endpoint's fixed maximum packet size.
func (p *Pipe) MaxPacketSize() int {
	return p.max
}

// WaitConnection suspends until the host side has connected.
func (p *Pipe) WaitConnection(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.connected {
			p.mu.Unlock()
			return nil
		}
		attach := p.attach
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-attach:
		}
	}
}

// WritePacket transmits one packet to the host.
func (p *Pipe) WritePacket(ctx context.Context, pkt []byte) error {
	if len(pkt) > p.max {
		return ErrBufferOverflow
	}

	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return ErrDisabled
	}
	in, gone := p.in, p.gone
	p.mu.Unlock()

	buf := make([]byte, len(pkt))
	copy(buf, pkt)

	select {
	case in <- buf:
		return nil
	case <-gone:
		return ErrDisabled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadPacket receives one packet from the host.
func (p *Pipe) ReadPacket(ctx context.Context, buf []byte) (int, error) {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return 0, ErrDisabled
	}
	out, gone := p.out, p.gone
	p.mu.Unlock()

	select {
	case pkt := <-out:
		return copy(buf, pkt), nil
	case <-gone:
		return 0, ErrDisabled
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Host returns the host side of the pair.
func (p *Pipe) Host() *Host {
	return &Host{p: p}
}

// Host is the host side of a Pipe: the role the host computer's driver plays
// against the device.
type Host struct {
	p *Pipe
}

// Connect attaches the host, starting a new connection epoch with empty
// queues. Connecting while already attached is a no-op.
func (h *Host) Connect() {
	p := h.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connected {
		return
	}
	p.connected = true
	p.gone = make(chan struct{})
	p.in = make(chan []byte, DefaultQueueDepth)
	p.out = make(chan []byte, DefaultQueueDepth)
	close(p.attach)
}

// Disconnect detaches the host and ends the epoch. Queued packets are
// discarded; blocked device calls fail with ErrDisabled.
func (h *Host) Disconnect() {
	p := h.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return
	}
	p.connected = false
	p.attach = make(chan struct{})
	close(p.gone)
	p.in = nil
	p.out = nil
}

// ReadPacket receives one device-to-host packet into buf.
func (h *Host) ReadPacket(ctx context.Context, buf []byte) (int, error) {
	p := h.p
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return 0, ErrDisabled
	}
	in, gone := p.in, p.gone
	p.mu.Unlock()

	select {
	case pkt := <-in:
		return copy(buf, pkt), nil
	case <-gone:
		return 0, ErrDisabled
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// WritePacket sends one host-to-device packet.
func (h *Host) WritePacket(ctx context.Context, pkt []byte) error {
	p := h.p
	if len(pkt) > p.max {
		return ErrBufferOverflow
	}

	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return ErrDisabled
	}
	out, gone := p.out, p.gone
	p.mu.Unlock()

	buf := make([]byte, len(pkt))
	copy(buf, pkt)

	select {
	case out <- buf:
		return nil
	case <-gone:
		return ErrDisabled
	case <-ctx.Done():
		return ctx.Err()
	}
}
