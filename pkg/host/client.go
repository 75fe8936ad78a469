// Package host is the receiving side of the stream: it reads framed sample
// packets off the transport and turns them back into individual calibrated
// samples.
package host

import (
	"context"
	"encoding/binary"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100

	// maxPacket bounds the receive buffer; larger than any configured
	// endpoint packet size.
	maxPacket = 512
)

// Sample represents one calibrated measurement received from the device.
type Sample struct {
	Timestamp  time.Time
	Millivolts uint16
}

// PacketReader is the receive half of a transport endpoint. Both the pipe
// host side and the serial transport satisfy it.
type PacketReader interface {
	ReadPacket(ctx context.Context, buf []byte) (int, error)
}

// Client decodes sample packets from a transport into a channel of samples.
type Client struct {
	r       PacketReader
	samples chan Sample
}

// NewClient creates a client reading from r. bufSize is the samples channel
// depth.
func NewClient(r PacketReader, bufSize int) *Client {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Client{
		r:       r,
		samples: make(chan Sample, bufSize),
	}
}

// Samples returns the channel of decoded samples. It is closed when Run
// returns.
func (c *Client) Samples() <-chan Sample {
	return c.samples
}

// Run reads packets until the context is done or the transport fails,
// decoding each packet's little-endian millivolt values in order. Samples
// within a packet share the packet's arrival timestamp.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.samples)

	buf := make([]byte, maxPacket)
	for {
		n, err := c.r.ReadPacket(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if n%2 != 0 {
			log.Printf("dropping ragged packet of %d bytes", n)
			continue
		}

		now := time.Now()
		for i := 0; i < n; i += 2 {
			s := Sample{
				Timestamp:  now,
				Millivolts: binary.LittleEndian.Uint16(buf[i:]),
			}

			// Non-blocking send: a slow consumer loses samples here, not
			// in the transport.
			select {
			case c.samples <- s:
			default:
				log.Printf("samples channel full, dropping sample")
			}
		}
	}
}
