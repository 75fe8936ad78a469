// Package bulk implements the framed sample transport: a vendor-class pair
// of bulk endpoints moving fixed-size packets between a device and a host.
// Packets carry no header, checksum or sequence number; framing is purely
// packet-boundary based.
package bulk

import (
	"context"
	"errors"
)

const (
	// ClassVendor identifies the custom device class.
	ClassVendor    = 0xFF
	SubclassVendor = 0x00
	ProtocolVendor = 0x00

	// DefaultMaxPacketSize is the bulk endpoint packet size of the
	// reference configuration.
	DefaultMaxPacketSize = 64
)

var (
	// ErrBufferOverflow means the caller handed WritePacket more bytes than
	// one packet holds. Under correct packet assembly this is unreachable.
	ErrBufferOverflow = errors.New("packet exceeds max packet size")

	// ErrDisabled means the host side has disconnected. All in-flight data
	// of that connection epoch is lost and must not be retried against it.
	ErrDisabled = errors.New("endpoint disabled")
)

// Device is the device-side endpoint pair.
type Device interface {
	// WaitConnection suspends until the host has attached. Repeatable
	// across disconnect/reconnect cycles.
	WaitConnection(ctx context.Context) error

	// WritePacket transmits exactly one packet on the bulk-in endpoint.
	// Fails with ErrBufferOverflow when the packet is oversized and
	// ErrDisabled when the host has gone away mid-transfer.
	WritePacket(ctx context.Context, p []byte) error

	// ReadPacket receives one packet from the bulk-out endpoint into buf
	// and returns the number of bytes received. Same failure modes as
	// WritePacket.
	ReadPacket(ctx context.Context, buf []byte) (int, error)

	// MaxPacketSize returns the endpoint's fixed maximum packet size.
	MaxPacketSize() int
}

// Ensure both transports implement Device.
var (
	_ Device = (*Pipe)(nil)
	_ Device = (*Serial)(nil)
)
