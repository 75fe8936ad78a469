package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const reopenInterval = 100 * time.Millisecond

// Serial carries the bulk packet framing over a serial port, for boards that
// expose the stream behind a USB-serial bridge instead of raw vendor
// endpoints. One open port is one connection epoch: any I/O failure closes
// the port and the next WaitConnection starts a fresh epoch.
//
// The framing relies on the bridge delivering writes of at most one packet
// as whole chunks, which holds for USB CDC bridges with packet-sized writes.
type Serial struct {
	portName string
	baudRate int
	max      int

	mu   sync.Mutex
	port serial.Port
}

// NewSerial creates a serial transport for the given port. The port is not
// opened until WaitConnection.
func NewSerial(port string, baudRate, maxPacketSize int) *Serial {
	return &Serial{
		portName: port,
		baudRate: baudRate,
		max:      maxPacketSize,
	}
}

// MaxPacketSize returns the endpoint's fixed maximum packet size.
func (s *Serial) MaxPacketSize() int {
	return s.max
}

// WaitConnection suspends until the port can be opened, retrying while the
// host side is absent.
func (s *Serial) WaitConnection(ctx context.Context) error {
	s.mu.Lock()
	if s.port != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	for {
		port, err := serial.Open(s.portName, &serial.Mode{BaudRate: s.baudRate})
		if err == nil {
			s.mu.Lock()
			s.port = port
			s.mu.Unlock()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reopenInterval):
		}
	}
}

// WritePacket transmits exactly one packet. Any port failure ends the epoch.
func (s *Serial) WritePacket(_ context.Context, pkt []byte) error {
	if len(pkt) > s.max {
		return ErrBufferOverflow
	}

	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return ErrDisabled
	}

	for off := 0; off < len(pkt); {
		n, err := port.Write(pkt[off:])
		if err != nil {
			s.drop(err)
			return fmt.Errorf("serial write failed (%v): %w", err, ErrDisabled)
		}
		off += n
	}
	return nil
}

// ReadPacket receives up to one packet into buf.
func (s *Serial) ReadPacket(_ context.Context, buf []byte) (int, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return 0, ErrDisabled
	}

	if len(buf) > s.max {
		buf = buf[:s.max]
	}

	n, err := port.Read(buf)
	if err != nil {
		s.drop(err)
		return 0, fmt.Errorf("serial read failed (%v): %w", err, ErrDisabled)
	}
	return n, nil
}

// Close closes the port if it is open.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// drop closes the port after an I/O failure so the next WaitConnection
// starts a clean epoch.
func (s *Serial) drop(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return
	}
	if err := s.port.Close(); err != nil {
		log.Printf("error closing serial port after %v: %v", cause, err)
	}
	s.port = nil
}

// Ports returns the names of the serial ports present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
