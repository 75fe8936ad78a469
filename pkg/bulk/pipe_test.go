package bulk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_WaitConnection(t *testing.T) {
	p := NewPipe(64)
	host := p.Host()

	go func() {
		time.Sleep(10 * time.Millisecond)
		host.Connect()
	}()

	require.NoError(t, p.WaitConnection(context.Background()))
}

func TestPipe_WaitConnection_ContextCanceled(t *testing.T) {
	p := NewPipe(64)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.WaitConnection(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipe_RoundTrip(t *testing.T) {
	p := NewPipe(64)
	host := p.Host()
	host.Connect()

	ctx := context.Background()
	require.NoError(t, p.WritePacket(ctx, []byte{1, 2, 3, 4}))

	buf := make([]byte, 64)
	n, err := host.ReadPacket(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf[:n])

	require.NoError(t, host.WritePacket(ctx, []byte{9}))
	n, err = p.ReadPacket(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, buf[:n])
}

func TestPipe_WritePacket_Oversized(t *testing.T) {
	p := NewPipe(4)
	p.Host().Connect()

	err := p.WritePacket(context.Background(), make([]byte, 5))
	require.ErrorIs(t, err, ErrBufferOverflow)
}

func TestPipe_WritePacket_Disconnected(t *testing.T) {
	p := NewPipe(64)

	err := p.WritePacket(context.Background(), []byte{1})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestPipe_DisconnectUnblocksWriter(t *testing.T) {
	p := NewPipe(64)
	host := p.Host()
	host.Connect()

	ctx := context.Background()

	// Fill the epoch queue so the next write suspends.
	for i := 0; i < DefaultQueueDepth; i++ {
		require.NoError(t, p.WritePacket(ctx, []byte{byte(i)}))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.WritePacket(ctx, []byte{0xFF})
	}()

	time.Sleep(10 * time.Millisecond)
	host.Disconnect()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrDisabled)
	case <-time.After(time.Second):
		t.Fatal("writer was not unblocked by disconnect")
	}
}

func TestPipe_EpochDiscardsInFlightPackets(t *testing.T) {
	p := NewPipe(64)
	host := p.Host()
	ctx := context.Background()

	host.Connect()
	require.NoError(t, p.WritePacket(ctx, []byte{0xAA}))
	host.Disconnect()

	// Reconnect: nothing from the previous epoch may be delivered.
	host.Connect()
	require.NoError(t, p.WritePacket(ctx, []byte{0xBB}))

	buf := make([]byte, 64)
	n, err := host.ReadPacket(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBB}, buf[:n])
}

func TestPipe_ReconnectCycle(t *testing.T) {
	p := NewPipe(64)
	host := p.Host()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		host.Connect()
		require.NoError(t, p.WaitConnection(ctx))
		require.NoError(t, p.WritePacket(ctx, []byte{byte(i)}))

		buf := make([]byte, 64)
		n, err := host.ReadPacket(ctx, buf)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, buf[:n])

		host.Disconnect()
		require.ErrorIs(t, p.WritePacket(ctx, []byte{0}), ErrDisabled)
	}
}

func TestSerial_PacketSizeGuard(t *testing.T) {
	s := NewSerial("/dev/null-port", 115200, 8)

	// Oversized packets are rejected before any port I/O.
	err := s.WritePacket(context.Background(), make([]byte, 9))
	require.ErrorIs(t, err, ErrBufferOverflow)

	// Without an open port the endpoint is disabled.
	require.ErrorIs(t, s.WritePacket(context.Background(), []byte{1}), ErrDisabled)
	_, err = s.ReadPacket(context.Background(), make([]byte, 8))
	require.ErrorIs(t, err, ErrDisabled)
	require.NoError(t, s.Close())
}
