package adc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqConverter produces strictly increasing codes so production order is
// observable at the consumer.
type seqConverter struct {
	mu   sync.Mutex
	next uint16
}

func (s *seqConverter) Convert(Channel) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.next
	s.next++
	return v, nil
}

func TestDriver_StreamOrder(t *testing.T) {
	d := NewDriver(&seqConverter{}, 0, time.Millisecond, 64)
	require.NoError(t, d.Start())
	defer d.Stop(context.Background())

	out := make([]uint16, 8)
	require.NoError(t, d.ReadExact(context.Background(), out))

	for i := 1; i < len(out); i++ {
		assert.Equal(t, out[i-1]+1, out[i], "samples must arrive in production order")
	}
}

func TestDriver_DoubleStart(t *testing.T) {
	d := NewDriver(&seqConverter{}, 0, time.Millisecond, 64)
	require.NoError(t, d.Start())
	defer d.Stop(context.Background())

	assert.Error(t, d.Start())
}

func TestDriver_StartOnDirtyRing(t *testing.T) {
	d := NewDriver(&seqConverter{}, 0, time.Millisecond, 64)
	d.ring.Push(7)

	assert.Error(t, d.Start())

	require.NoError(t, d.Clear())
	require.NoError(t, d.Start())
	require.NoError(t, d.Stop(context.Background()))
}

func TestDriver_StopQuiesces(t *testing.T) {
	d := NewDriver(&seqConverter{}, 0, time.Millisecond, 64)
	require.NoError(t, d.Start())
	assert.True(t, d.Active())

	require.NoError(t, d.Stop(context.Background()))
	assert.False(t, d.Active())

	// No producer left behind: the ring level stays put.
	before := d.ring.Len()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, before, d.ring.Len())
}

func TestDriver_StopIdempotent(t *testing.T) {
	d := NewDriver(&seqConverter{}, 0, time.Millisecond, 64)
	require.NoError(t, d.Stop(context.Background()))

	require.NoError(t, d.Start())
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))
}

func TestDriver_ClearWhileActive(t *testing.T) {
	d := NewDriver(&seqConverter{}, 0, time.Millisecond, 64)
	require.NoError(t, d.Start())
	defer d.Stop(context.Background())

	assert.Error(t, d.Clear())
}

func TestDriver_RestartAfterStopClear(t *testing.T) {
	d := NewDriver(&seqConverter{}, 0, time.Millisecond, 64)
	require.NoError(t, d.Start())

	out := make([]uint16, 4)
	require.NoError(t, d.ReadExact(context.Background(), out))

	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Clear())

	require.NoError(t, d.Start())
	require.NoError(t, d.ReadExact(context.Background(), out))
	require.NoError(t, d.Stop(context.Background()))
}
