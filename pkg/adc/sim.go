package adc

import (
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/adcstream/pkg/config"
)

// Sim simulates conversion hardware for testing and development. The signal
// channel produces a sine wave around a bias voltage with deterministic
// pseudo-noise; the internal reference channel reads the nominal 1.20 V
// reference against the configured supply.
type Sim struct {
	cfg *config.SimConfig

	mu    sync.Mutex
	start time.Time
}

// NewSim creates a simulated converter.
func NewSim(cfg *config.SimConfig) *Sim {
	if cfg == nil {
		def := config.Default()
		cfg = &def.Sim
	}

	return &Sim{
		cfg:   cfg,
		start: time.Now(),
	}
}

// Convert performs one simulated conversion of the selected channel.
func (s *Sim) Convert(ch Channel) (uint16, error) {
	if ch == ChannelVRefInt {
		return s.quantize(VRefIntMillivolts / 1000.0), nil
	}

	s.mu.Lock()
	elapsed := time.Since(s.start)
	s.mu.Unlock()

	t := float32(elapsed.Seconds())
	period := float32(s.cfg.Period.Seconds())
	v := s.cfg.Bias + s.cfg.Amplitude*math32.Sin(2*math32.Pi*t/period)

	// Deterministic pseudo-noise, same shape as real converter jitter.
	noise := (math32.Sin(float32(elapsed.Nanoseconds())*0.001) +
		math32.Cos(float32(elapsed.Nanoseconds())*0.0013)) *
		s.cfg.NoiseLevel * 0.5
	v += noise

	return s.quantize(v), nil
}

// quantize converts a voltage to a 12-bit code against the supply.
func (s *Sim) quantize(v float32) uint16 {
	code := (v / s.cfg.VRef) * MaxCode
	if code < 0 {
		code = 0
	} else if code > MaxCode {
		code = MaxCode
	}
	return uint16(code)
}
