package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the streamer configuration.
type Config struct {
	Transport   TransportConfig   `yaml:"transport"`
	Sampling    SamplingConfig    `yaml:"sampling"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Serial      SerialConfig      `yaml:"serial"`
	Sim         SimConfig         `yaml:"sim"`
}

// TransportConfig contains bulk transport identity and framing parameters.
type TransportConfig struct {
	VendorID      uint16 `yaml:"vendor_id"`
	ProductID     uint16 `yaml:"product_id"`
	MaxPacketSize int    `yaml:"max_packet_size"` // Bytes per bulk packet; must be even
}

// SamplingConfig contains continuous-conversion parameters.
type SamplingConfig struct {
	Channel    int           `yaml:"channel"`     // Converter channel carrying the signal
	SampleRate time.Duration `yaml:"sample_rate"` // Interval between conversions
	RingSize   int           `yaml:"ring_size"`   // Circular buffer capacity in samples
}

// CalibrationConfig contains reference-conversion parameters.
type CalibrationConfig struct {
	Warmup time.Duration `yaml:"warmup"` // Reference warm-up before the calibration read
}

// SerialConfig contains serial transport configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SimConfig contains simulated converter configuration.
type SimConfig struct {
	Bias       float32       `yaml:"bias"`        // Baseline input voltage (V)
	Amplitude  float32       `yaml:"amplitude"`   // Waveform amplitude (V)
	NoiseLevel float32       `yaml:"noise_level"` // Noise level (V)
	Period     time.Duration `yaml:"period"`      // Waveform period
	VRef       float32       `yaml:"vref"`        // Full-scale supply voltage (V)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			VendorID:      0xc0de,
			ProductID:     0xcafe,
			MaxPacketSize: 64,
		},
		Sampling: SamplingConfig{
			Channel:    9, // PB1 on the reference board
			SampleRate: 100 * time.Microsecond,
			RingSize:   64,
		},
		Calibration: CalibrationConfig{
			Warmup: 100 * time.Microsecond,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Sim: SimConfig{
			Bias:       1.65,
			Amplitude:  0.5,
			NoiseLevel: 0.001,
			Period:     time.Second,
			VRef:       3.3,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks invariants that would otherwise surface as runtime
// misbehavior deep inside the pipeline.
func (c *Config) Validate() error {
	if c.Transport.MaxPacketSize <= 0 || c.Transport.MaxPacketSize%2 != 0 {
		return fmt.Errorf("max_packet_size must be positive and even, got %d", c.Transport.MaxPacketSize)
	}
	if c.Sampling.RingSize < c.Transport.MaxPacketSize/2 {
		return fmt.Errorf("ring_size %d smaller than one packet of samples (%d)",
			c.Sampling.RingSize, c.Transport.MaxPacketSize/2)
	}
	return nil
}

// SamplesPerPacket returns how many samples fit a single bulk packet.
func (c *Config) SamplesPerPacket() int {
	return c.Transport.MaxPacketSize / 2
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Transport.VendorID == 0 {
		c.Transport.VendorID = def.Transport.VendorID
	}
	if c.Transport.ProductID == 0 {
		c.Transport.ProductID = def.Transport.ProductID
	}
	if c.Transport.MaxPacketSize == 0 {
		c.Transport.MaxPacketSize = def.Transport.MaxPacketSize
	}

	if c.Sampling.SampleRate == 0 {
		c.Sampling.SampleRate = def.Sampling.SampleRate
	}
	if c.Sampling.RingSize == 0 {
		c.Sampling.RingSize = def.Sampling.RingSize
	}

	if c.Calibration.Warmup == 0 {
		c.Calibration.Warmup = def.Calibration.Warmup
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Sim.VRef == 0 {
		c.Sim.VRef = def.Sim.VRef
	}
	if c.Sim.Period == 0 {
		c.Sim.Period = def.Sim.Period
	}
}
