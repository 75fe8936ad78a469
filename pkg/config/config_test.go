package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, uint16(0xc0de), cfg.Transport.VendorID)
	assert.Equal(t, uint16(0xcafe), cfg.Transport.ProductID)
	assert.Equal(t, 64, cfg.Transport.MaxPacketSize)
	assert.Equal(t, 32, cfg.SamplesPerPacket())
	assert.Equal(t, 9, cfg.Sampling.Channel)
	assert.Equal(t, 64, cfg.Sampling.RingSize)
	assert.Equal(t, 100*time.Microsecond, cfg.Calibration.Warmup)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, 64, cfg.Transport.MaxPacketSize)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
transport:
  max_packet_size: 32

sampling:
  channel: 4
  sample_rate: 1ms
  ring_size: 128

serial:
  port: "/dev/ttyUSB0"
  baud_rate: 921600
`
	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Transport.MaxPacketSize)
	assert.Equal(t, 16, cfg.SamplesPerPacket())
	assert.Equal(t, 4, cfg.Sampling.Channel)
	assert.Equal(t, time.Millisecond, cfg.Sampling.SampleRate)
	assert.Equal(t, 128, cfg.Sampling.RingSize)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 921600, cfg.Serial.BaudRate)

	// Missing sections fall back to defaults.
	assert.Equal(t, uint16(0xc0de), cfg.Transport.VendorID)
	assert.Equal(t, 100*time.Microsecond, cfg.Calibration.Warmup)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("transport: [not a mapping")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	_, err = Load(tmpfile.Name())
	assert.Error(t, err)
}

func TestValidate_OddPacketSize(t *testing.T) {
	cfg := Default()
	cfg.Transport.MaxPacketSize = 63
	assert.Error(t, cfg.Validate())
}

func TestValidate_RingSmallerThanPacket(t *testing.T) {
	cfg := Default()
	cfg.Sampling.RingSize = 8
	assert.Error(t, cfg.Validate())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	defer os.Remove(tmpfile.Name())

	cfg := Default()
	cfg.Sampling.Channel = 7
	cfg.Transport.MaxPacketSize = 16
	require.NoError(t, cfg.Save(tmpfile.Name()))

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Sampling.Channel)
	assert.Equal(t, 16, loaded.Transport.MaxPacketSize)
}
