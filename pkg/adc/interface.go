package adc

// Channel selects one of the converter's input channels.
type Channel uint8

const (
	// MaxCode is the full-scale code of the 12-bit converter.
	MaxCode = 4095

	// ChannelVRefInt is the internal reference channel used for calibration.
	ChannelVRefInt Channel = 17
)

// Converter is the capability interface over the conversion hardware.
// A call performs exactly one conversion of the selected channel and
// returns its code. Implementations must be safe for use from a single
// goroutine at a time.
type Converter interface {
	Convert(ch Channel) (uint16, error)
}

// Ensure Sim implements Converter.
var _ Converter = (*Sim)(nil)
