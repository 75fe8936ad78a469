package adc

import (
	"errors"
	"fmt"
	"time"
)

// VRefIntMillivolts is the nominal voltage of the internal reference in mV.
const VRefIntMillivolts = 1200

// Reference is the one-shot reading of the internal reference channel taken
// at startup. It is immutable for the rest of the session and scales every
// raw code into millivolts.
type Reference uint16

// Calibrate waits out the reference warm-up, performs a single conversion of
// the internal reference channel and returns it. It fails only if the
// converter fails or reads an implausible zero.
func Calibrate(conv Converter, warmup time.Duration) (Reference, error) {
	// The reference needs time to settle after power-up before its reading
	// means anything.
	time.Sleep(warmup)

	code, err := conv.Convert(ChannelVRefInt)
	if err != nil {
		return 0, fmt.Errorf("reference conversion failed: %w", err)
	}
	if code == 0 {
		return 0, errors.New("reference conversion read zero")
	}
	return Reference(code), nil
}

// ToMillivolts converts a raw code to millivolts against the session
// reference. Integer-truncated and monotonic in raw; raw 0 maps to 0.
func ToMillivolts(raw uint16, ref Reference) uint16 {
	if ref == 0 {
		return 0
	}
	return uint16(uint32(raw) * VRefIntMillivolts / uint32(ref))
}
