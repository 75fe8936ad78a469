package host

// Stage is a function transforming one sample stream into another. Stages
// close their output when the input closes, so they compose into pipelines
// that shut down cleanly from the transport outward.
type Stage func(in <-chan Sample) <-chan Sample

// NewAveragingStage creates a stage that averages every window consecutive
// samples into one, reducing noise at the cost of rate. The averaged sample
// carries the timestamp of the last sample in its window.
func NewAveragingStage(window, bufSize int) Stage {
	if window <= 0 {
		window = 1
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var sum uint32
			count := 0
			var last Sample

			for s := range in {
				sum += uint32(s.Millivolts)
				count++
				last = s

				if count < window {
					continue
				}

				out <- Sample{
					Timestamp:  last.Timestamp,
					Millivolts: uint16(sum / uint32(count)),
				}
				sum = 0
				count = 0
			}
			// A trailing partial window is dropped, matching the
			// full-packets-only framing upstream.
		}()

		return out
	}
}

// NewDownsampleStage creates a stage that keeps every factor-th sample and
// discards the rest. Useful for display paths that cannot keep up with the
// full sample rate.
func NewDownsampleStage(factor, bufSize int) Stage {
	if factor <= 0 {
		factor = 1
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			i := 0
			for s := range in {
				if i%factor == 0 {
					out <- s
				}
				i++
			}
		}()

		return out
	}
}
