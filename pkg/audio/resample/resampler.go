// ABOUTME: Time-domain stretch/shrink sample-rate conversion
// ABOUTME: Resizes interleaved float32 runs by linear interpolation or box averaging
package resample

// Alter resizes an interleaved run of samples to target frames per channel.
// Longer targets are stretched, shorter ones shrunk and equal lengths copied.
// The result is always exactly target*channels samples long.
func Alter(samples []float32, channels, target int) []float32 {
	if channels <= 0 || target <= 0 {
		return []float32{}
	}

	frames := len(samples) / channels
	switch {
	case frames < target:
		return Stretch(samples, channels, target)
	case frames > target:
		return Shrink(samples, channels, target)
	default:
		out := make([]float32, target*channels)
		copy(out, samples)
		return out
	}
}

// Stretch upsamples by linear interpolation. Each pair of consecutive
// input blocks is bridged by target/frames evenly spaced output blocks;
// output past the final pair holds the last input block.
func Stretch(samples []float32, channels, target int) []float32 {
	if channels <= 0 || target <= 0 {
		return []float32{}
	}
	out := make([]float32, target*channels)

	frames := len(samples) / channels
	if frames == 0 {
		return out
	}
	if frames == 1 {
		for j := 0; j < target; j++ {
			copy(out[j*channels:(j+1)*channels], samples[:channels])
		}
		return out
	}

	ratio := float64(target) / float64(frames)
	for i := 1; i < frames; i++ {
		start := int(float64(i-1) * ratio)
		end := int(float64(i) * ratio)
		if end > target {
			end = target
		}

		for ch := 0; ch < channels; ch++ {
			prev := samples[(i-1)*channels+ch]
			next := samples[i*channels+ch]
			step := (next - prev) / float32(ratio)

			value := prev
			for j := start; j < end; j++ {
				out[j*channels+ch] = value
				value += step
			}
		}
	}

	last := samples[(frames-1)*channels : frames*channels]
	for j := int(float64(frames-1) * ratio); j < target; j++ {
		copy(out[j*channels:(j+1)*channels], last)
	}

	return out
}

// Shrink downsamples with a box filter: each output block is the
// per-channel mean of the input blocks it covers.
func Shrink(samples []float32, channels, target int) []float32 {
	if channels <= 0 || target <= 0 {
		return []float32{}
	}
	out := make([]float32, target*channels)

	frames := len(samples) / channels
	if frames == 0 {
		return out
	}

	step := float64(frames) / float64(target)
	for i := 0; i < target; i++ {
		lo := int(float64(i) * step)
		hi := int(float64(i+1) * step)
		if lo >= frames {
			lo = frames - 1
		}
		if hi > frames {
			hi = frames
		}
		if hi <= lo {
			hi = lo + 1
		}

		count := float32(hi - lo)
		for ch := 0; ch < channels; ch++ {
			var sum float32
			for k := lo; k < hi; k++ {
				sum += samples[k*channels+ch]
			}
			out[i*channels+ch] = sum / count
		}
	}

	return out
}

// Resampler converts a continuous stream of interleaved chunks between
// sample rates, carrying the fractional output frame between calls.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(outputRate) / float64(inputRate),
	}
}

// Convert resizes one chunk from the input rate to the output rate
func (r *Resampler) Convert(input []float32) []float32 {
	if r.channels <= 0 || r.inputRate <= 0 {
		return []float32{}
	}

	frames := len(input) / r.channels
	if r.inputRate == r.outputRate {
		return Alter(input, r.channels, frames)
	}

	r.position += float64(frames) * r.ratio
	produce := int(r.position)
	r.position -= float64(produce)

	return Alter(input, r.channels, produce)
}

// Reset clears the carried fractional position
func (r *Resampler) Reset() {
	r.position = 0
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// Channels returns the interleaved channel count
func (r *Resampler) Channels() int { return r.channels }
