// ABOUTME: Audio type definitions and sample conversions
// ABOUTME: Defines stream formats and the uint8 ring-buffer quantization
package audio

import "math"

// Format describes an audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// BytesPerSecond returns the ring-buffer footprint of one second of audio.
// Ring-buffer samples are one byte each.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels
}

// Quantize converts a float sample in [-1, 1] to its unsigned 8-bit ring
// buffer representation, q = 127.5 * (x + 1) rounded up. Rounding up keeps
// |Dequantize(Quantize(x)) - x| below 1/128. Out-of-range input is clamped.
func Quantize(x float32) uint8 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return uint8(math.Ceil(127.5 * (float64(x) + 1.0)))
}

// Dequantize recovers a float sample from its 8-bit representation,
// x = (q - 128) / 128.
func Dequantize(q uint8) float32 {
	return (float32(q) - 128.0) / 128.0
}

// QuantizeSamples quantizes src into dst and returns the number written
func QuantizeSamples(dst []uint8, src []float32) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = Quantize(src[i])
	}
	return n
}

// Int16ToFloat converts a 16-bit PCM sample to [-1, 1)
func Int16ToFloat(sample int16) float32 {
	return float32(sample) / 32768.0
}

// IntToFloat converts a signed PCM sample of the given bit depth to [-1, 1)
func IntToFloat(sample int32, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	scale := float64(int64(1) << (bitDepth - 1))
	return float32(float64(sample) / scale)
}
