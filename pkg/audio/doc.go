// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and the sample conversions used by the ring buffer
// Package audio provides fundamental audio types and sample conversions.
//
// Decoded audio travels through the player as interleaved float32 samples
// in [-1, 1]. The playback ring buffer stores each sample as a single
// unsigned byte:
//   - Quantize: q = 127.5 * (x + 1)
//   - Dequantize: x = (q - 128) / 128
//
// The round trip is lossy by roughly one quantization step, so comparisons
// against the original samples need a tolerance.
//
// Example:
//
//	q := audio.Quantize(0.25)
//	x := audio.Dequantize(q) // ~0.25
package audio
