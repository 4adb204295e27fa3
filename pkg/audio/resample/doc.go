// ABOUTME: Audio resampling package using time-domain stretch and shrink
// ABOUTME: Resizes interleaved runs of samples to a required length
// Package resample provides audio sample length and rate conversion.
//
// Stretch interpolates linearly between consecutive sample blocks and
// Shrink averages the blocks each output position covers. Both allocate
// the full output up front and clamp every index to it, so fractional
// ratios never overrun.
//
// Example:
//
//	out := resample.Alter(samples, 2, 1024) // 1024 stereo frames
//
//	r := resample.New(44100, 48000, 2)
//	chunk48k := r.Convert(chunk44k)
package resample
