// ABOUTME: Audio output package for callback-driven playback
// ABOUTME: Provides the Device interface with malgo, oto and PortAudio backends
// Package output provides audio playback devices.
//
// A Device pulls interleaved float32 samples from a Callback on its own
// thread. A callback that has nothing to play returns false and the
// device buffer is left as it was. Start and Stop toggle the pull; SetSampleRate changes the
// playback rate so that speed changes are heard as resampling.
//
// Example:
//
//	dev, err := output.New("malgo")
//	err = dev.Init(output.Config{SampleRate: 48000, Channels: 2, Callback: fill})
//	err = dev.Start()
package output
