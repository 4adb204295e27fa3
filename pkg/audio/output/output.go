// ABOUTME: Audio output device interface for callback-driven playback
// ABOUTME: Devices pull interleaved float32 samples from a callback
package output

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when a device is used before Init
var ErrNotInitialized = errors.New("output: device not initialized")

// State is the running state of a device
type State int

const (
	Stopped State = iota
	Started
)

func (s State) String() string {
	if s == Started {
		return "started"
	}
	return "stopped"
}

// Callback fills out with interleaved float32 samples and reports whether
// it wrote them. When it returns false the device leaves its own buffer
// as it was. It runs on the device thread and must not block.
type Callback func(out []float32) bool

// Config describes the stream a device plays
type Config struct {
	SampleRate int
	Channels   int
	Callback   Callback
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", c.Channels)
	}
	if c.Callback == nil {
		return errors.New("missing callback")
	}
	return nil
}

// Device is an audio output that pulls samples through a callback
type Device interface {
	// Init opens the device stopped
	Init(cfg Config) error
	Start() error
	// Stop waits for any running callback to return
	Stop() error
	State() State
	SampleRate() int
	// SetSampleRate changes the playback rate, keeping the running state
	SetSampleRate(rate int) error
	Close() error
}

// Names lists the available device backends
var Names = []string{"malgo", "oto", "portaudio"}

// New returns the device backend with the given name
func New(name string) (Device, error) {
	switch name {
	case "", "malgo":
		return NewMalgo(), nil
	case "oto":
		return NewOto(), nil
	case "portaudio":
		return NewPortAudio(), nil
	default:
		return nil, fmt.Errorf("unknown audio output %q", name)
	}
}
