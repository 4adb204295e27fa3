//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

func (p *PortAudio) Init(cfg Config) error        { return errPortAudioDisabled }
func (p *PortAudio) Start() error                 { return errPortAudioDisabled }
func (p *PortAudio) Stop() error                  { return errPortAudioDisabled }
func (p *PortAudio) State() State                 { return Stopped }
func (p *PortAudio) SampleRate() int              { return 0 }
func (p *PortAudio) SetSampleRate(rate int) error { return errPortAudioDisabled }
func (p *PortAudio) Close() error                 { return nil }
