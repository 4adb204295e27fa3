//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform callback output using PortAudio
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	cfg    Config
	state  State
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Init initializes PortAudio and opens a stopped stream
func (p *PortAudio) Init(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg = cfg
	if err := p.openStream(); err != nil {
		portaudio.Terminate()
		return err
	}
	log.Printf("Audio output initialized: %dHz, %d channels (portaudio/F32)", cfg.SampleRate, cfg.Channels)
	return nil
}

// openStream opens the default stream for p.cfg (must hold p.mu)
func (p *PortAudio) openStream() error {
	callback := p.cfg.Callback
	stream, err := portaudio.OpenDefaultStream(0, p.cfg.Channels, float64(p.cfg.SampleRate), 0, func(out []float32) {
		callback(out)
	})
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	p.stream = stream
	p.state = Stopped
	return nil
}

// Start begins the stream
func (p *PortAudio) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotInitialized
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	p.state = Started
	return nil
}

// Stop halts the stream after pending buffers play
func (p *PortAudio) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotInitialized
	}
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	p.state = Stopped
	return nil
}

// State returns whether the stream is running
func (p *PortAudio) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SampleRate returns the stream sample rate
func (p *PortAudio) SampleRate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.SampleRate
}

// SetSampleRate reopens the stream at rate
func (p *PortAudio) SetSampleRate(rate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotInitialized
	}
	if rate == p.cfg.SampleRate {
		return nil
	}

	wasStarted := p.state == Started
	if wasStarted {
		p.stream.Stop()
	}
	p.stream.Close()
	p.cfg.SampleRate = rate
	if err := p.openStream(); err != nil {
		p.stream = nil
		return err
	}
	if wasStarted {
		if err := p.stream.Start(); err != nil {
			return fmt.Errorf("failed to restart stream: %w", err)
		}
		p.state = Started
	}
	return nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		if p.state == Started {
			if err := p.stream.Stop(); err != nil {
				log.Printf("Warning: portaudio stop error: %v", err)
			}
		}
		if err := p.stream.Close(); err != nil {
			return err
		}
		p.stream = nil
	}
	return portaudio.Terminate()
}
