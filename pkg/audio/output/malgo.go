// ABOUTME: Malgo-based audio output using miniaudio
// ABOUTME: Plays float32 samples and reinitializes the device to change rate
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	cfg      Config
	state    State

	// scratch is only touched from the device callback
	scratch []float32
}

// NewMalgo creates a new Malgo output
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Init opens the default playback device
func (m *Malgo) Init(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("malgo init: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	m.cfg = cfg
	// 100ms of samples covers typical period sizes
	m.scratch = make([]float32, cfg.SampleRate*cfg.Channels/10)
	return m.openDevice()
}

// openDevice creates the device for m.cfg (must hold m.mu)
func (m *Malgo) openDevice() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(m.cfg.Channels)
	deviceConfig.SampleRate = uint32(m.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	m.device = device
	m.state = Stopped
	log.Printf("Audio output initialized: %dHz, %d channels (malgo/F32)", m.cfg.SampleRate, m.cfg.Channels)
	return nil
}

// dataCallback is called by malgo to fill the output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	n := int(frameCount) * m.cfg.Channels
	if cap(m.scratch) < n {
		m.scratch = make([]float32, n)
	}
	samples := m.scratch[:n]

	if !m.cfg.Callback(samples) {
		return
	}
	for i, s := range samples {
		binary.LittleEndian.PutUint32(pOutput[i*4:], math.Float32bits(s))
	}
}

// Start begins pulling samples
func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotInitialized
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.state = Started
	return nil
}

// Stop halts playback
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotInitialized
	}
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	m.state = Stopped
	return nil
}

// State returns whether the device is running
func (m *Malgo) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SampleRate returns the current playback rate
func (m *Malgo) SampleRate() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.SampleRate
}

// SetSampleRate reopens the device at rate
func (m *Malgo) SetSampleRate(rate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotInitialized
	}
	if rate <= 0 {
		return fmt.Errorf("invalid sample rate %d", rate)
	}
	if rate == m.cfg.SampleRate {
		return nil
	}

	wasStarted := m.state == Started
	m.closeDevice()
	m.cfg.SampleRate = rate
	if err := m.openDevice(); err != nil {
		return err
	}
	if wasStarted {
		if err := m.device.Start(); err != nil {
			return fmt.Errorf("failed to restart device: %w", err)
		}
		m.state = Started
	}
	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if m.state == Started {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
	}
	m.device.Uninit()
	m.device = nil
	m.state = Stopped
}
