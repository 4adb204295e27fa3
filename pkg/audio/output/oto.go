// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds an oto player from the callback through an io.Reader
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library. Oto allows one context per
// process, so the sample rate is fixed after Init.
type Oto struct {
	mu      sync.Mutex
	otoCtx  *oto.Context
	player  *oto.Player
	cfg     Config
	state   State
	warned  bool
	scratch []float32
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{}
}

// Init creates the oto context and a paused player
func (o *Oto) Init(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("oto init: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		return fmt.Errorf("oto context already initialized")
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.cfg = cfg
	o.player = ctx.NewPlayer(&callbackReader{o: o})
	o.state = Stopped

	log.Printf("Audio output initialized: %dHz, %d channels (oto/F32)", cfg.SampleRate, cfg.Channels)
	return nil
}

// callbackReader turns oto's pull reads into callback invocations
type callbackReader struct {
	o *Oto
}

func (r *callbackReader) Read(p []byte) (int, error) {
	o := r.o
	frameBytes := 4 * o.cfg.Channels
	n := (len(p) / frameBytes) * o.cfg.Channels
	if n == 0 {
		return 0, nil
	}
	if cap(o.scratch) < n {
		o.scratch = make([]float32, n)
	}
	samples := o.scratch[:n]

	if !o.cfg.Callback(samples) {
		return n * 4, nil
	}
	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}

// Start resumes the player
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotInitialized
	}
	o.player.Play()
	o.state = Started
	return nil
}

// Stop pauses the player
func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotInitialized
	}
	o.player.Pause()
	o.state = Stopped
	return nil
}

// State returns whether the player is running
func (o *Oto) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SampleRate returns the context sample rate
func (o *Oto) SampleRate() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg.SampleRate
}

// SetSampleRate records the request; oto cannot reopen its context
func (o *Oto) SetSampleRate(rate int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotInitialized
	}
	if rate != o.cfg.SampleRate && !o.warned {
		log.Printf("Warning: oto cannot change sample rate (%dHz -> %dHz), speed changes are corrected by resync only",
			o.cfg.SampleRate, rate)
		o.warned = true
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
	}
	o.state = Stopped
	return nil
}
