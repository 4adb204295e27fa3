// ABOUTME: Session configuration with defaults and validation
// ABOUTME: Zero fields are filled with the standard playback settings
package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	psync "github.com/cobyj33/ascii-video/internal/sync"
	"github.com/cobyj33/ascii-video/pkg/audio/output"
)

// Backends lists the accepted demuxer backends
var Backends = []string{"auto", "ffmpeg", "native"}

// Config holds session configuration
type Config struct {
	Path    string
	Backend string
	Output  string

	LoaderInterval time.Duration
	AudioInterval  time.Duration
	VideoInterval  time.Duration

	PacketReserve   int // unread packets per stream before the loader pauses
	FetchBatch      int
	InitialPrefetch int

	DriftThreshold     float64 // seconds
	AudioBufferSize    int     // frames
	MaxAudioBufferSize int     // frames
	SampleRate         int     // 0 keeps the stream's rate

	DebugMessages int
	Volume        float64
	Speed         float64
	VideoWidth    int // maximum decoded width in pixels
}

// DefaultConfig returns the standard settings for path
func DefaultConfig(path string) Config {
	return Config{Path: path, Volume: 1.0}.withDefaults()
}

// withDefaults fills every zero field except Volume, where zero is a
// valid setting
func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = "auto"
	}
	if c.Output == "" {
		c.Output = "malgo"
	}
	if c.LoaderInterval == 0 {
		c.LoaderInterval = 30 * time.Millisecond
	}
	if c.AudioInterval == 0 {
		c.AudioInterval = 3 * time.Millisecond
	}
	if c.VideoInterval == 0 {
		c.VideoInterval = 10 * time.Millisecond
	}
	if c.PacketReserve == 0 {
		c.PacketReserve = 256
	}
	if c.FetchBatch == 0 {
		c.FetchBatch = 20
	}
	if c.InitialPrefetch == 0 {
		c.InitialPrefetch = 5000
	}
	if c.DriftThreshold == 0 {
		c.DriftThreshold = 0.15
	}
	if c.AudioBufferSize == 0 {
		c.AudioBufferSize = 8192
	}
	if c.MaxAudioBufferSize == 0 {
		c.MaxAudioBufferSize = 524288
	}
	if c.DebugMessages == 0 {
		c.DebugMessages = 100
	}
	if c.Speed == 0 {
		c.Speed = 1.0
	}
	if c.VideoWidth == 0 {
		c.VideoWidth = 320
	}
	return c
}

// Validate checks the configuration after defaults are applied
func (c Config) Validate() error {
	var errs []error

	if c.Path == "" {
		errs = append(errs, errors.New("missing media path"))
	}
	if !slices.Contains(Backends, c.Backend) {
		errs = append(errs, fmt.Errorf("unknown backend %q (want one of %v)", c.Backend, Backends))
	}
	if !slices.Contains(output.Names, c.Output) {
		errs = append(errs, fmt.Errorf("unknown output %q (want one of %v)", c.Output, output.Names))
	}
	if c.LoaderInterval < 0 || c.AudioInterval < 0 || c.VideoInterval < 0 {
		errs = append(errs, errors.New("intervals must be positive"))
	}
	if c.PacketReserve < 1 || c.FetchBatch < 1 || c.InitialPrefetch < 0 {
		errs = append(errs, errors.New("packet reserve and fetch batch must be at least 1"))
	}
	if c.DriftThreshold <= 0 {
		errs = append(errs, fmt.Errorf("drift threshold must be positive, got %v", c.DriftThreshold))
	}
	if c.AudioBufferSize < 1 || c.MaxAudioBufferSize < c.AudioBufferSize {
		errs = append(errs, fmt.Errorf("audio buffer size %d must be positive and at most %d",
			c.AudioBufferSize, c.MaxAudioBufferSize))
	}
	if c.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("invalid sample rate %d", c.SampleRate))
	}
	if c.DebugMessages < 1 {
		errs = append(errs, errors.New("debug message capacity must be at least 1"))
	}
	if c.Volume < 0 || c.Volume > 1 {
		errs = append(errs, fmt.Errorf("volume %v outside [0, 1]", c.Volume))
	}
	if c.Speed < psync.MinSpeed || c.Speed > psync.MaxSpeed {
		errs = append(errs, fmt.Errorf("speed %v outside [%v, %v]", c.Speed, psync.MinSpeed, psync.MaxSpeed))
	}
	if c.VideoWidth < 1 {
		errs = append(errs, fmt.Errorf("invalid video width %d", c.VideoWidth))
	}

	return errors.Join(errs...)
}
