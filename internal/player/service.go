// ABOUTME: Audio service loop that feeds the audio buffer and keeps it in sync
// ABOUTME: Drives the output device from the clock and corrects drift each cycle
package player

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/cobyj33/ascii-video/internal/debug"
	"github.com/cobyj33/ascii-video/internal/queue"
	"github.com/cobyj33/ascii-video/pkg/audio/output"
	"github.com/cobyj33/ascii-video/pkg/media"
)

// AudioConfig tunes the audio service
type AudioConfig struct {
	Interval       time.Duration
	DriftThreshold float64 // seconds
	BufferFrames   int
	MaxFrames      int
}

// DefaultAudioConfig returns the standard audio service settings
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		Interval:       3 * time.Millisecond,
		DriftThreshold: 0.15,
		BufferFrames:   8192,
		MaxFrames:      524288,
	}
}

// AudioStats tracks audio service activity
type AudioStats struct {
	Cycles      int64
	Frames      int64
	Dropped     int64
	SoftAdjusts int64
	Resyncs     int64
	Bridge      BridgeStats
}

// AudioService moves audio from the packet queue into the audio buffer and
// keeps the buffer aligned with the clock
type AudioService struct {
	timeline *Timeline
	device   output.Device
	pipeline *Pipeline
	bridge   *Bridge
	debug    *debug.Log
	info     media.StreamInfo
	cfg      AudioConfig

	// fresh means the packet at the cursor has not been decoded yet
	fresh bool
	// seeking means a hard resync is waiting for packets at the clock
	seeking bool

	cycles      atomic.Int64
	frames      atomic.Int64
	dropped     atomic.Int64
	softAdjusts atomic.Int64
	resyncs     atomic.Int64
}

// NewAudioService creates the audio service for stream info
func NewAudioService(t *Timeline, dev output.Device, p *Pipeline, dbg *debug.Log, info media.StreamInfo, cfg AudioConfig) *AudioService {
	def := DefaultAudioConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.DriftThreshold <= 0 {
		cfg.DriftThreshold = def.DriftThreshold
	}
	if cfg.BufferFrames <= 0 {
		cfg.BufferFrames = def.BufferFrames
	}
	if cfg.MaxFrames < cfg.BufferFrames {
		cfg.MaxFrames = max(def.MaxFrames, cfg.BufferFrames)
	}

	return &AudioService{
		timeline: t,
		device:   dev,
		pipeline: p,
		bridge:   NewBridge(t),
		debug:    dbg,
		info:     info,
		cfg:      cfg,
		fresh:    true,
	}
}

// Run initializes the audio buffer and device, waits for the clock to
// reach the stream start and then cycles until ctx is done. Device
// failures are reported to the debug log and end the service without an
// error so that video keeps playing.
func (s *AudioService) Run(ctx context.Context) error {
	defer func() {
		if err := s.device.Close(); err != nil {
			log.Printf("Audio device close error: %v", err)
		}
	}()

	if err := s.prepare(); err != nil {
		s.debug.Add(debug.SourceAudio, debug.TypeError, "Audio Device", "%v", err)
		return nil
	}

	if err := s.waitForStart(ctx); err != nil {
		return nil
	}

	log.Printf("Audio service started: %s", s.info)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Audio service stopped")
			return nil
		case <-ticker.C:
			if err := s.Cycle(); err != nil {
				s.debug.Add(debug.SourceAudio, debug.TypeError, "Audio Device", "%v", err)
				return nil
			}
		}
	}
}

// prepare sizes the audio buffer and opens the device stopped
func (s *AudioService) prepare() error {
	s.timeline.Do(func(st *State) {
		st.Audio.Init(s.info.SampleRate, s.info.Channels, s.cfg.BufferFrames, s.cfg.MaxFrames)
		st.Audio.SetStartTime(s.info.StartTime)
	})

	err := s.device.Init(output.Config{
		SampleRate: s.info.SampleRate,
		Channels:   s.info.Channels,
		Callback:   s.bridge.Fill,
	})
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}
	return nil
}

// waitForStart blocks until the clock reaches the stream start time
func (s *AudioService) waitForStart(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		var now float64
		s.timeline.Do(func(st *State) {
			now = st.Clock.Time()
		})
		if now >= s.info.StartTime {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one duty cycle. Packets are taken from the queue under the
// timeline lock and decoded outside it. Device state changes also happen
// outside the lock because stopping a device waits for its callback,
// which takes the lock. Drift is corrected while paused too.
func (s *AudioService) Cycle() error {
	s.cycles.Add(1)

	var playing bool
	s.timeline.Do(func(st *State) {
		playing = st.Clock.Playing()
	})

	if err := s.syncDeviceState(playing); err != nil {
		return err
	}

	var frames []media.AudioFrame
	if playing && !s.seeking {
		var err error
		frames, err = s.pipeline.NextFrames(s.nextPacket)
		if err != nil {
			s.debug.Add(debug.SourceAudio, debug.TypeError, "Audio Decode", "%v", err)
		}
	}

	var rate int
	var flush bool
	s.timeline.Do(func(st *State) {
		for _, f := range frames {
			if st.Audio.Append(f.Samples) {
				s.frames.Add(1)
			} else {
				s.dropped.Add(1)
			}
		}

		stream := st.StreamByIndex(s.info.Index)
		if s.seeking {
			flush = s.retrySeek(st, stream)
		} else {
			flush = s.correct(st, stream)
		}
		rate = int(float64(s.info.SampleRate) * st.Clock.Speed())
	})

	if flush {
		s.pipeline.Flush()
	}

	if rate > 0 && rate != s.device.SampleRate() {
		if err := s.device.SetSampleRate(rate); err != nil {
			return fmt.Errorf("set sample rate %d: %w", rate, err)
		}
	}
	return nil
}

// nextPacket takes the next audio packet under the timeline lock
func (s *AudioService) nextPacket() media.Packet {
	var pkt media.Packet
	s.timeline.Do(func(st *State) {
		if stream := st.StreamByIndex(s.info.Index); stream != nil {
			pkt = s.next(stream.Packets)
		}
	})
	return pkt
}

// next returns the next packet to decode and leaves the cursor on it, or
// returns nil if none is loaded. After a start or resync the packet under
// the cursor comes first. Empty slots are skipped. Must hold the lock.
func (s *AudioService) next(q *queue.Queue[media.Packet]) media.Packet {
	for {
		if s.fresh {
			pkt, ok := q.Get()
			if !ok {
				return nil
			}
			s.fresh = false
			if pkt != nil {
				return pkt
			}
		}
		if !q.TryMove(1) {
			return nil
		}
		if pkt, _ := q.Get(); pkt != nil {
			return pkt
		}
	}
}

// correct runs drift correction and reports whether the decoder must be
// flushed (must hold the lock)
func (s *AudioService) correct(st *State, stream *Stream) bool {
	c := CorrectDrift(st, stream, s.cfg.DriftThreshold, s.cfg.BufferFrames)
	s.debug.Add(debug.SourceAudio, debug.TypeDebug, "Audio Desync",
		"desync=%.3fs clock=%.3fs buffer=%.3fs %s", c.Desync, c.ClockTime, c.BufferTime, c.State)

	switch c.State {
	case SoftAdjust:
		s.softAdjusts.Add(1)
	case HardResync:
		s.resyncs.Add(1)
		if c.Seeked {
			s.fresh = true
			return true
		}
		s.seeking = true
	}
	return false
}

// retrySeek looks again for a packet at the clock after a hard resync
// missed. Until one is loaded the buffer stays empty and restarts at the
// clock. It reports whether the seek landed (must hold the lock).
func (s *AudioService) retrySeek(st *State, stream *Stream) bool {
	clock := st.Clock.Time()
	st.Audio.Clear(s.cfg.BufferFrames)
	st.Audio.SetStartTime(clock)
	if stream == nil || !stream.Packets.SeekToTimestamp(stream.Info.PTS(clock)) {
		return false
	}
	s.seeking = false
	s.fresh = true
	return true
}

func (s *AudioService) syncDeviceState(playing bool) error {
	state := s.device.State()
	switch {
	case playing && state == output.Stopped:
		if err := s.device.Start(); err != nil {
			return fmt.Errorf("start device: %w", err)
		}
	case !playing && state == output.Started:
		if err := s.device.Stop(); err != nil {
			return fmt.Errorf("stop device: %w", err)
		}
	}
	return nil
}

// Stats returns service counters
func (s *AudioService) Stats() AudioStats {
	return AudioStats{
		Cycles:      s.cycles.Load(),
		Frames:      s.frames.Load(),
		Dropped:     s.dropped.Load(),
		SoftAdjusts: s.softAdjusts.Load(),
		Resyncs:     s.resyncs.Load(),
		Bridge:      s.bridge.Stats(),
	}
}
