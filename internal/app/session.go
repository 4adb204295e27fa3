// ABOUTME: Playback session orchestrating the loader, audio and video services
// ABOUTME: Owns the demuxer, decoders and device and exposes transport controls
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cobyj33/ascii-video/internal/debug"
	"github.com/cobyj33/ascii-video/internal/loader"
	"github.com/cobyj33/ascii-video/internal/player"
	"github.com/cobyj33/ascii-video/internal/video"
	"github.com/cobyj33/ascii-video/pkg/audio"
	"github.com/cobyj33/ascii-video/pkg/audio/output"
	"github.com/cobyj33/ascii-video/pkg/media"
	"github.com/cobyj33/ascii-video/pkg/media/ffmpeg"
	"github.com/cobyj33/ascii-video/pkg/media/native"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSessionInUse is returned when Run is called on a running session
	ErrSessionInUse = errors.New("app: session already in use")

	// ErrSessionClosed is returned when Run is called after a session ended
	ErrSessionClosed = errors.New("app: session closed")
)

// endCheckInterval is how often Run checks for the end of the media
const endCheckInterval = 100 * time.Millisecond

// Status is a snapshot of the session for display
type Status struct {
	ID       string
	Path     string
	Time     float64
	Duration float64
	Playing  bool
	Speed    float64
	Volume   float64

	AllPacketsRead bool
	// BufferedAudio is the audio buffered ahead of the playhead in seconds
	BufferedAudio float64

	Audio    *media.StreamInfo
	Video    *media.StreamInfo
	AudioRun player.AudioStats
	Loader   loader.Stats
	VideoRun video.Stats
}

// Session plays one media file
type Session struct {
	id       string
	cfg      Config
	demuxer  media.Demuxer
	timeline *player.Timeline
	debug    *debug.Log
	loader   *loader.Loader

	audioInfo *media.StreamInfo
	pipeline  *player.Pipeline
	device    output.Device
	audio     *player.AudioService

	videoInfo    *media.StreamInfo
	videoDecoder media.VideoDecoder
	video        *video.Service

	inUse  atomic.Bool
	closed atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New opens cfg.Path and prepares a session
func New(cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	demuxer, err := OpenDemuxer(cfg.Backend, cfg.Path)
	if err != nil {
		return nil, err
	}

	s, err := newSession(cfg, demuxer, output.New)
	if err != nil {
		demuxer.Close()
		return nil, err
	}
	return s, nil
}

// OpenDemuxer opens path with the named backend. Auto tries ffmpeg first
// and falls back to the native decoders for the formats they support.
func OpenDemuxer(backend, path string) (media.Demuxer, error) {
	if backend != "native" {
		d, err := ffmpeg.Open(path)
		if err == nil {
			return d, nil
		}
		if backend == "ffmpeg" || !native.Supported(path) {
			return nil, err
		}
		log.Printf("ffmpeg open failed (%v), trying native decoders", err)
	}

	d, err := native.Open(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// newSession wires a session around an open demuxer
func newSession(cfg Config, demuxer media.Demuxer, newDevice func(string) (output.Device, error)) (*Session, error) {
	cfg = cfg.withDefaults()

	s := &Session{
		id:      uuid.New().String(),
		cfg:     cfg,
		demuxer: demuxer,
		debug:   debug.New(cfg.DebugMessages),
		done:    make(chan struct{}),
	}
	s.debug.MirrorTo(fmt.Sprintf("[%s] ", s.ShortID()))

	streams := demuxer.Streams()
	var monitored []media.StreamInfo
	if info, ok := media.FindStream(streams, media.MediaTypeAudio); ok {
		s.audioInfo = &info
		monitored = append(monitored, info)
	}
	if info, ok := media.FindStream(streams, media.MediaTypeVideo); ok {
		s.videoInfo = &info
		monitored = append(monitored, info)
	}
	if len(monitored) == 0 {
		return nil, fmt.Errorf("no audio or video stream in %s", cfg.Path)
	}

	s.timeline = player.NewTimeline(monitored, demuxer.Duration())
	s.timeline.Do(func(st *player.State) {
		st.Clock.SetVolume(cfg.Volume)
		st.Clock.SetSpeed(cfg.Speed)
	})

	s.loader = loader.New(s.timeline, demuxer, s.debug, loader.Config{
		Interval: cfg.LoaderInterval,
		Reserve:  cfg.PacketReserve,
		Batch:    cfg.FetchBatch,
	})

	if s.audioInfo != nil {
		if err := s.setupAudio(newDevice); err != nil {
			s.debug.Add(debug.SourceSession, debug.TypeError, "Audio Setup", "%v", err)
		}
	}
	if s.videoInfo != nil {
		if err := s.setupVideo(); err != nil {
			s.debug.Add(debug.SourceSession, debug.TypeError, "Video Setup", "%v", err)
		}
	}

	log.Printf("[%s] Session opened: %s (%.2fs, %d streams)", s.ShortID(), cfg.Path, demuxer.Duration(), len(streams))
	return s, nil
}

// setupAudio creates the decoder, resampler and device for the audio
// stream. The buffer and device take the resampler's output format, which
// is cfg.SampleRate when set and may downmix the stream's channels.
func (s *Session) setupAudio(newDevice func(string) (output.Device, error)) error {
	info := *s.audioInfo

	dec, err := s.demuxer.NewAudioDecoder(info.Index)
	if err != nil {
		return fmt.Errorf("audio decoder: %w", err)
	}
	res, err := s.demuxer.NewAudioResampler(info.Index, s.cfg.SampleRate)
	if err != nil {
		dec.Close()
		return fmt.Errorf("audio resampler: %w", err)
	}
	info.SampleRate = res.SampleRate()
	info.Channels = res.Channels()
	if info.SampleRate <= 0 || info.Channels <= 0 {
		dec.Close()
		res.Close()
		return fmt.Errorf("audio resampler: invalid output format %dHz %dch", info.SampleRate, info.Channels)
	}

	dev, err := newDevice(s.cfg.Output)
	if err != nil {
		dec.Close()
		res.Close()
		return fmt.Errorf("audio output: %w", err)
	}
	format := audio.Format{Codec: info.Codec, SampleRate: info.SampleRate, Channels: info.Channels, BitDepth: 8}
	log.Printf("[%s] Audio %s %dHz %dch, %d buffer bytes/s", s.ShortID(), format.Codec, format.SampleRate, format.Channels, format.BytesPerSecond())

	s.pipeline = player.NewPipeline(dec, res)
	s.device = dev
	s.audio = player.NewAudioService(s.timeline, dev, s.pipeline, s.debug, info, player.AudioConfig{
		Interval:       s.cfg.AudioInterval,
		DriftThreshold: s.cfg.DriftThreshold,
		BufferFrames:   s.cfg.AudioBufferSize,
		MaxFrames:      s.cfg.MaxAudioBufferSize,
	})
	return nil
}

func (s *Session) setupVideo() error {
	dec, err := s.demuxer.NewVideoDecoder(s.videoInfo.Index, s.cfg.VideoWidth)
	if err != nil {
		return fmt.Errorf("video decoder: %w", err)
	}
	s.videoDecoder = dec
	s.video = video.NewService(s.timeline, dec, s.debug, *s.videoInfo, s.cfg.VideoInterval)
	return nil
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// ShortID returns the first block of the session id for log prefixes
func (s *Session) ShortID() string {
	return s.id[:8]
}

// Run plays the media until ctx is done, Stop is called or the media
// ends. Resources are released before Run returns and the session cannot
// be run again.
func (s *Session) Run(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.inUse.CompareAndSwap(false, true) {
		return ErrSessionInUse
	}
	defer s.inUse.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.timeline.Do(func(st *player.State) {
		st.Clock.Start()
	})

	n := s.loader.FetchNext(s.cfg.InitialPrefetch)
	log.Printf("[%s] Prefetched %d packets", s.ShortID(), n)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loader.Run(gctx)
	})
	if s.audio != nil {
		g.Go(func() error {
			return s.audio.Run(gctx)
		})
	}
	if s.video != nil {
		g.Go(func() error {
			return s.video.Run(gctx)
		})
	}
	g.Go(func() error {
		s.watchEnd(gctx, cancel)
		return nil
	})

	err := g.Wait()

	s.timeline.Do(func(st *player.State) {
		st.Clock.SetPlaying(false)
	})
	s.release()
	close(s.done)

	log.Printf("[%s] Session ended", s.ShortID())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchEnd cancels playback once every packet is read and the clock has
// passed the media duration
func (s *Session) watchEnd(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(endCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var ended bool
			s.timeline.Do(func(st *player.State) {
				ended = st.AllPacketsRead && st.Duration > 0 && st.Clock.Time() >= st.Duration
			})
			if ended {
				log.Printf("[%s] Reached end of media", s.ShortID())
				cancel()
				return
			}
		}
	}
}

// release frees packets and closes decoders and the demuxer
func (s *Session) release() {
	s.closed.Store(true)
	s.timeline.Close()

	if s.pipeline != nil {
		if err := s.pipeline.Close(); err != nil {
			log.Printf("[%s] Audio pipeline close error: %v", s.ShortID(), err)
		}
	}
	if s.videoDecoder != nil {
		if err := s.videoDecoder.Close(); err != nil {
			log.Printf("[%s] Video decoder close error: %v", s.ShortID(), err)
		}
	}
	if err := s.demuxer.Close(); err != nil {
		log.Printf("[%s] Demuxer close error: %v", s.ShortID(), err)
	}
}

// Stop ends a running session
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Done is closed once Run has returned
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// TogglePlaying flips play and pause and returns the new state
func (s *Session) TogglePlaying() bool {
	var playing bool
	s.timeline.Do(func(st *player.State) {
		playing = st.Clock.TogglePlaying()
	})
	return playing
}

// AdjustVolume changes the volume by delta and returns the new volume
func (s *Session) AdjustVolume(delta float64) float64 {
	var volume float64
	s.timeline.Do(func(st *player.State) {
		st.Clock.SetVolume(st.Clock.Volume() + delta)
		volume = st.Clock.Volume()
	})
	return volume
}

// AdjustSpeed changes the speed by delta and returns the new speed
func (s *Session) AdjustSpeed(delta float64) float64 {
	var speed float64
	s.timeline.Do(func(st *player.State) {
		st.Clock.SetSpeed(st.Clock.Speed() + delta)
		speed = st.Clock.Speed()
	})
	return speed
}

// Jump moves playback by delta seconds. A target at or past the end of
// the media stops the session and reports ended.
func (s *Session) Jump(delta float64) (target float64, ended bool) {
	s.timeline.Do(func(st *player.State) {
		target = st.Clock.Time() + delta
		if st.Duration > 0 && target >= st.Duration {
			ended = true
			return
		}
		target = st.JumpToTime(target)
	})

	if ended {
		log.Printf("[%s] Jump to %.2fs is past the end", s.ShortID(), target)
		s.Stop()
	}
	return target, ended
}

// Status returns a snapshot for display
func (s *Session) Status() Status {
	st := Status{
		ID:     s.id,
		Path:   s.cfg.Path,
		Audio:  s.audioInfo,
		Video:  s.videoInfo,
		Loader: s.loader.Stats(),
	}
	if s.audio != nil {
		st.AudioRun = s.audio.Stats()
	}
	if s.video != nil {
		st.VideoRun = s.video.Stats()
	}

	s.timeline.Do(func(state *player.State) {
		st.Time = state.Clock.Time()
		st.Duration = state.Duration
		st.Playing = state.Clock.Playing()
		st.Speed = state.Clock.Speed()
		st.Volume = state.Clock.Volume()
		st.AllPacketsRead = state.AllPacketsRead
		if state.Audio.Initialized() {
			st.BufferedAudio = state.Audio.EndTime() - state.Audio.Time()
		}
	})
	return st
}

// Frame returns the current video frame, or nil
func (s *Session) Frame() *media.VideoFrame {
	var frame *media.VideoFrame
	s.timeline.Do(func(st *player.State) {
		frame = st.Frame
	})
	return frame
}

// Waveform returns up to n samples at the audio playhead
func (s *Session) Waveform(n int) []float32 {
	out := make([]float32, n)
	var got int
	s.timeline.Do(func(st *player.State) {
		got = st.Audio.Peek(out)
	})
	return out[:got]
}

// Debug returns the session debug log
func (s *Session) Debug() *debug.Log {
	return s.debug
}
