// ABOUTME: Shared playback state guarded by a single coarse lock
// ABOUTME: Workers reach the clock, packet queues and audio buffer only through Do
package player

import (
	"log"
	"sync"

	"github.com/cobyj33/ascii-video/internal/queue"
	psync "github.com/cobyj33/ascii-video/internal/sync"
	"github.com/cobyj33/ascii-video/pkg/media"
)

// Stream pairs a stream's metadata with its packet log
type Stream struct {
	Info    media.StreamInfo
	Packets *queue.Queue[media.Packet]
}

// State is everything shared between the loader, the audio and video
// services, the device callback and the transport controls. It is only
// reachable inside Timeline.Do.
type State struct {
	Clock    *psync.Clock
	Streams  []*Stream
	Audio    *AudioStream
	Frame    *media.VideoFrame
	Duration float64 // seconds

	// AllPacketsRead is set once the demuxer is exhausted and never cleared
	AllPacketsRead bool

	videoFlush bool
}

// Stream returns the first stream of type t, or nil
func (s *State) Stream(t media.MediaType) *Stream {
	for _, st := range s.Streams {
		if st.Info.Type == t {
			return st
		}
	}
	return nil
}

// StreamByIndex returns the stream with the container index i, or nil
func (s *State) StreamByIndex(i int) *Stream {
	for _, st := range s.Streams {
		if st.Info.Index == i {
			return st
		}
	}
	return nil
}

// JumpToTime moves playback to target seconds, clamped to the media
// duration, and returns the clamped target. Video queues are moved back to
// the keyframe at or before the target. The audio queue is left for the
// drift corrector to resync on its next cycle.
func (s *State) JumpToTime(target float64) float64 {
	if target < 0 {
		target = 0
	}
	if s.Duration > 0 && target > s.Duration {
		target = s.Duration
	}

	s.Clock.Seek(target)

	for _, st := range s.Streams {
		if st.Info.Type == media.MediaTypeAudio {
			continue
		}
		st.Packets.SeekToTimestamp(st.Info.PTS(target))
		backToKeyframe(st.Packets)
		if st.Info.Type == media.MediaTypeVideo {
			s.Frame = nil
			s.RequestVideoFlush()
		}
	}

	log.Printf("Jumped to %.3fs", target)
	return target
}

// RequestVideoFlush asks the video service to flush its decoder and
// restart from the video cursor
func (s *State) RequestVideoFlush() {
	s.videoFlush = true
}

// TakeVideoFlush reports and clears a pending video decoder flush
func (s *State) TakeVideoFlush() bool {
	flush := s.videoFlush
	s.videoFlush = false
	return flush
}

func backToKeyframe(q *queue.Queue[media.Packet]) {
	for pos := q.Pos(); pos > 0; pos-- {
		pkt, _ := q.At(pos)
		if pkt != nil && pkt.Keyframe() {
			q.SetPos(pos)
			return
		}
	}
	q.SetPos(0)
}

// ReadResult reports what a device read produced
type ReadResult int

const (
	ReadOK ReadResult = iota
	ReadSilence
	ReadUnderrun
)

// Timeline owns the playback State and the lock that serializes access
// to it
type Timeline struct {
	mu    sync.Mutex
	state State
}

// NewTimeline creates a timeline with one packet queue per stream
func NewTimeline(streams []media.StreamInfo, duration float64) *Timeline {
	t := &Timeline{
		state: State{
			Clock:    psync.NewClock(),
			Audio:    NewAudioStream(),
			Duration: duration,
		},
	}
	for _, info := range streams {
		t.state.Streams = append(t.state.Streams, &Stream{
			Info:    info,
			Packets: queue.New[media.Packet](),
		})
	}
	return t
}

// Do runs fn with exclusive access to the state. fn must not block and
// must not keep references to the state after returning.
func (t *Timeline) Do(fn func(*State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.state)
}

// ReadAudio fills out from the audio buffer at the clock volume. It is the
// device callback path and does not allocate. Before the audio buffer is
// initialized out is zeroed; on underrun it is left as it was.
func (t *Timeline) ReadAudio(out []float32) ReadResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	a := t.state.Audio
	if !a.Initialized() {
		clear(out)
		return ReadSilence
	}
	if !a.Read(out, float32(t.state.Clock.Volume())) {
		return ReadUnderrun
	}
	return ReadOK
}

// Close frees every queued packet. No worker may use the timeline after
// Close.
func (t *Timeline) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	freed := 0
	for _, st := range t.state.Streams {
		st.Packets.Each(func(_ int, pkt media.Packet) {
			if pkt != nil {
				pkt.Free()
				freed++
			}
		})
		st.Packets.Reset()
	}
	t.state.Frame = nil
	log.Printf("Timeline closed, freed %d packets", freed)
}
