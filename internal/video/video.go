// ABOUTME: Video service that decodes frames up to the playback clock
// ABOUTME: Publishes the newest due frame to the timeline for rendering
package video

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/cobyj33/ascii-video/internal/debug"
	"github.com/cobyj33/ascii-video/internal/player"
	"github.com/cobyj33/ascii-video/pkg/media"
)

// Stats tracks video service activity
type Stats struct {
	Decoded   int64
	Published int64
	Errors    int64
}

// Service advances the video packet cursor with the clock. Packets are
// gathered under the timeline lock and decoded outside it.
type Service struct {
	timeline *player.Timeline
	decoder  media.VideoDecoder
	debug    *debug.Log
	info     media.StreamInfo
	interval time.Duration

	// fresh means the packet at the cursor has not been decoded yet
	fresh bool

	decoded   atomic.Int64
	published atomic.Int64
	errors    atomic.Int64
}

// NewService creates the video service for stream info
func NewService(t *player.Timeline, dec media.VideoDecoder, dbg *debug.Log, info media.StreamInfo, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Service{
		timeline: t,
		decoder:  dec,
		debug:    dbg,
		info:     info,
		interval: interval,
		fresh:    true,
	}
}

// Run cycles until ctx is done
func (s *Service) Run(ctx context.Context) error {
	log.Printf("Video service started: %s", s.info)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Video service stopped")
			return nil
		case <-ticker.C:
			s.Cycle()
		}
	}
}

// Cycle decodes every packet due by the clock and publishes the last
// frame produced. It reports whether a frame was published.
func (s *Service) Cycle() bool {
	var packets []media.Packet
	var flush bool

	s.timeline.Do(func(st *player.State) {
		if st.TakeVideoFlush() {
			flush = true
			s.fresh = true
		}
		stream := st.StreamByIndex(s.info.Index)
		if stream == nil {
			return
		}
		packets = s.due(stream, s.info.PTS(st.Clock.Time()))
	})

	if flush {
		s.decoder.Flush()
	}
	if len(packets) == 0 {
		return false
	}

	var latest *media.VideoFrame
	for _, pkt := range packets {
		frames, err := s.decoder.Decode(pkt)
		if err != nil {
			if !errors.Is(err, media.ErrNeedsMoreInput) {
				s.errors.Add(1)
				s.debug.Add(debug.SourceVideo, debug.TypeError, "Video Decode", "pts=%d: %v", pkt.PTS(), err)
			}
			continue
		}
		s.decoded.Add(int64(len(frames)))
		if len(frames) > 0 {
			latest = &frames[len(frames)-1]
		}
	}

	if latest == nil {
		return false
	}

	published := false
	s.timeline.Do(func(st *player.State) {
		// A jump while decoding makes this frame stale
		if st.TakeVideoFlush() {
			st.RequestVideoFlush()
			return
		}
		st.Frame = latest
		published = true
	})
	if published {
		s.published.Add(1)
	}
	return published
}

// due moves the cursor over every packet at or before target and returns
// them in order (must hold the lock)
func (s *Service) due(stream *player.Stream, target int64) []media.Packet {
	q := stream.Packets
	var packets []media.Packet

	if s.fresh {
		pkt, ok := q.Get()
		if !ok {
			return nil
		}
		if pkt != nil && pkt.PTS() > target {
			return nil
		}
		s.fresh = false
		if pkt != nil {
			packets = append(packets, pkt)
		}
	}

	for q.CanMove(1) {
		next, _ := q.At(q.Pos() + 1)
		if next != nil && next.PTS() > target {
			break
		}
		q.TryMove(1)
		if next != nil {
			packets = append(packets, next)
		}
	}
	return packets
}

// Stats returns service counters
func (s *Service) Stats() Stats {
	return Stats{
		Decoded:   s.decoded.Load(),
		Published: s.published.Load(),
		Errors:    s.errors.Load(),
	}
}
