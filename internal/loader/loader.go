// ABOUTME: Background packet loader that fills per-stream packet queues
// ABOUTME: Reads from the demuxer only while every queue is below the reserve
package loader

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

// Config tunes the loader
type Config struct {
	Interval time.Duration
	Reserve  int // unread packets per stream before fetching pauses
	Batch    int // packets per fetch
}

// DefaultConfig returns the standard loader settings
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Millisecond,
		Reserve:  256,
		Batch:    20,
	}
}

// Stats tracks loader activity. PacketsRead counts queued packets only;
// packets for unknown streams are counted in Discarded.
type Stats struct {
	Fetches     int64
	PacketsRead int64
	Discarded   int64
	Errors      int64
}

// Loader moves packets from a demuxer into the timeline's packet queues
type Loader struct {
	timeline *player.Timeline
	demuxer  media.Demuxer
	debug    *debug.Log
	cfg      Config

	fetches     atomic.Int64
	packetsRead atomic.Int64
	discarded   atomic.Int64
	errors      atomic.Int64
}

// New creates a loader
func New(t *player.Timeline, d media.Demuxer, dbg *debug.Log, cfg Config) *Loader {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Reserve <= 0 {
		cfg.Reserve = def.Reserve
	}
	if cfg.Batch <= 0 {
		cfg.Batch = def.Batch
	}
	return &Loader{
		timeline: t,
		demuxer:  d,
		debug:    dbg,
		cfg:      cfg,
	}
}

// ShouldFetch reports whether every stream has fewer unread packets than
// the reserve and the source is not exhausted. The caller must hold the
// timeline lock.
func (l *Loader) ShouldFetch(st *player.State) bool {
	if st.AllPacketsRead {
		return false
	}
	for _, s := range st.Streams {
		if s.Packets.Pending() >= l.cfg.Reserve {
			return false
		}
	}
	return true
}

// FetchNext reads up to n packets from the demuxer and routes each to its
// stream's queue. Packets for streams without a queue are freed and not
// counted. It returns the number of packets queued. End of stream sets
// AllPacketsRead; other demuxer errors end the fetch early without
// setting it.
func (l *Loader) FetchNext(n int) int {
	l.fetches.Add(1)

	queued := 0
	for read := 0; read < n; read++ {
		pkt, err := l.demuxer.ReadPacket()
		if err != nil {
			if errors.Is(err, media.ErrEndOfStream) {
				l.timeline.Do(func(st *player.State) {
					st.AllPacketsRead = true
				})
				log.Printf("All packets read (%d queued, %d discarded)", l.packetsRead.Load(), l.discarded.Load())
				return queued
			}
			l.errors.Add(1)
			l.debug.Add(debug.SourceLoader, debug.TypeError, "Packet Read", "%v", err)
			return queued
		}

		routed := false
		l.timeline.Do(func(st *player.State) {
			if s := st.StreamByIndex(pkt.StreamIndex()); s != nil {
				s.Packets.PushBack(pkt)
				routed = true
			}
		})
		if !routed {
			pkt.Free()
			l.discarded.Add(1)
			continue
		}
		queued++
		l.packetsRead.Add(1)
	}
	return queued
}

// Tick fetches one batch if the queues have room. It returns the number of
// packets queued.
func (l *Loader) Tick() int {
	var fetch bool
	l.timeline.Do(func(st *player.State) {
		fetch = l.ShouldFetch(st)
	})
	if !fetch {
		return 0
	}
	return l.FetchNext(l.cfg.Batch)
}

// Run ticks until ctx is done or the source is exhausted
func (l *Loader) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Tick()

			var done bool
			l.timeline.Do(func(st *player.State) {
				done = st.AllPacketsRead
			})
			if done {
				log.Printf("Loader finished")
				return nil
			}
		}
	}
}

// Stats returns loader counters
func (l *Loader) Stats() Stats {
	return Stats{
		Fetches:     l.fetches.Load(),
		PacketsRead: l.packetsRead.Load(),
		Discarded:   l.discarded.Load(),
		Errors:      l.errors.Load(),
	}
}
