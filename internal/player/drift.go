// ABOUTME: Drift correction between the audio buffer and the playback clock
// ABOUTME: Chooses between doing nothing, moving the playhead or a full resync
package player

import (
	"fmt"
	"math"
)

// SyncState is the outcome of one drift check
type SyncState int

const (
	InSync SyncState = iota
	SoftAdjust
	HardResync
)

func (s SyncState) String() string {
	switch s {
	case InSync:
		return "in sync"
	case SoftAdjust:
		return "soft adjust"
	case HardResync:
		return "hard resync"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// Correction describes what CorrectDrift observed and did
type Correction struct {
	State      SyncState
	Desync     float64 // seconds
	ClockTime  float64
	BufferTime float64
	// Seeked reports whether a hard resync found a packet at or after the
	// clock. When false the packet cursor is not at the clock yet.
	Seeked bool
}

// CorrectDrift compares the audio buffer position with the clock and
// corrects it when they are more than threshold seconds apart. If the
// clock lies inside the buffered window the playhead is moved there.
// Otherwise the buffer is cleared to bufferFrames, restarted at the clock
// time, and the stream's packet cursor is seeked to match.
//
// The caller must hold the timeline lock.
func CorrectDrift(s *State, stream *Stream, threshold float64, bufferFrames int) Correction {
	a := s.Audio
	c := Correction{
		ClockTime:  s.Clock.Time(),
		BufferTime: a.Time(),
	}
	c.Desync = math.Abs(c.BufferTime - c.ClockTime)

	if c.Desync <= threshold {
		c.State = InSync
		return c
	}

	if c.ClockTime >= a.StartTime() && c.ClockTime <= a.EndTime() {
		a.SetTime(c.ClockTime)
		c.State = SoftAdjust
		return c
	}

	a.Clear(bufferFrames)
	a.SetStartTime(c.ClockTime)
	if stream != nil {
		c.Seeked = stream.Packets.SeekToTimestamp(stream.Info.PTS(c.ClockTime))
	}
	c.State = HardResync
	return c
}
