// ABOUTME: Device output bridge called from the audio device callback
// ABOUTME: Copies buffered samples at the playhead without blocking on decode
package player

import (
	"sync/atomic"
)

// BridgeStats counts device callbacks by outcome
type BridgeStats struct {
	Filled    int64
	Silent    int64
	Underruns int64
}

// Bridge connects an output device callback to the timeline's audio buffer
type Bridge struct {
	timeline  *Timeline
	filled    atomic.Int64
	silent    atomic.Int64
	underruns atomic.Int64
}

// NewBridge creates a bridge reading from t
func NewBridge(t *Timeline) *Bridge {
	return &Bridge{timeline: t}
}

// Fill is the device callback. out holds interleaved float32 samples. It
// returns false on underrun, when out was left untouched.
func (b *Bridge) Fill(out []float32) bool {
	switch b.timeline.ReadAudio(out) {
	case ReadOK:
		b.filled.Add(1)
	case ReadSilence:
		b.silent.Add(1)
	case ReadUnderrun:
		b.underruns.Add(1)
		return false
	}
	return true
}

// Stats returns callback counters
func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		Filled:    b.filled.Load(),
		Silent:    b.silent.Load(),
		Underruns: b.underruns.Load(),
	}
}
