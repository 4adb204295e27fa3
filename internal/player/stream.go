// ABOUTME: Growable audio sample buffer read by the device callback
// ABOUTME: Holds quantized interleaved samples, a playhead and the buffer start time
package player

import (
	"log"
	"math"

	"github.com/cobyj33/ascii-video/pkg/audio"
)

// AudioStream is the decoded audio buffer for playback. Samples are stored
// interleaved as uint8 and both the playhead and the length count
// individual samples, not frames, so one second of audio is
// sampleRate*channels samples.
//
// Capacity doubles on overflow up to the configured maximum. At the
// maximum, samples before the playhead are discarded and startTime moves
// forward to match; if the frame still does not fit it is dropped.
//
// AudioStream has no lock of its own; it is guarded by the timeline lock.
type AudioStream struct {
	samples     []uint8
	nbSamples   int
	playhead    int
	channels    int
	sampleRate  int
	startTime   float64
	maxSamples  int
	initialized bool
}

// NewAudioStream returns an uninitialized stream. Reads produce silence
// until Init is called.
func NewAudioStream() *AudioStream {
	return &AudioStream{}
}

// Init allocates the buffer for the given format. Sizes are in frames.
func (s *AudioStream) Init(sampleRate, channels, capacityFrames, maxFrames int) {
	if channels < 1 {
		channels = 1
	}
	if capacityFrames < 1 {
		capacityFrames = 1
	}
	if maxFrames < capacityFrames {
		maxFrames = capacityFrames
	}

	s.samples = make([]uint8, capacityFrames*channels)
	s.nbSamples = 0
	s.playhead = 0
	s.channels = channels
	s.sampleRate = sampleRate
	s.maxSamples = maxFrames * channels
	s.initialized = true
}

// Initialized reports whether Init has been called
func (s *AudioStream) Initialized() bool {
	return s.initialized
}

// Append quantizes interleaved float samples onto the end of the buffer.
// It returns false if the samples were dropped.
func (s *AudioStream) Append(samples []float32) bool {
	if !s.initialized {
		return false
	}
	if len(samples) == 0 {
		return true
	}
	if !s.reserve(len(samples)) {
		return false
	}

	s.nbSamples += audio.QuantizeSamples(s.samples[s.nbSamples:], samples)
	return true
}

// reserve makes room for n more samples
func (s *AudioStream) reserve(n int) bool {
	needed := s.nbSamples + n
	if needed <= len(s.samples) {
		return true
	}

	capacity := len(s.samples)
	for capacity < needed && capacity < s.maxSamples {
		capacity *= 2
	}
	if capacity > s.maxSamples {
		capacity = s.maxSamples
	}

	if needed > capacity {
		s.compact()
		needed = s.nbSamples + n
		if needed > capacity {
			log.Printf("Audio buffer full at %d samples, dropping %d samples", capacity, n)
			return false
		}
	}

	if capacity > len(s.samples) {
		grown := make([]uint8, capacity)
		copy(grown, s.samples[:s.nbSamples])
		s.samples = grown
	}
	return true
}

// compact discards everything before the playhead
func (s *AudioStream) compact() {
	if s.playhead == 0 {
		return
	}
	// Keep whole frames so channels stay aligned
	drop := s.playhead - s.playhead%s.channels
	copy(s.samples, s.samples[drop:s.nbSamples])
	s.nbSamples -= drop
	s.playhead -= drop
	s.startTime += float64(drop) / float64(s.sampleRate*s.channels)
}

// Clear empties the buffer without releasing it. capacityFrames is the
// minimum capacity kept afterwards.
func (s *AudioStream) Clear(capacityFrames int) {
	s.nbSamples = 0
	s.playhead = 0
	if want := capacityFrames * s.channels; want > len(s.samples) {
		s.samples = make([]uint8, want)
	}
}

// Time returns the media time at the playhead in seconds
func (s *AudioStream) Time() float64 {
	return s.startTime + s.seconds(s.playhead)
}

// EndTime returns the media time just past the last buffered sample
func (s *AudioStream) EndTime() float64 {
	return s.startTime + s.seconds(s.nbSamples)
}

// SetTime moves the playhead to the sample for t, clamped to the buffered
// range and aligned to a frame boundary
func (s *AudioStream) SetTime(t float64) {
	if !s.initialized {
		return
	}
	pos := int(math.Round((t - s.startTime) * float64(s.sampleRate*s.channels)))
	pos -= pos % s.channels
	if pos < 0 {
		pos = 0
	}
	if pos > s.nbSamples {
		pos = s.nbSamples - s.nbSamples%s.channels
	}
	s.playhead = pos
}

// Read copies len(out) samples at the playhead into out, scaled by gain,
// and advances the playhead. If fewer samples are buffered, out is left
// untouched and false is returned.
func (s *AudioStream) Read(out []float32, gain float32) bool {
	n := len(out)
	if s.playhead+n >= s.nbSamples {
		return false
	}

	src := s.samples[s.playhead : s.playhead+n]
	for i, q := range src {
		out[i] = audio.Dequantize(q) * gain
	}
	s.playhead += n
	return true
}

// Peek copies up to len(out) samples at the playhead into out without
// advancing it and returns the number copied
func (s *AudioStream) Peek(out []float32) int {
	if !s.initialized {
		return 0
	}
	n := min(len(out), s.nbSamples-s.playhead)
	for i := 0; i < n; i++ {
		out[i] = audio.Dequantize(s.samples[s.playhead+i])
	}
	return n
}

func (s *AudioStream) seconds(samples int) float64 {
	if s.sampleRate == 0 || s.channels == 0 {
		return 0
	}
	return float64(samples) / float64(s.sampleRate*s.channels)
}

// Len returns the number of buffered samples
func (s *AudioStream) Len() int { return s.nbSamples }

// Cap returns the buffer capacity in samples
func (s *AudioStream) Cap() int { return len(s.samples) }

// Playhead returns the read position in samples
func (s *AudioStream) Playhead() int { return s.playhead }

// StartTime returns the media time of sample 0
func (s *AudioStream) StartTime() float64 { return s.startTime }

// SetStartTime sets the media time of sample 0
func (s *AudioStream) SetStartTime(t float64) { s.startTime = t }

// Channels returns the interleaved channel count
func (s *AudioStream) Channels() int { return s.channels }

// SampleRate returns the native sample rate of the buffered audio
func (s *AudioStream) SampleRate() int { return s.sampleRate }
