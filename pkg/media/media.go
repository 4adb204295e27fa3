// ABOUTME: Demuxer and decoder contracts consumed by the playback engine
// ABOUTME: Defines packets, stream metadata, frames and decode sentinel errors
package media

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfStream is returned by ReadPacket once the source is exhausted
	ErrEndOfStream = errors.New("media: end of stream")

	// ErrNeedsMoreInput is returned by a decoder that buffered the packet
	// without producing output yet
	ErrNeedsMoreInput = errors.New("media: decoder needs more input")
)

// MediaType classifies an elementary stream
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeAudio
	MediaTypeVideo
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeAudio:
		return "audio"
	case MediaTypeVideo:
		return "video"
	default:
		return "unknown"
	}
}

// StreamInfo describes one elementary stream of a container
type StreamInfo struct {
	Index     int
	Type      MediaType
	Codec     string
	TimeBase  float64 // seconds per pts tick
	StartTime float64 // seconds

	// Audio
	SampleRate int
	Channels   int

	// Video
	Width  int
	Height int
}

// Seconds converts a pts in this stream's timebase to seconds
func (s StreamInfo) Seconds(pts int64) float64 {
	return float64(pts) * s.TimeBase
}

// PTS converts seconds to a pts in this stream's timebase
func (s StreamInfo) PTS(seconds float64) int64 {
	if s.TimeBase <= 0 {
		return 0
	}
	return int64(seconds / s.TimeBase)
}

func (s StreamInfo) String() string {
	switch s.Type {
	case MediaTypeAudio:
		return fmt.Sprintf("#%d audio %s %dHz %dch", s.Index, s.Codec, s.SampleRate, s.Channels)
	case MediaTypeVideo:
		return fmt.Sprintf("#%d video %s %dx%d", s.Index, s.Codec, s.Width, s.Height)
	default:
		return fmt.Sprintf("#%d %s", s.Index, s.Type)
	}
}

// Packet is a unit of still-encoded data for one stream
type Packet interface {
	StreamIndex() int
	PTS() int64
	Keyframe() bool
	// Free releases the packet; it must not be used afterwards
	Free()
}

// RawAudio is opaque decoder output awaiting resampling
type RawAudio interface {
	NbSamples() int
	Free()
}

// AudioFrame is decoded audio as interleaved float32 samples in [-1, 1]
type AudioFrame struct {
	Samples    []float32
	Channels   int
	SampleRate int
	PTS        int64
}

// NbSamples returns the number of samples per channel
func (f AudioFrame) NbSamples() int {
	if f.Channels == 0 {
		return 0
	}
	return len(f.Samples) / f.Channels
}

// VideoFrame is a decoded picture as packed RGB24 pixels
type VideoFrame struct {
	Pixels []byte
	Width  int
	Height int
	PTS    int64
}

// Demuxer reads coded packets from a container
type Demuxer interface {
	Streams() []StreamInfo
	// Duration returns the media duration in seconds
	Duration() float64
	// ReadPacket returns the next packet or ErrEndOfStream
	ReadPacket() (Packet, error)
	NewAudioDecoder(stream int) (AudioDecoder, error)
	// NewAudioResampler normalizes the stream's decoder output to
	// interleaved float32 at sampleRate (0 keeps the native rate)
	NewAudioResampler(stream int, sampleRate int) (AudioResampler, error)
	NewVideoDecoder(stream int, maxWidth int) (VideoDecoder, error)
	Close() error
}

// AudioDecoder turns audio packets into raw frames
type AudioDecoder interface {
	// Decode returns the frames produced by p, or ErrNeedsMoreInput
	Decode(p Packet) ([]RawAudio, error)
	// Flush drops buffered decoder state after a seek
	Flush()
	Close() error
}

// AudioResampler converts raw decoder output to uniform float32 frames
type AudioResampler interface {
	Resample(raw RawAudio) (AudioFrame, error)
	// Channels and SampleRate describe every frame Resample returns
	Channels() int
	SampleRate() int
	Close() error
}

// VideoDecoder turns video packets into RGB frames
type VideoDecoder interface {
	// Decode returns the frames produced by p, or ErrNeedsMoreInput
	Decode(p Packet) ([]VideoFrame, error)
	Flush()
	Close() error
}

// FindStream returns the first stream of the given type
func FindStream(streams []StreamInfo, t MediaType) (StreamInfo, bool) {
	for _, s := range streams {
		if s.Type == t {
			return s, true
		}
	}
	return StreamInfo{}, false
}
