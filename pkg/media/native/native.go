// ABOUTME: Extension registry and packet demuxer for native sources
// ABOUTME: Cuts decoded samples into packets and passes them through the pipeline
package native

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cobyj33/ascii-video/pkg/audio/resample"
	"github.com/cobyj33/ascii-video/pkg/media"
)

// PacketFrames is the number of frames per packet
const PacketFrames = 1024

// ErrUnsupported is returned for files with no registered source
var ErrUnsupported = errors.New("native: unsupported format")

// Source yields interleaved float32 samples from one audio file
type Source interface {
	SampleRate() int
	Channels() int
	// Duration returns the length in seconds, or 0 when unknown
	Duration() float64
	// ReadSamples fills dst and returns the number of samples read. It
	// returns io.EOF once no samples remain.
	ReadSamples(dst []float32) (int, error)
	Close() error
}

// Opener creates a Source reading f. The source owns f.
type Opener func(f *os.File) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register makes open the source for files with extension ext
func Register(ext string, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[normalizeExt(ext)] = open
}

func normalizeExt(ext string) string {
	return "." + strings.TrimPrefix(strings.ToLower(ext), ".")
}

func lookup(path string) (Opener, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	open, ok := registry[normalizeExt(filepath.Ext(path))]
	return open, ok
}

// Supported reports whether path has a registered extension
func Supported(path string) bool {
	_, ok := lookup(path)
	return ok
}

// Open opens path with the source registered for its extension
func Open(path string) (*Demuxer, error) {
	open, ok := lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("native: open %s: %w", path, err)
	}
	src, err := open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("native: decode %s: %w", path, err)
	}

	d := NewDemuxer(src, strings.TrimPrefix(filepath.Ext(path), "."))
	log.Printf("Opened %s natively: %s, %.2fs", path, d.info, d.Duration())
	return d, nil
}

// Demuxer turns a Source into a single audio stream of packets
type Demuxer struct {
	src  Source
	info media.StreamInfo
	buf  []float32
	next int64 // pts of the next packet
	eof  bool
}

// NewDemuxer wraps src as stream 0 with the given codec name
func NewDemuxer(src Source, codec string) *Demuxer {
	rate := src.SampleRate()
	info := media.StreamInfo{
		Index:      0,
		Type:       media.MediaTypeAudio,
		Codec:      codec,
		SampleRate: rate,
		Channels:   src.Channels(),
	}
	if rate > 0 {
		info.TimeBase = 1 / float64(rate)
	}
	return &Demuxer{
		src:  src,
		info: info,
		buf:  make([]float32, PacketFrames*max(1, src.Channels())),
	}
}

// Streams returns the single audio stream
func (d *Demuxer) Streams() []media.StreamInfo {
	return []media.StreamInfo{d.info}
}

// Duration returns the source duration in seconds
func (d *Demuxer) Duration() float64 {
	return d.src.Duration()
}

// ReadPacket reads up to PacketFrames frames. A short read at the end of
// the source yields a short packet.
func (d *Demuxer) ReadPacket() (media.Packet, error) {
	if d.eof {
		return nil, media.ErrEndOfStream
	}

	channels := max(1, d.info.Channels)
	filled := 0
	for filled < len(d.buf) {
		n, err := d.src.ReadSamples(d.buf[filled:])
		filled += n
		if errors.Is(err, io.EOF) {
			d.eof = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("native: read samples: %w", err)
		}
		if n == 0 {
			d.eof = true
			break
		}
	}

	filled -= filled % channels
	if filled == 0 {
		d.eof = true
		return nil, media.ErrEndOfStream
	}

	p := &Packet{
		pts:      d.next,
		channels: channels,
		samples:  append([]float32(nil), d.buf[:filled]...),
	}
	d.next += int64(filled / channels)
	return p, nil
}

// NewAudioDecoder returns a decoder that passes packet samples through
func (d *Demuxer) NewAudioDecoder(index int) (media.AudioDecoder, error) {
	if index != d.info.Index {
		return nil, fmt.Errorf("native: no stream %d", index)
	}
	return passthrough{}, nil
}

// NewAudioResampler converts packets to sampleRate, or keeps the native
// rate when sampleRate is 0
func (d *Demuxer) NewAudioResampler(index int, sampleRate int) (media.AudioResampler, error) {
	if index != d.info.Index {
		return nil, fmt.Errorf("native: no stream %d", index)
	}
	if d.info.SampleRate <= 0 || d.info.Channels <= 0 {
		return nil, fmt.Errorf("native: invalid source format %s", d.info)
	}
	if sampleRate <= 0 {
		sampleRate = d.info.SampleRate
	}
	return &Resampler{conv: resample.New(d.info.SampleRate, sampleRate, d.info.Channels)}, nil
}

// NewVideoDecoder always fails; native sources carry no video
func (d *Demuxer) NewVideoDecoder(index int, maxWidth int) (media.VideoDecoder, error) {
	return nil, fmt.Errorf("native: no video stream %d", index)
}

// Close closes the source
func (d *Demuxer) Close() error {
	return d.src.Close()
}

// Packet holds one chunk of decoded samples
type Packet struct {
	pts      int64
	channels int
	samples  []float32
}

func (p *Packet) StreamIndex() int { return 0 }
func (p *Packet) PTS() int64       { return p.pts }
func (p *Packet) Keyframe() bool   { return true }
func (p *Packet) Free()            { p.samples = nil }

// pcmFrame is a packet's samples handed from decoder to resampler
type pcmFrame struct {
	pts      int64
	channels int
	samples  []float32
}

func (f *pcmFrame) NbSamples() int { return len(f.samples) / f.channels }
func (f *pcmFrame) Free()          { f.samples = nil }

type passthrough struct{}

func (passthrough) Decode(p media.Packet) ([]media.RawAudio, error) {
	pkt, ok := p.(*Packet)
	if !ok {
		return nil, fmt.Errorf("native: foreign packet %T", p)
	}
	if len(pkt.samples) == 0 {
		return nil, media.ErrNeedsMoreInput
	}
	return []media.RawAudio{&pcmFrame{pts: pkt.pts, channels: pkt.channels, samples: pkt.samples}}, nil
}

func (passthrough) Flush()       {}
func (passthrough) Close() error { return nil }

// Resampler converts pcm frames to the output rate
type Resampler struct {
	conv *resample.Resampler
}

// Resample converts raw to the output rate
func (r *Resampler) Resample(raw media.RawAudio) (media.AudioFrame, error) {
	f, ok := raw.(*pcmFrame)
	if !ok {
		return media.AudioFrame{}, fmt.Errorf("native: foreign audio frame %T", raw)
	}
	return media.AudioFrame{
		Samples:    r.conv.Convert(f.samples),
		Channels:   r.conv.Channels(),
		SampleRate: r.conv.OutputRate(),
		PTS:        f.pts,
	}, nil
}

// Channels returns the output channel count
func (r *Resampler) Channels() int { return r.conv.Channels() }

// SampleRate returns the output sample rate
func (r *Resampler) SampleRate() int { return r.conv.OutputRate() }

// Close is a no-op
func (r *Resampler) Close() error {
	return nil
}
