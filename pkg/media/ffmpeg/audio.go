// ABOUTME: FFmpeg audio decoder and libswresample resampler
// ABOUTME: Produces raw frames and converts them to interleaved float32
package ffmpeg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/asticode/go-astiav"
	"github.com/cobyj33/ascii-video/pkg/media"
)

// rawFrame is a decoded frame in the codec's native sample format
type rawFrame struct {
	frame *astiav.Frame
}

func (r *rawFrame) NbSamples() int { return r.frame.NbSamples() }
func (r *rawFrame) Free()          { r.frame.Free() }

// AudioDecoder decodes one audio stream
type AudioDecoder struct {
	cc *astiav.CodecContext
}

// Decode sends p to the codec and returns every frame it produced
func (d *AudioDecoder) Decode(p media.Packet) ([]media.RawAudio, error) {
	var raws []media.RawAudio
	err := receive(d.cc, p, func(f *astiav.Frame) error {
		raws = append(raws, &rawFrame{frame: f})
		return nil
	})
	if err != nil {
		for _, r := range raws {
			r.Free()
		}
		return nil, err
	}
	if len(raws) == 0 {
		return nil, media.ErrNeedsMoreInput
	}
	return raws, nil
}

// Flush drops frames buffered inside the codec
func (d *AudioDecoder) Flush() {
	d.cc.FlushBuffers()
}

// Close frees the codec context
func (d *AudioDecoder) Close() error {
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	return nil
}

// Resampler converts decoded frames to interleaved float32. Streams with
// more than two channels are downmixed to stereo.
type Resampler struct {
	swr      *astiav.SoftwareResampleContext
	dst      *astiav.Frame
	layout   astiav.ChannelLayout
	channels int
	inRate   int
	outRate  int
}

func newResampler(cp *astiav.CodecParameters, sampleRate int) (*Resampler, error) {
	r := &Resampler{
		layout:   astiav.ChannelLayoutStereo,
		channels: 2,
		inRate:   cp.SampleRate(),
		outRate:  sampleRate,
	}
	if cp.ChannelLayout().Channels() == 1 {
		r.layout = astiav.ChannelLayoutMono
		r.channels = 1
	}
	if r.outRate <= 0 {
		r.outRate = r.inRate
	}
	if r.outRate <= 0 {
		return nil, fmt.Errorf("ffmpeg: invalid sample rate %d", r.outRate)
	}

	r.swr = astiav.AllocSoftwareResampleContext()
	if r.swr == nil {
		return nil, errors.New("ffmpeg: alloc resample context")
	}
	r.dst = astiav.AllocFrame()
	return r, nil
}

// Resample converts raw into a float32 frame. The caller keeps ownership
// of raw.
func (r *Resampler) Resample(raw media.RawAudio) (media.AudioFrame, error) {
	rf, ok := raw.(*rawFrame)
	if !ok {
		return media.AudioFrame{}, fmt.Errorf("ffmpeg: foreign audio frame %T", raw)
	}
	src := rf.frame

	inRate := src.SampleRate()
	if inRate <= 0 {
		inRate = r.inRate
	}

	r.dst.Unref()
	r.dst.SetChannelLayout(r.layout)
	r.dst.SetSampleFormat(astiav.SampleFormatFlt)
	r.dst.SetSampleRate(r.outRate)
	r.dst.SetNbSamples(src.NbSamples()*r.outRate/max(inRate, 1) + 32)
	if err := r.dst.AllocBuffer(0); err != nil {
		return media.AudioFrame{}, fmt.Errorf("ffmpeg: alloc resample buffer: %w", err)
	}

	if err := r.swr.ConvertFrame(src, r.dst); err != nil {
		return media.AudioFrame{}, fmt.Errorf("ffmpeg: resample: %w", err)
	}

	b, err := r.dst.Data().Bytes(0)
	if err != nil {
		return media.AudioFrame{}, fmt.Errorf("ffmpeg: resampled bytes: %w", err)
	}
	n := min(r.dst.NbSamples()*r.channels, len(b)/4)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}

	return media.AudioFrame{
		Samples:    samples,
		Channels:   r.channels,
		SampleRate: r.outRate,
		PTS:        src.Pts(),
	}, nil
}

// Channels returns the output channel count, 1 or 2
func (r *Resampler) Channels() int { return r.channels }

// SampleRate returns the output sample rate
func (r *Resampler) SampleRate() int { return r.outRate }

// Close frees the resample context
func (r *Resampler) Close() error {
	if r.dst != nil {
		r.dst.Free()
		r.dst = nil
	}
	if r.swr != nil {
		r.swr.Free()
		r.swr = nil
	}
	return nil
}
