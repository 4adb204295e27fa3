// ABOUTME: Audio decode and resample pipeline fed one packet at a time
// ABOUTME: Turns coded packets into uniform float32 frames for the audio buffer
package player

import (
	"errors"
	"fmt"

	"github.com/cobyj33/ascii-video/pkg/media"
)

// Pipeline owns the audio decoder and the resampler that normalizes its
// output
type Pipeline struct {
	decoder   media.AudioDecoder
	resampler media.AudioResampler
}

// NewPipeline creates a pipeline from a decoder and a resampler
func NewPipeline(decoder media.AudioDecoder, resampler media.AudioResampler) *Pipeline {
	return &Pipeline{
		decoder:   decoder,
		resampler: resampler,
	}
}

// DecodePacket decodes one packet and resamples every frame it produces.
// It returns media.ErrNeedsMoreInput when the decoder buffered the packet
// without output. On failure all partial output is released.
func (p *Pipeline) DecodePacket(pkt media.Packet) ([]media.AudioFrame, error) {
	raws, err := p.decoder.Decode(pkt)
	if err != nil {
		if errors.Is(err, media.ErrNeedsMoreInput) {
			return nil, err
		}
		return nil, fmt.Errorf("decode packet pts=%d: %w", pkt.PTS(), err)
	}
	if len(raws) == 0 {
		return nil, media.ErrNeedsMoreInput
	}

	frames := make([]media.AudioFrame, 0, len(raws))
	for i, raw := range raws {
		frame, err := p.resampler.Resample(raw)
		raw.Free()
		if err != nil {
			for _, rest := range raws[i+1:] {
				rest.Free()
			}
			return nil, fmt.Errorf("resample frame: %w", err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// NextFrames decodes packets from next until one produces frames, moving
// past packets that need more input. next returns nil when no packet is
// available; NextFrames then returns no frames and no error. next is
// called without any lock held by the pipeline, so callers can take the
// packet under their own lock and let decoding run outside it.
func (p *Pipeline) NextFrames(next func() media.Packet) ([]media.AudioFrame, error) {
	for {
		pkt := next()
		if pkt == nil {
			return nil, nil
		}
		frames, err := p.DecodePacket(pkt)
		if err == nil {
			return frames, nil
		}
		if !errors.Is(err, media.ErrNeedsMoreInput) {
			return nil, err
		}
	}
}

// Flush drops decoder state after the packet cursor jumps
func (p *Pipeline) Flush() {
	p.decoder.Flush()
}

// Close releases the decoder and the resampler
func (p *Pipeline) Close() error {
	return errors.Join(p.decoder.Close(), p.resampler.Close())
}
