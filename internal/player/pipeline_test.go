// ABOUTME: Tests for the audio decode and resample pipeline
// ABOUTME: Tests stall skipping, error cleanup and source exhaustion
package player

import (
	"errors"
	"testing"

	"github.com/cobyj33/ascii-video/pkg/media"
)

func TestDecodePacketResamplesEveryFrame(t *testing.T) {
	dec := &fakeDecoder{samplesPerPacket: 4, rawPerPacket: 3}
	res := &fakeResampler{channels: 1, rate: 1024}
	p := NewPipeline(dec, res)

	frames, err := p.DecodePacket(&fakePacket{pts: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for _, f := range frames {
		if f.PTS != 7 || f.NbSamples() != 4 {
			t.Errorf("unexpected frame %+v", f)
		}
	}
	if dec.rawFreed != 3 {
		t.Errorf("expected 3 raw frames freed, got %d", dec.rawFreed)
	}
}

func TestDecodePacketResampleFailureFreesAll(t *testing.T) {
	dec := &fakeDecoder{samplesPerPacket: 4, rawPerPacket: 3}
	res := &fakeResampler{channels: 1, rate: 1024, failAt: 2}
	p := NewPipeline(dec, res)

	frames, err := p.DecodePacket(&fakePacket{pts: 1})
	if err == nil {
		t.Fatal("expected resample error")
	}
	if frames != nil {
		t.Errorf("expected no frames, got %d", len(frames))
	}
	if dec.rawFreed != 3 {
		t.Errorf("expected every raw frame freed, got %d", dec.rawFreed)
	}
}

func TestDecodePacketErrors(t *testing.T) {
	dec := &fakeDecoder{
		samplesPerPacket: 4,
		needMore:         map[int64]bool{1: true},
		fail:             map[int64]bool{2: true},
	}
	p := NewPipeline(dec, &fakeResampler{channels: 1})

	if _, err := p.DecodePacket(&fakePacket{pts: 1}); !errors.Is(err, media.ErrNeedsMoreInput) {
		t.Errorf("expected ErrNeedsMoreInput, got %v", err)
	}
	_, err := p.DecodePacket(&fakePacket{pts: 2})
	if err == nil || errors.Is(err, media.ErrNeedsMoreInput) {
		t.Errorf("expected decode failure, got %v", err)
	}
}

// packetSource hands out pkts in order, then nil
func packetSource(pkts ...media.Packet) (next func() media.Packet, taken *int) {
	n := 0
	return func() media.Packet {
		if n >= len(pkts) {
			return nil
		}
		n++
		return pkts[n-1]
	}, &n
}

func TestNextFramesSkipsStalls(t *testing.T) {
	dec := &fakeDecoder{
		samplesPerPacket: 4,
		needMore:         map[int64]bool{1: true, 2: true},
	}
	p := NewPipeline(dec, &fakeResampler{channels: 1})

	next, taken := packetSource(&fakePacket{pts: 1}, &fakePacket{pts: 2}, &fakePacket{pts: 3}, &fakePacket{pts: 4})
	frames, err := p.NextFrames(next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 || frames[0].PTS != 3 {
		t.Fatalf("expected one frame from pts 3, got %+v", frames)
	}
	if *taken != 3 {
		t.Errorf("expected to stop after the decoded packet, took %d", *taken)
	}
	if len(dec.decoded) != 3 {
		t.Errorf("expected 3 decode calls, got %v", dec.decoded)
	}
}

func TestNextFramesExhaustsSource(t *testing.T) {
	dec := &fakeDecoder{
		samplesPerPacket: 4,
		needMore:         map[int64]bool{1: true, 2: true},
	}
	p := NewPipeline(dec, &fakeResampler{channels: 1})

	next, taken := packetSource(&fakePacket{pts: 1}, &fakePacket{pts: 2})
	frames, err := p.NextFrames(next)
	if err != nil || frames != nil {
		t.Errorf("expected no frames and no error, got %v, %v", frames, err)
	}
	if *taken != 2 {
		t.Errorf("expected both packets taken, got %d", *taken)
	}
}

func TestNextFramesStopsOnError(t *testing.T) {
	dec := &fakeDecoder{samplesPerPacket: 4, fail: map[int64]bool{1: true}}
	p := NewPipeline(dec, &fakeResampler{channels: 1})

	next, taken := packetSource(&fakePacket{pts: 1}, &fakePacket{pts: 2})
	if _, err := p.NextFrames(next); err == nil {
		t.Fatal("expected decode error")
	}
	if *taken != 1 {
		t.Errorf("expected to stop on the failing packet, took %d", *taken)
	}
}

func TestNextFramesEmptySource(t *testing.T) {
	p := NewPipeline(&fakeDecoder{}, &fakeResampler{})
	next, _ := packetSource()
	frames, err := p.NextFrames(next)
	if frames != nil || err != nil {
		t.Errorf("expected nothing from an empty source, got %v, %v", frames, err)
	}
}

func TestPipelineFlush(t *testing.T) {
	dec := &fakeDecoder{}
	p := NewPipeline(dec, &fakeResampler{})
	p.Flush()
	if dec.flushes != 1 {
		t.Errorf("expected decoder flushed once, got %d", dec.flushes)
	}
}
