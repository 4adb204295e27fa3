// ABOUTME: Fake media and device collaborators for player tests
// ABOUTME: Provides packets, a decoder, a resampler and an output device
package player

import (
	"errors"

	"github.com/cobyj33/ascii-video/internal/queue"
	"github.com/cobyj33/ascii-video/pkg/audio/output"
	"github.com/cobyj33/ascii-video/pkg/media"
)

type fakePacket struct {
	index    int
	pts      int64
	keyframe bool
	freed    int
}

func (p *fakePacket) StreamIndex() int { return p.index }
func (p *fakePacket) PTS() int64       { return p.pts }
func (p *fakePacket) Keyframe() bool   { return p.keyframe }
func (p *fakePacket) Free()            { p.freed++ }

type fakeRaw struct {
	samples []float32
	pts     int64
	freed   *int
}

func (r *fakeRaw) NbSamples() int { return len(r.samples) }
func (r *fakeRaw) Free()          { *r.freed++ }

// fakeDecoder produces one raw frame of samplesPerPacket values per
// packet. Packets whose pts is in needMore are buffered without output;
// packets in fail return an error. onDecode runs at the start of every
// Decode call.
type fakeDecoder struct {
	samplesPerPacket int
	needMore         map[int64]bool
	fail             map[int64]bool
	rawPerPacket     int
	onDecode         func()
	decoded          []int64
	flushes          int
	rawFreed         int
}

func (d *fakeDecoder) Decode(p media.Packet) ([]media.RawAudio, error) {
	if d.onDecode != nil {
		d.onDecode()
	}
	d.decoded = append(d.decoded, p.PTS())
	if d.fail[p.PTS()] {
		return nil, errors.New("corrupt packet")
	}
	if d.needMore[p.PTS()] {
		return nil, media.ErrNeedsMoreInput
	}
	n := d.rawPerPacket
	if n == 0 {
		n = 1
	}
	raws := make([]media.RawAudio, n)
	for i := range raws {
		samples := make([]float32, d.samplesPerPacket)
		for j := range samples {
			samples[j] = 0.5
		}
		raws[i] = &fakeRaw{samples: samples, pts: p.PTS(), freed: &d.rawFreed}
	}
	return raws, nil
}

func (d *fakeDecoder) Flush()       { d.flushes++ }
func (d *fakeDecoder) Close() error { return nil }

type fakeResampler struct {
	channels int
	rate     int
	failAt   int
	calls    int
}

func (r *fakeResampler) Resample(raw media.RawAudio) (media.AudioFrame, error) {
	r.calls++
	if r.failAt > 0 && r.calls == r.failAt {
		return media.AudioFrame{}, errors.New("bad layout")
	}
	fr := raw.(*fakeRaw)
	samples := make([]float32, len(fr.samples))
	copy(samples, fr.samples)
	return media.AudioFrame{Samples: samples, Channels: r.channels, SampleRate: r.rate, PTS: fr.pts}, nil
}

func (r *fakeResampler) Channels() int   { return r.channels }
func (r *fakeResampler) SampleRate() int { return r.rate }
func (r *fakeResampler) Close() error    { return nil }

type fakeDevice struct {
	cfg     output.Config
	state   output.State
	rate    int
	initErr error
	starts  int
	stops   int
	rates   []int
	closed  bool
}

func (d *fakeDevice) Init(cfg output.Config) error {
	if d.initErr != nil {
		return d.initErr
	}
	d.cfg = cfg
	d.rate = cfg.SampleRate
	return nil
}

func (d *fakeDevice) Start() error {
	d.starts++
	d.state = output.Started
	return nil
}

func (d *fakeDevice) Stop() error {
	d.stops++
	d.state = output.Stopped
	return nil
}

func (d *fakeDevice) State() output.State { return d.state }
func (d *fakeDevice) SampleRate() int     { return d.rate }

func (d *fakeDevice) SetSampleRate(rate int) error {
	d.rate = rate
	d.rates = append(d.rates, rate)
	return nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

// audioInfo is a mono 1000Hz stream with one pts tick per sample
func audioInfo() media.StreamInfo {
	return media.StreamInfo{
		Index:      0,
		Type:       media.MediaTypeAudio,
		Codec:      "pcm",
		TimeBase:   1.0 / 1024.0,
		SampleRate: 1024,
		Channels:   1,
	}
}

func videoInfo() media.StreamInfo {
	return media.StreamInfo{
		Index:    1,
		Type:     media.MediaTypeVideo,
		Codec:    "rawvideo",
		TimeBase: 1.0 / 16.0,
		Width:    4,
		Height:   2,
	}
}

// newPacketQueue holds n audio packets at pts start, start+step, ...
func newPacketQueue(n int, step, start int64) *queue.Queue[media.Packet] {
	q := queue.New[media.Packet]()
	for i := 0; i < n; i++ {
		q.PushBack(&fakePacket{pts: start + int64(i)*step, keyframe: true})
	}
	return q
}
