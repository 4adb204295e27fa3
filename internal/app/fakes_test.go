// ABOUTME: Fake demuxer, decoders and device for session tests
// ABOUTME: Produces a short synthetic audio and video stream in memory
package app

import (
	"errors"
	"sync"

	"github.com/cobyj33/ascii-video/pkg/audio/output"
	"github.com/cobyj33/ascii-video/pkg/media"
)

type fakePacket struct {
	index int
	pts   int64
}

func (p *fakePacket) StreamIndex() int { return p.index }
func (p *fakePacket) PTS() int64       { return p.pts }
func (p *fakePacket) Keyframe() bool   { return true }
func (p *fakePacket) Free()            {}

// fakeDemuxer interleaves audio packets of 0.1s (stream 0), video frames
// at 10 fps (stream 1) and data packets (stream 2) for duration seconds
type fakeDemuxer struct {
	mu       sync.Mutex
	duration float64
	next     int
	closed   bool

	audioErr error
	noVideo  bool

	// streamChannels overrides the audio stream's reported channel count;
	// resampleChannels is the channel count the resampler outputs
	streamChannels   int
	resampleChannels int
}

func (d *fakeDemuxer) Streams() []media.StreamInfo {
	channels := 1
	if d.streamChannels != 0 {
		channels = d.streamChannels
	}
	streams := []media.StreamInfo{
		{Index: 0, Type: media.MediaTypeAudio, Codec: "pcm", TimeBase: 1.0 / 1000.0, SampleRate: 1000, Channels: channels},
		{Index: 2, Type: media.MediaTypeUnknown, Codec: "data", TimeBase: 1},
	}
	if !d.noVideo {
		streams = append(streams, media.StreamInfo{Index: 1, Type: media.MediaTypeVideo, Codec: "raw", TimeBase: 0.1, Width: 4, Height: 2})
	}
	return streams
}

func (d *fakeDemuxer) Duration() float64 { return d.duration }

func (d *fakeDemuxer) ReadPacket() (media.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	step := d.next / 3
	if float64(step)*0.1 >= d.duration {
		return nil, media.ErrEndOfStream
	}
	kind := d.next % 3
	d.next++

	switch kind {
	case 0:
		return &fakePacket{index: 0, pts: int64(step * 100)}, nil
	case 1:
		return &fakePacket{index: 1, pts: int64(step)}, nil
	default:
		return &fakePacket{index: 2, pts: int64(step)}, nil
	}
}

func (d *fakeDemuxer) NewAudioDecoder(int) (media.AudioDecoder, error) {
	if d.audioErr != nil {
		return nil, d.audioErr
	}
	return &fakeAudioDecoder{}, nil
}

func (d *fakeDemuxer) NewAudioResampler(_ int, sampleRate int) (media.AudioResampler, error) {
	r := &fakeResampler{channels: 1, rate: 1000}
	if d.resampleChannels != 0 {
		r.channels = d.resampleChannels
	}
	if sampleRate > 0 {
		r.rate = sampleRate
	}
	return r, nil
}

func (d *fakeDemuxer) NewVideoDecoder(int, int) (media.VideoDecoder, error) {
	return &fakeVideoDecoder{}, nil
}

func (d *fakeDemuxer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDemuxer) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakeRaw struct{ pts int64 }

func (r *fakeRaw) NbSamples() int { return 100 }
func (r *fakeRaw) Free()          {}

type fakeAudioDecoder struct{}

func (d *fakeAudioDecoder) Decode(p media.Packet) ([]media.RawAudio, error) {
	return []media.RawAudio{&fakeRaw{pts: p.PTS()}}, nil
}
func (d *fakeAudioDecoder) Flush()       {}
func (d *fakeAudioDecoder) Close() error { return nil }

type fakeResampler struct {
	channels int
	rate     int
}

func (r *fakeResampler) Resample(raw media.RawAudio) (media.AudioFrame, error) {
	return media.AudioFrame{
		Samples:    make([]float32, raw.NbSamples()*r.channels),
		Channels:   r.channels,
		SampleRate: r.rate,
		PTS:        raw.(*fakeRaw).pts,
	}, nil
}
func (r *fakeResampler) Channels() int   { return r.channels }
func (r *fakeResampler) SampleRate() int { return r.rate }
func (r *fakeResampler) Close() error    { return nil }

type fakeVideoDecoder struct{}

func (d *fakeVideoDecoder) Decode(p media.Packet) ([]media.VideoFrame, error) {
	return []media.VideoFrame{{Width: 4, Height: 2, Pixels: make([]byte, 24), PTS: p.PTS()}}, nil
}
func (d *fakeVideoDecoder) Flush()       {}
func (d *fakeVideoDecoder) Close() error { return nil }

type fakeDevice struct {
	mu       sync.Mutex
	state    output.State
	rate     int
	channels int
	closed   bool
}

func (d *fakeDevice) Init(cfg output.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rate = cfg.SampleRate
	d.channels = cfg.Channels
	return nil
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = output.Started
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = output.Stopped
	return nil
}

func (d *fakeDevice) State() output.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *fakeDevice) SampleRate() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

func (d *fakeDevice) SetSampleRate(rate int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rate = rate
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) format() (rate, channels int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate, d.channels
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func deviceFactory(dev *fakeDevice) func(string) (output.Device, error) {
	return func(string) (output.Device, error) {
		return dev, nil
	}
}

func failingDeviceFactory(string) (output.Device, error) {
	return nil, errors.New("no such output")
}
