// ABOUTME: FFmpeg container demuxer
// ABOUTME: Reads packets and stream metadata with an astiav format context
package ffmpeg

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/cobyj33/ascii-video/pkg/media"
)

func init() {
	astiav.SetLogLevel(astiav.LogLevelError)
	astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, format, msg string) {
		if l > astiav.LogLevelError {
			return
		}
		log.Printf("ffmpeg: %s", strings.TrimSpace(msg))
	})
}

// packet wraps an astiav packet with a pts that is always set
type packet struct {
	pkt *astiav.Packet
	pts int64
}

func (p *packet) StreamIndex() int { return p.pkt.StreamIndex() }
func (p *packet) PTS() int64       { return p.pts }
func (p *packet) Keyframe() bool   { return p.pkt.Flags().Has(astiav.PacketFlagKey) }
func (p *packet) Free()            { p.pkt.Free() }

// Demuxer reads a media file through libavformat
type Demuxer struct {
	fc       *astiav.FormatContext
	streams  []media.StreamInfo
	byIndex  map[int]*astiav.Stream
	lastPTS  map[int]int64
	duration float64
}

// Open opens path and probes its streams
func Open(path string) (*Demuxer, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("ffmpeg: alloc format context")
	}
	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("ffmpeg: open %s: %w", path, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("ffmpeg: find stream info: %w", err)
	}

	d := &Demuxer{
		fc:      fc,
		byIndex: make(map[int]*astiav.Stream),
		lastPTS: make(map[int]int64),
	}

	for _, st := range fc.Streams() {
		info := streamInfo(st)
		d.streams = append(d.streams, info)
		d.byIndex[st.Index()] = st

		if seconds := float64(st.Duration()) * info.TimeBase; seconds > d.duration {
			d.duration = seconds
		}
	}
	if fc.Duration() > 0 {
		d.duration = float64(fc.Duration()) / float64(astiav.TimeBase)
	}

	log.Printf("Opened %s with ffmpeg: %.2fs, %d streams", path, d.duration, len(d.streams))
	return d, nil
}

func streamInfo(st *astiav.Stream) media.StreamInfo {
	cp := st.CodecParameters()
	info := media.StreamInfo{
		Index:    st.Index(),
		Codec:    cp.CodecID().String(),
		TimeBase: st.TimeBase().Float64(),
	}
	if start := st.StartTime(); start != astiav.NoPtsValue {
		info.StartTime = float64(start) * info.TimeBase
	}

	switch cp.MediaType() {
	case astiav.MediaTypeAudio:
		info.Type = media.MediaTypeAudio
		info.SampleRate = cp.SampleRate()
		info.Channels = cp.ChannelLayout().Channels()
	case astiav.MediaTypeVideo:
		info.Type = media.MediaTypeVideo
		info.Width = cp.Width()
		info.Height = cp.Height()
	}
	return info
}

// Streams returns the metadata of every stream
func (d *Demuxer) Streams() []media.StreamInfo {
	return d.streams
}

// Duration returns the container duration in seconds
func (d *Demuxer) Duration() float64 {
	return d.duration
}

// ReadPacket returns the next packet of any stream
func (d *Demuxer) ReadPacket() (media.Packet, error) {
	pkt := astiav.AllocPacket()
	if err := d.fc.ReadFrame(pkt); err != nil {
		pkt.Free()
		if errors.Is(err, astiav.ErrEof) {
			return nil, media.ErrEndOfStream
		}
		return nil, fmt.Errorf("ffmpeg: read frame: %w", err)
	}

	// Packets without timestamps inherit the previous one of their stream
	pts := pkt.Pts()
	if pts == astiav.NoPtsValue {
		pts = pkt.Dts()
	}
	if pts == astiav.NoPtsValue {
		pts = d.lastPTS[pkt.StreamIndex()]
	}
	d.lastPTS[pkt.StreamIndex()] = pts

	return &packet{pkt: pkt, pts: pts}, nil
}

func (d *Demuxer) stream(index int) (*astiav.Stream, error) {
	st, ok := d.byIndex[index]
	if !ok {
		return nil, fmt.Errorf("ffmpeg: no stream %d", index)
	}
	return st, nil
}

// NewAudioDecoder opens a decoder for the audio stream at index
func (d *Demuxer) NewAudioDecoder(index int) (media.AudioDecoder, error) {
	st, err := d.stream(index)
	if err != nil {
		return nil, err
	}
	cc, err := openCodec(st)
	if err != nil {
		return nil, err
	}
	return &AudioDecoder{cc: cc}, nil
}

// NewAudioResampler converts the audio stream at index to interleaved
// float32 at sampleRate, or at the native rate when sampleRate is 0
func (d *Demuxer) NewAudioResampler(index int, sampleRate int) (media.AudioResampler, error) {
	st, err := d.stream(index)
	if err != nil {
		return nil, err
	}
	return newResampler(st.CodecParameters(), sampleRate)
}

// NewVideoDecoder opens a decoder for the video stream at index that
// scales frames down to at most maxWidth pixels
func (d *Demuxer) NewVideoDecoder(index int, maxWidth int) (media.VideoDecoder, error) {
	st, err := d.stream(index)
	if err != nil {
		return nil, err
	}
	cc, err := openCodec(st)
	if err != nil {
		return nil, err
	}
	return newVideoDecoder(cc, maxWidth), nil
}

// Close releases the format context
func (d *Demuxer) Close() error {
	if d.fc == nil {
		return nil
	}
	d.fc.CloseInput()
	d.fc.Free()
	d.fc = nil
	return nil
}

func openCodec(st *astiav.Stream) (*astiav.CodecContext, error) {
	cp := st.CodecParameters()
	codec := astiav.FindDecoder(cp.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("ffmpeg: no decoder for %s", cp.CodecID())
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("ffmpeg: alloc codec context")
	}
	if err := cp.ToCodecContext(cc); err != nil {
		cc.Free()
		return nil, fmt.Errorf("ffmpeg: codec parameters: %w", err)
	}
	cc.SetTimeBase(st.TimeBase())

	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("ffmpeg: open decoder: %w", err)
	}
	return cc, nil
}

// receive drains every frame the codec has ready after a SendPacket
func receive(cc *astiav.CodecContext, p media.Packet, each func(*astiav.Frame) error) error {
	pkt, ok := p.(*packet)
	if !ok {
		return fmt.Errorf("ffmpeg: foreign packet %T", p)
	}
	if err := cc.SendPacket(pkt.pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return fmt.Errorf("ffmpeg: send packet: %w", err)
	}

	for {
		f := astiav.AllocFrame()
		if err := cc.ReceiveFrame(f); err != nil {
			f.Free()
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("ffmpeg: receive frame: %w", err)
		}
		if err := each(f); err != nil {
			return err
		}
	}
}
