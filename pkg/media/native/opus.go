// ABOUTME: Ogg Opus source built on hraban/opus
// ABOUTME: Decodes through libopusfile at 48kHz
package native

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/hraban/opus.v2"
)

func init() {
	Register(".opus", OpenOpus)
}

// opusRate is the decode rate of every Opus stream
const opusRate = 48000

// opusHeadProbe is how far into the file the OpusHead packet is looked for
const opusHeadProbe = 512

type opusSource struct {
	file     *os.File
	stream   *opus.Stream
	channels int
}

// OpenOpus decodes f as Ogg Opus
func OpenOpus(f *os.File) (Source, error) {
	channels, err := opusChannels(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}

	stream, err := opus.NewStream(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Opus: %w", err)
	}
	return &opusSource{file: f, stream: stream, channels: channels}, nil
}

// opusChannels reads the channel count from the OpusHead identification
// header at the start of the first Ogg page
func opusChannels(r io.Reader) (int, error) {
	head := make([]byte, opusHeadProbe)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("read Opus header: %w", err)
	}
	head = head[:n]

	i := bytes.Index(head, []byte("OpusHead"))
	if i < 0 || i+9 >= len(head) {
		return 0, errors.New("missing OpusHead")
	}
	channels := int(head[i+9])
	if channels == 0 {
		return 0, errors.New("OpusHead has no channels")
	}
	return channels, nil
}

func (s *opusSource) SampleRate() int { return opusRate }
func (s *opusSource) Channels() int   { return s.channels }

// Duration is unknown; libopusfile length is not exposed
func (s *opusSource) Duration() float64 { return 0 }

func (s *opusSource) ReadSamples(dst []float32) (int, error) {
	dst = dst[:len(dst)-len(dst)%s.channels]
	if len(dst) == 0 {
		return 0, nil
	}
	// ReadFloat32 returns frames per channel
	n, err := s.stream.ReadFloat32(dst)
	return n * s.channels, err
}

func (s *opusSource) Close() error {
	s.stream.Close()
	return s.file.Close()
}
