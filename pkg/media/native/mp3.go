// ABOUTME: MP3 source built on go-mp3
// ABOUTME: Decodes to 16-bit stereo and converts to float32
package native

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/cobyj33/ascii-video/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

func init() {
	Register(".mp3", OpenMP3)
}

// mp3Source reads an MP3 file. go-mp3 always decodes to 16-bit stereo.
type mp3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

// OpenMP3 decodes f as MP3
func OpenMP3(f *os.File) (Source, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	return &mp3Source{file: f, decoder: decoder}, nil
}

func (s *mp3Source) SampleRate() int { return s.decoder.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 }

func (s *mp3Source) Duration() float64 {
	if s.decoder.Length() <= 0 {
		return 0
	}
	// 4 bytes per stereo frame
	return float64(s.decoder.Length()) / 4 / float64(s.decoder.SampleRate())
}

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	if len(s.buf) < len(dst)*2 {
		s.buf = make([]byte, len(dst)*2)
	}

	n, err := s.decoder.Read(s.buf[:len(dst)*2])
	samples := n / 2
	for i := 0; i < samples; i++ {
		dst[i] = audio.Int16ToFloat(int16(binary.LittleEndian.Uint16(s.buf[i*2:])))
	}
	return samples, err
}

func (s *mp3Source) Close() error {
	return s.file.Close()
}
