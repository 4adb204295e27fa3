// ABOUTME: Ogg Vorbis source built on jfreymuth/oggvorbis
// ABOUTME: The decoder already yields interleaved float32
package native

import (
	"fmt"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

func init() {
	Register(".ogg", OpenVorbis)
	Register(".oga", OpenVorbis)
}

type vorbisSource struct {
	file   *os.File
	reader *oggvorbis.Reader
}

// OpenVorbis decodes f as Ogg Vorbis
func OpenVorbis(f *os.File) (Source, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}
	return &vorbisSource{file: f, reader: reader}, nil
}

func (s *vorbisSource) SampleRate() int { return s.reader.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.reader.Channels() }

func (s *vorbisSource) Duration() float64 {
	if s.reader.Length() <= 0 {
		return 0
	}
	return float64(s.reader.Length()) / float64(s.reader.SampleRate())
}

// ReadSamples reads whole frames; dst shorter than one frame reads nothing
func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	channels := s.reader.Channels()
	dst = dst[:len(dst)-len(dst)%channels]
	if len(dst) == 0 {
		return 0, nil
	}
	return s.reader.Read(dst)
}

func (s *vorbisSource) Close() error {
	return s.file.Close()
}
