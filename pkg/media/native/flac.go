// ABOUTME: FLAC source built on mewkiz/flac
// ABOUTME: Parses frames and interleaves their subframes as float32
package native

import (
	"fmt"
	"io"
	"os"

	"github.com/cobyj33/ascii-video/pkg/audio"
	"github.com/mewkiz/flac"
)

func init() {
	Register(".flac", OpenFLAC)
}

type flacSource struct {
	file     *os.File
	stream   *flac.Stream
	channels int
	bitDepth int
	pending  []float32 // decoded samples not yet returned
}

// OpenFLAC decodes f as FLAC
func OpenFLAC(f *os.File) (Source, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	return &flacSource{
		file:     f,
		stream:   stream,
		channels: int(stream.Info.NChannels),
		bitDepth: int(stream.Info.BitsPerSample),
	}, nil
}

func (s *flacSource) SampleRate() int { return int(s.stream.Info.SampleRate) }
func (s *flacSource) Channels() int   { return s.channels }

func (s *flacSource) Duration() float64 {
	if s.stream.Info.SampleRate == 0 {
		return 0
	}
	return float64(s.stream.Info.NSamples) / float64(s.stream.Info.SampleRate)
}

func (s *flacSource) ReadSamples(dst []float32) (int, error) {
	read := 0
	for read < len(dst) {
		if len(s.pending) == 0 {
			if err := s.parseNext(); err != nil {
				if read > 0 && err == io.EOF {
					return read, nil
				}
				return read, err
			}
		}
		n := copy(dst[read:], s.pending)
		s.pending = s.pending[n:]
		read += n
	}
	return read, nil
}

func (s *flacSource) parseNext() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		return err
	}

	size := int(frame.BlockSize) * s.channels
	if cap(s.pending) < size {
		s.pending = make([]float32, size)
	}
	s.pending = s.pending[:size]

	for i := 0; i < int(frame.BlockSize); i++ {
		for ch := 0; ch < s.channels; ch++ {
			s.pending[i*s.channels+ch] = audio.IntToFloat(frame.Subframes[ch].Samples[i], s.bitDepth)
		}
	}
	return nil
}

func (s *flacSource) Close() error {
	s.stream.Close()
	return s.file.Close()
}
