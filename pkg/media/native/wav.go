// ABOUTME: WAV source built on go-audio/wav
// ABOUTME: Reads integer PCM of any bit depth as float32
package native

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cobyj33/ascii-video/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func init() {
	Register(".wav", OpenWAV)
}

// wavFormatPCM is the WAVE_FORMAT_PCM format tag
const wavFormatPCM = 1

type wavSource struct {
	file     *os.File
	decoder  *wav.Decoder
	intBuf   *goaudio.IntBuffer
	duration float64
}

// OpenWAV decodes f as integer PCM WAV
func OpenWAV(f *os.File) (Source, error) {
	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported WAV format %d", decoder.WavAudioFormat)
	}

	var duration float64
	if d, err := decoder.Duration(); err == nil {
		duration = d.Seconds()
	}
	// Duration reads to the end of the file
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	decoder = wav.NewDecoder(f)
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("find PCM data: %w", err)
	}

	return &wavSource{file: f, decoder: decoder, duration: duration}, nil
}

func (s *wavSource) SampleRate() int   { return int(s.decoder.SampleRate) }
func (s *wavSource) Channels() int     { return int(s.decoder.NumChans) }
func (s *wavSource) Duration() float64 { return s.duration }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.decoder.Format(),
		}
	}
	s.intBuf.Data = s.intBuf.Data[:len(dst)]

	n, err := s.decoder.PCMBuffer(s.intBuf)
	if n == 0 && err == nil {
		return 0, io.EOF
	}

	bitDepth := int(s.decoder.BitDepth)
	for i := 0; i < n; i++ {
		dst[i] = audio.IntToFloat(int32(s.intBuf.Data[i]), bitDepth)
	}
	return n, err
}

func (s *wavSource) Close() error {
	return s.file.Close()
}
