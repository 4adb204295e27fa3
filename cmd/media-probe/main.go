// ABOUTME: Media probe tool listing streams and packet statistics
// ABOUTME: Reads every packet of a file through the chosen demuxer backend
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/cobyj33/ascii-video/internal/app"
	"github.com/cobyj33/ascii-video/pkg/media"
)

var (
	backend = flag.String("backend", "auto", "Demuxer backend (auto, ffmpeg, native)")
	decode  = flag.Bool("decode", false, "Also decode the first audio stream")
)

// streamStats summarizes the packets of one stream
type streamStats struct {
	packets    int
	keyframes  int
	firstPTS   int64
	lastPTS    int64
	outOfOrder int
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: media-probe [flags] <media file>\n")
		os.Exit(2)
	}
	path := flag.Arg(0)

	d, err := app.OpenDemuxer(*backend, path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer d.Close()

	fmt.Printf("File:     %s\n", path)
	fmt.Printf("Duration: %.3fs\n", d.Duration())
	for _, s := range d.Streams() {
		fmt.Printf("Stream:   %s (timebase %g, start %.3fs)\n", s, s.TimeBase, s.StartTime)
	}

	var pipeline *audioCheck
	if *decode {
		if info, ok := media.FindStream(d.Streams(), media.MediaTypeAudio); ok {
			pipeline, err = newAudioCheck(d, info)
			if err != nil {
				log.Fatalf("Failed to set up audio decode: %v", err)
			}
			defer pipeline.close()
		}
	}

	stats := make(map[int]*streamStats)
	for {
		p, err := d.ReadPacket()
		if errors.Is(err, media.ErrEndOfStream) {
			break
		}
		if err != nil {
			log.Fatalf("Read error: %v", err)
		}

		st, ok := stats[p.StreamIndex()]
		if !ok {
			st = &streamStats{firstPTS: p.PTS(), lastPTS: p.PTS()}
			stats[p.StreamIndex()] = st
		}
		st.packets++
		if p.Keyframe() {
			st.keyframes++
		}
		if p.PTS() < st.lastPTS {
			st.outOfOrder++
		}
		st.lastPTS = p.PTS()

		if pipeline != nil && p.StreamIndex() == pipeline.info.Index {
			pipeline.push(p)
		}
		p.Free()
	}

	indexes := make([]int, 0, len(stats))
	for i := range stats {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	fmt.Println()
	for _, i := range indexes {
		st := stats[i]
		fmt.Printf("#%d: %d packets, %d keyframes, pts %d..%d, %d out of order\n",
			i, st.packets, st.keyframes, st.firstPTS, st.lastPTS, st.outOfOrder)
	}
	if pipeline != nil {
		pipeline.report()
	}
}

// audioCheck decodes one audio stream and counts its output
type audioCheck struct {
	info      media.StreamInfo
	decoder   media.AudioDecoder
	resampler media.AudioResampler
	frames    int
	samples   int
	stalls    int
	errors    int
	peak      float32
}

func newAudioCheck(d media.Demuxer, info media.StreamInfo) (*audioCheck, error) {
	dec, err := d.NewAudioDecoder(info.Index)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	res, err := d.NewAudioResampler(info.Index, 0)
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("resampler: %w", err)
	}
	return &audioCheck{info: info, decoder: dec, resampler: res}, nil
}

func (a *audioCheck) push(p media.Packet) {
	raws, err := a.decoder.Decode(p)
	if errors.Is(err, media.ErrNeedsMoreInput) {
		a.stalls++
		return
	}
	if err != nil {
		a.errors++
		return
	}

	for _, raw := range raws {
		frame, err := a.resampler.Resample(raw)
		raw.Free()
		if err != nil {
			a.errors++
			continue
		}
		a.frames++
		a.samples += frame.NbSamples()
		for _, v := range frame.Samples {
			a.peak = max(a.peak, v, -v)
		}
	}
}

func (a *audioCheck) report() {
	seconds := 0.0
	if rate := a.resampler.SampleRate(); rate > 0 {
		seconds = float64(a.samples) / float64(rate)
	}
	fmt.Printf("Audio #%d: %d frames, %d samples (%.3fs) as %dHz %dch, peak %.3f, %d stalls, %d errors\n",
		a.info.Index, a.frames, a.samples, seconds, a.resampler.SampleRate(), a.resampler.Channels(),
		a.peak, a.stalls, a.errors)
}

func (a *audioCheck) close() {
	a.decoder.Close()
	a.resampler.Close()
}
