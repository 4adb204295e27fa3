// ABOUTME: FFmpeg video decoder with libswscale conversion
// ABOUTME: Decodes pictures and scales them to packed RGB24 copies
package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/cobyj33/ascii-video/pkg/media"
)

// VideoDecoder decodes one video stream to RGB24
type VideoDecoder struct {
	cc       *astiav.CodecContext
	ssc      *astiav.SoftwareScaleContext
	dst      *astiav.Frame
	maxWidth int

	// source geometry the scale context was built for
	srcWidth  int
	srcHeight int
	srcFormat astiav.PixelFormat
}

func newVideoDecoder(cc *astiav.CodecContext, maxWidth int) *VideoDecoder {
	return &VideoDecoder{
		cc:       cc,
		dst:      astiav.AllocFrame(),
		maxWidth: maxWidth,
	}
}

// Decode sends p to the codec and returns every picture it produced
func (d *VideoDecoder) Decode(p media.Packet) ([]media.VideoFrame, error) {
	var frames []media.VideoFrame
	err := receive(d.cc, p, func(f *astiav.Frame) error {
		defer f.Free()

		frame, err := d.convert(f)
		if err != nil {
			return err
		}
		frame.PTS = f.Pts()
		if frame.PTS == astiav.NoPtsValue {
			frame.PTS = p.PTS()
		}
		frames = append(frames, frame)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, media.ErrNeedsMoreInput
	}
	return frames, nil
}

// outputSize keeps the aspect ratio and limits the width to maxWidth
func outputSize(width, height, maxWidth int) (int, int) {
	if maxWidth <= 0 || width <= maxWidth {
		return width, height
	}
	return maxWidth, max(1, height*maxWidth/width)
}

func (d *VideoDecoder) convert(src *astiav.Frame) (media.VideoFrame, error) {
	w, h := outputSize(src.Width(), src.Height(), d.maxWidth)

	if d.ssc == nil || src.Width() != d.srcWidth || src.Height() != d.srcHeight || src.PixelFormat() != d.srcFormat {
		if d.ssc != nil {
			d.ssc.Free()
		}
		ssc, err := astiav.CreateSoftwareScaleContext(
			src.Width(), src.Height(), src.PixelFormat(),
			w, h, astiav.PixelFormatRgb24,
			astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
		)
		if err != nil {
			d.ssc = nil
			return media.VideoFrame{}, fmt.Errorf("ffmpeg: scale context: %w", err)
		}
		d.ssc = ssc
		d.srcWidth, d.srcHeight, d.srcFormat = src.Width(), src.Height(), src.PixelFormat()
	}

	d.dst.Unref()
	d.dst.SetWidth(w)
	d.dst.SetHeight(h)
	d.dst.SetPixelFormat(astiav.PixelFormatRgb24)
	if err := d.dst.AllocBuffer(1); err != nil {
		return media.VideoFrame{}, fmt.Errorf("ffmpeg: alloc picture: %w", err)
	}
	if err := d.ssc.ScaleFrame(src, d.dst); err != nil {
		return media.VideoFrame{}, fmt.Errorf("ffmpeg: scale: %w", err)
	}

	// Bytes copies the picture out of the reused frame
	pixels, err := d.dst.Data().Bytes(1)
	if err != nil {
		return media.VideoFrame{}, fmt.Errorf("ffmpeg: picture bytes: %w", err)
	}
	return media.VideoFrame{Pixels: pixels, Width: w, Height: h}, nil
}

// Flush drops pictures buffered inside the codec
func (d *VideoDecoder) Flush() {
	d.cc.FlushBuffers()
}

// Close frees the codec and scale contexts
func (d *VideoDecoder) Close() error {
	if d.ssc != nil {
		d.ssc.Free()
		d.ssc = nil
	}
	if d.dst != nil {
		d.dst.Free()
		d.dst = nil
	}
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	return nil
}
