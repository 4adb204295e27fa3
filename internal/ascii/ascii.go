// ABOUTME: Converts RGB frames into character images for terminal display
// ABOUTME: Each character covers a block of pixels and carries its average color
package ascii

import (
	"strings"

	"github.com/cobyj33/ascii-video/pkg/media"
)

// Ramp orders characters from empty to dense
const Ramp = " .`:,;'_^\"<>-/=~|()?}{][ti+l7v1%yrfcJ32uIC$zwo96sngaT5qpkYVOL40&mG8*xhedbZUSAQPFDXWK#RNEHBM@"

// charAspect is how much taller a terminal cell is than it is wide
const charAspect = 2

// Image is a character rendering of a frame
type Image struct {
	Width  int
	Height int
	Lines  []string
	// Colors holds the average RGB of each cell, row-major
	Colors [][3]uint8
}

// CharForValue maps a luminance value to a ramp character
func CharForValue(v uint8) byte {
	return Ramp[int(v)*len(Ramp)/256]
}

// luminance uses the Rec. 601 weights
func luminance(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}

// OutputSize fits a srcWidth x srcHeight picture into maxCols x maxRows
// cells, keeping the aspect ratio of the picture on screen
func OutputSize(srcWidth, srcHeight, maxCols, maxRows int) (cols, rows int) {
	if srcWidth <= 0 || srcHeight <= 0 || maxCols <= 0 || maxRows <= 0 {
		return 0, 0
	}

	cols = min(maxCols, srcWidth)
	rows = cols * srcHeight / (srcWidth * charAspect)
	if rows > maxRows {
		rows = maxRows
		cols = min(rows*srcWidth*charAspect/srcHeight, maxCols, srcWidth)
	}
	return max(1, cols), max(1, rows)
}

// Convert renders frame into at most maxCols x maxRows characters
func Convert(frame *media.VideoFrame, maxCols, maxRows int) Image {
	if frame == nil || len(frame.Pixels) < frame.Width*frame.Height*3 {
		return Image{}
	}

	cols, rows := OutputSize(frame.Width, frame.Height, maxCols, maxRows)
	img := Image{
		Width:  cols,
		Height: rows,
		Lines:  make([]string, rows),
		Colors: make([][3]uint8, cols*rows),
	}
	if cols == 0 {
		return img
	}

	var line strings.Builder
	for row := 0; row < rows; row++ {
		y0 := row * frame.Height / rows
		y1 := max((row+1)*frame.Height/rows, y0+1)

		line.Reset()
		line.Grow(cols)
		for col := 0; col < cols; col++ {
			x0 := col * frame.Width / cols
			x1 := max((col+1)*frame.Width/cols, x0+1)

			c := averageColor(frame, x0, y0, x1, y1)
			img.Colors[row*cols+col] = c
			line.WriteByte(CharForValue(luminance(c[0], c[1], c[2])))
		}
		img.Lines[row] = line.String()
	}
	return img
}

// averageColor averages the pixels in [x0,x1) x [y0,y1)
func averageColor(frame *media.VideoFrame, x0, y0, x1, y1 int) [3]uint8 {
	var r, g, b, n int
	for y := y0; y < y1; y++ {
		rowStart := y * frame.Width * 3
		for x := x0; x < x1; x++ {
			i := rowStart + x*3
			r += int(frame.Pixels[i])
			g += int(frame.Pixels[i+1])
			b += int(frame.Pixels[i+2])
			n++
		}
	}
	if n == 0 {
		return [3]uint8{}
	}
	return [3]uint8{uint8(r / n), uint8(g / n), uint8(b / n)}
}

// String joins the lines of img
func (img Image) String() string {
	return strings.Join(img.Lines, "\n")
}
