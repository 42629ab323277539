// Package frame provides a strided 16-bit image frame type and the small set
// of operations the photon pipeline performs on frames.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/ribeiro-lab/photond/mathx"
)

// Frame is a row-major strided image as read out from a camera.
type Frame struct {
	// Pix is the pixel data, length Width*Height
	Pix []uint16

	// Width is the frame width in pixels
	Width int

	// Height is the frame height in pixels
	Height int
}

// New wraps a strided buffer in a Frame, checking that the buffer actually
// holds Width*Height samples
func New(pix []uint16, width, height int) (Frame, error) {
	if len(pix) != width*height {
		return Frame{}, fmt.Errorf("frame buffer holds %d samples, expected %dx%d=%d", len(pix), width, height, width*height)
	}
	return Frame{Pix: pix, Width: width, Height: height}, nil
}

// CenteredROI extracts a centered region of interest from the frame.  The
// window is anchored with integer arithmetic, so odd differences truncate
// toward the top-left.  The returned frame owns a copy of the pixels.
func (f Frame) CenteredROI(width, height int) (Frame, error) {
	if width > f.Width || height > f.Height {
		return Frame{}, fmt.Errorf("ROI %dx%d exceeds frame %dx%d", width, height, f.Width, f.Height)
	}
	x0 := f.Width/2 - width/2
	y0 := f.Height/2 - height/2
	pix := make([]uint16, 0, width*height)
	for y := y0; y < y0+height; y++ {
		row := f.Pix[y*f.Width+x0 : y*f.Width+x0+width]
		pix = append(pix, row...)
	}
	return Frame{Pix: pix, Width: width, Height: height}, nil
}

// Mean returns the mean pixel value in ADU
func (f Frame) Mean() float64 {
	if len(f.Pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range f.Pix {
		sum += float64(v)
	}
	return sum / float64(len(f.Pix))
}

// Std returns the population standard deviation of the pixel values in ADU
func (f Frame) Std() float64 {
	vals := make([]float64, len(f.Pix))
	for i, v := range f.Pix {
		vals[i] = float64(v)
	}
	return mathx.Std(vals)
}

// Digest returns an xxhash64 digest of the pixel data, used as a cheap
// integrity/provenance marker on archived samples
func (f Frame) Digest() uint64 {
	b := make([]byte, len(f.Pix)*2)
	for i, v := range f.Pix {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	return xxhash.Sum64(b)
}

// Rot90 rotates a strided buffer 90 degrees clockwise, returning a new buffer.
// The output is strided by the input height.
func Rot90(stridedBuffer []uint16, width, height int) []uint16 {
	out := make([]uint16, len(stridedBuffer))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// (x, y) -> (height-1-y, x) in the rotated, height-strided frame
			out[x*height+(height-1-y)] = stridedBuffer[y*width+x]
		}
	}
	return out
}
