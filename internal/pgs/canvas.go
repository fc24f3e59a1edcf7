package pgs

import (
	"fmt"
	"math/bits"

	"github.com/pbnjay/memory"
)

// Canvas is the 8-bit grayscale frame buffer objects are rendered into.
type Canvas struct {
	Width  int
	Height int
	Pix    []byte
}

// NewCanvas allocates a zeroed width x height canvas. limit caps the
// allocation in bytes; 0 derives the cap from system memory.
func NewCanvas(width, height int, limit uint64) (*Canvas, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("canvas %dx%d: negative dimension", width, height)
	}
	hi, size := bits.Mul64(uint64(width), uint64(height))
	if hi != 0 || size > uint64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("canvas %dx%d: size overflows", width, height)
	}
	if limit == 0 {
		limit = defaultCanvasLimit()
	}
	if limit > 0 && size > limit {
		return nil, fmt.Errorf("canvas %dx%d: %d bytes exceeds limit of %d", width, height, size, limit)
	}
	return &Canvas{Width: width, Height: height, Pix: make([]byte, size)}, nil
}

// defaultCanvasLimit allows a canvas up to a quarter of physical memory. When
// the platform does not report memory size there is no cap beyond the 16-bit
// dimensions themselves.
func defaultCanvasLimit() uint64 {
	total := memory.TotalMemory()
	if total == 0 {
		return 0
	}
	return total / 4
}

// SameSize reports whether the canvas already has the given dimensions.
func (c *Canvas) SameSize(width, height int) bool {
	return c != nil && c.Width == width && c.Height == height
}

// Clear zeroes every pixel.
func (c *Canvas) Clear() {
	clear(c.Pix)
}

// ClearRegion zeroes the w x h rectangle at (x, y), clipped to the canvas.
func (c *Canvas) ClearRegion(x, y, w, h int) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, c.Width), min(y+h, c.Height)
	if x0 >= x1 || y0 >= y1 {
		return
	}
	for row := y0; row < y1; row++ {
		clear(c.Pix[row*c.Width+x0 : row*c.Width+x1])
	}
}

// Empty reports whether every pixel is background.
func (c *Canvas) Empty() bool {
	if c == nil {
		return true
	}
	for _, v := range c.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// At returns the pixel at (x, y), or 0 outside the canvas.
func (c *Canvas) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0
	}
	return c.Pix[y*c.Width+x]
}

// Snapshot copies the pixel buffer.
func (c *Canvas) Snapshot() []byte {
	out := make([]byte, len(c.Pix))
	copy(out, c.Pix)
	return out
}
