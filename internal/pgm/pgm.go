// Package pgm writes 8-bit grayscale rasters as binary portable graymaps (P5).
package pgm

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Write encodes a width x height raster. The header's maxval is the brightest
// sample present, at least 1.
func Write(w io.Writer, width, height int, pix []byte) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("pgm: invalid size %dx%d", width, height)
	}
	if len(pix) != width*height {
		return fmt.Errorf("pgm: %d samples for %dx%d raster", len(pix), width, height)
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P5\n%d %d\n%d\n", width, height, MaxValue(pix)); err != nil {
		return err
	}
	if _, err := bw.Write(pix); err != nil {
		return err
	}
	return bw.Flush()
}

// MaxValue returns the largest sample in pix, or 1 when every sample is 0.
func MaxValue(pix []byte) uint8 {
	maxval := uint8(1)
	for _, v := range pix {
		if v > maxval {
			maxval = v
			if v == 0xff {
				break
			}
		}
	}
	return maxval
}

// WriteFile writes the raster to path, replacing any existing file.
func WriteFile(path string, width, height int, pix []byte) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(file, width, height, pix); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
