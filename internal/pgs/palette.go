package pgs

import "encoding/binary"

const paletteEntryLen = 5

// PaletteEntry is one YCbCrA color and its derived gray sample.
type PaletteEntry struct {
	Index uint8
	Y     uint8
	Cr    uint8
	Cb    uint8
	Alpha uint8
	Gray  uint8
}

// Palette is a decoded palette definition segment (PDS).
type Palette struct {
	ID      uint16
	Entries []PaletteEntry
	gray    [256]uint8
}

// Gray returns the gray sample for palette index idx. Undefined indexes are
// transparent and render as 0.
func (p *Palette) Gray(idx uint8) uint8 {
	if p == nil {
		return 0
	}
	return p.gray[idx]
}

// GrayLevel blends luma with alpha: floor(y*alpha/255).
func GrayLevel(y, alpha uint8) uint8 {
	return uint8(uint32(y) * uint32(alpha) / 0xff)
}

// DecodePalette parses a PDS payload. Entries occupy 5 bytes each after the
// 2-byte palette id; up to 4 trailing bytes that do not form a whole entry are
// ignored.
func DecodePalette(pkt Packet) (*Palette, error) {
	b := pkt.Payload
	if len(b) < 2 {
		return nil, malformed("palette payload %d bytes, need at least 2", len(b))
	}
	count := (len(b) - 2) / paletteEntryLen
	p := &Palette{
		ID:      binary.BigEndian.Uint16(b[0:2]),
		Entries: make([]PaletteEntry, count),
	}
	for i := range p.Entries {
		rec := b[2+i*paletteEntryLen:]
		e := PaletteEntry{
			Index: rec[0],
			Y:     rec[1],
			Cr:    rec[2],
			Cb:    rec[3],
			Alpha: rec[4],
		}
		e.Gray = GrayLevel(e.Y, e.Alpha)
		p.Entries[i] = e
		p.gray[e.Index] = e.Gray
	}
	return p, nil
}
