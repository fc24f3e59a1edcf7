package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"sup2pgm/internal/pgs"
)

// Canvas and object geometry used by Subtitle.
const (
	VideoWidth   = 64
	VideoHeight  = 32
	SubtitleX    = 8
	SubtitleY    = 4
	subtitleW    = 4
	subtitleRows = 2
)

// Stream assembles a synthetic SUP stream packet by packet.
type Stream struct {
	buf bytes.Buffer
}

// NewStream returns an empty stream.
func NewStream() *Stream {
	return &Stream{}
}

// Packet appends one framed packet. ms is converted to 90 kHz ticks.
func (s *Stream) Packet(typ pgs.SegmentType, ms uint32, payload []byte) *Stream {
	var header [13]byte
	binary.BigEndian.PutUint16(header[0:2], pgs.PacketMarker)
	binary.BigEndian.PutUint32(header[2:6], ms*90)
	header[10] = byte(typ)
	binary.BigEndian.PutUint16(header[11:13], uint16(len(payload)))
	s.buf.Write(header[:])
	s.buf.Write(payload)
	return s
}

// Composition appends a PCS.
func (s *Stream) Composition(ms uint32, width, height uint16, state pgs.CompositionState, objects ...pgs.CompositionObject) *Stream {
	payload := make([]byte, 11, 11+8*len(objects))
	binary.BigEndian.PutUint16(payload[0:2], width)
	binary.BigEndian.PutUint16(payload[2:4], height)
	payload[4] = 0x10
	payload[7] = byte(state)
	payload[10] = byte(len(objects))
	for _, obj := range objects {
		var rec [8]byte
		binary.BigEndian.PutUint16(rec[0:2], obj.ObjectID)
		rec[2] = obj.WindowID
		binary.BigEndian.PutUint16(rec[4:6], obj.X)
		binary.BigEndian.PutUint16(rec[6:8], obj.Y)
		payload = append(payload, rec[:]...)
	}
	return s.Packet(pgs.SegmentComposition, ms, payload)
}

// Windows appends a WDS.
func (s *Stream) Windows(ms uint32, windows ...pgs.Window) *Stream {
	payload := []byte{byte(len(windows))}
	for _, w := range windows {
		var rec [9]byte
		rec[0] = w.ID
		binary.BigEndian.PutUint16(rec[1:3], w.X)
		binary.BigEndian.PutUint16(rec[3:5], w.Y)
		binary.BigEndian.PutUint16(rec[5:7], w.Width)
		binary.BigEndian.PutUint16(rec[7:9], w.Height)
		payload = append(payload, rec[:]...)
	}
	return s.Packet(pgs.SegmentWindow, ms, payload)
}

// Palette appends a PDS.
func (s *Stream) Palette(ms uint32, id uint16, entries ...pgs.PaletteEntry) *Stream {
	payload := []byte{byte(id >> 8), byte(id)}
	for _, e := range entries {
		payload = append(payload, e.Index, e.Y, e.Cr, e.Cb, e.Alpha)
	}
	return s.Packet(pgs.SegmentPalette, ms, payload)
}

// Object appends a single-fragment ODS carrying rle.
func (s *Stream) Object(ms uint32, id uint16, width, height uint16, rle []byte) *Stream {
	total := len(rle) + 4
	payload := []byte{
		byte(id >> 8), byte(id), 0, 0xc0,
		byte(total >> 16), byte(total >> 8), byte(total),
		byte(width >> 8), byte(width), byte(height >> 8), byte(height),
	}
	return s.Packet(pgs.SegmentObject, ms, append(payload, rle...))
}

// End appends an END segment.
func (s *Stream) End(ms uint32) *Stream {
	return s.Packet(pgs.SegmentEnd, ms, nil)
}

// Raw appends bytes verbatim.
func (s *Stream) Raw(b []byte) *Stream {
	s.buf.Write(b)
	return s
}

// Subtitle appends a complete epoch-start display set drawing a 4x2 block of
// the given gray level at (SubtitleX, SubtitleY).
func (s *Stream) Subtitle(ms uint32, gray uint8) *Stream {
	obj := pgs.CompositionObject{ObjectID: 0, WindowID: 0, X: SubtitleX, Y: SubtitleY}
	rle := []byte{0x00, 0x80 | subtitleW, 0x01, 0x00, 0x00, 0x00, 0x80 | subtitleW, 0x01, 0x00, 0x00}
	return s.Composition(ms, VideoWidth, VideoHeight, pgs.StateEpochStart, obj).
		Windows(ms, testWindow()).
		Palette(ms, 0, pgs.PaletteEntry{Index: 1, Y: gray, Alpha: 0xff}).
		Object(ms, 0, subtitleW, subtitleRows, rle).
		End(ms)
}

// Erase appends a display set with no objects, clearing the subtitle window.
func (s *Stream) Erase(ms uint32) *Stream {
	return s.Composition(ms, VideoWidth, VideoHeight, pgs.StateNormal).
		Windows(ms, testWindow()).
		End(ms)
}

// Bytes returns the assembled stream.
func (s *Stream) Bytes() []byte {
	return s.buf.Bytes()
}

// WriteFile writes the stream to dir/name and returns the path.
func (s *Stream) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, s.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func testWindow() pgs.Window {
	return pgs.Window{ID: 0, X: SubtitleX, Y: SubtitleY, Width: 16, Height: 4}
}
