package pgs

import "encoding/binary"

const windowRecordLen = 9

// Window is a rectangular area of the video frame objects are drawn into.
type Window struct {
	ID     uint8
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
}

// WindowTable is a decoded window definition segment (WDS).
type WindowTable struct {
	Windows []Window
}

// Window returns the window with the given id.
func (t *WindowTable) Window(id uint8) (Window, bool) {
	if t == nil {
		return Window{}, false
	}
	for _, w := range t.Windows {
		if w.ID == id {
			return w, true
		}
	}
	return Window{}, false
}

// DecodeWindows parses a WDS payload: a count byte followed by exactly count
// 9-byte window records.
func DecodeWindows(pkt Packet) (*WindowTable, error) {
	b := pkt.Payload
	if len(b) < 1 {
		return nil, malformed("window payload is empty")
	}
	count := int(b[0])
	if want := 1 + count*windowRecordLen; len(b) != want {
		return nil, malformed("window table declares %d window(s): payload %d bytes, want %d", count, len(b), want)
	}
	t := &WindowTable{Windows: make([]Window, count)}
	for i := range t.Windows {
		rec := b[1+i*windowRecordLen:]
		t.Windows[i] = Window{
			ID:     rec[0],
			X:      binary.BigEndian.Uint16(rec[1:3]),
			Y:      binary.BigEndian.Uint16(rec[3:5]),
			Width:  binary.BigEndian.Uint16(rec[5:7]),
			Height: binary.BigEndian.Uint16(rec[7:9]),
		}
	}
	return t, nil
}
