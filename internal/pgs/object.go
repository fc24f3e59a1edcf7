package pgs

import (
	"encoding/binary"
	"fmt"
)

const (
	objectFirstFlag = 0x80
	objectLastFlag  = 0x40

	odsHeaderLen      = 4
	odsFirstHeaderLen = 11

	// MaxObjectDataLen bounds a reassembled object; the declared total length
	// is a 24-bit field.
	MaxObjectDataLen = 0xffffff
)

// ObjectFragment is a decoded object definition segment (ODS). Data aliases
// the packet payload.
type ObjectFragment struct {
	ObjectID uint16
	Version  uint8
	First    bool
	Last     bool
	// DataLen, Width and Height are only present on the first fragment.
	DataLen uint32
	Width   uint16
	Height  uint16
	Data    []byte
}

// DecodeObject parses an ODS payload.
func DecodeObject(pkt Packet) (*ObjectFragment, error) {
	b := pkt.Payload
	if len(b) < odsHeaderLen {
		return nil, malformed("object payload %d bytes, need at least %d", len(b), odsHeaderLen)
	}
	f := &ObjectFragment{
		ObjectID: binary.BigEndian.Uint16(b[0:2]),
		Version:  b[2],
		First:    b[3]&objectFirstFlag != 0,
		Last:     b[3]&objectLastFlag != 0,
	}
	offset := odsHeaderLen
	if f.First {
		if len(b) < odsFirstHeaderLen {
			return nil, malformed("first object fragment %d bytes, need at least %d", len(b), odsFirstHeaderLen)
		}
		f.DataLen = uint32(b[4])<<16 | uint32(b[5])<<8 | uint32(b[6])
		f.Width = binary.BigEndian.Uint16(b[7:9])
		f.Height = binary.BigEndian.Uint16(b[9:11])
		offset = odsFirstHeaderLen
	} else if len(b) < odsHeaderLen+1 {
		return nil, malformed("object fragment %d bytes, need at least %d", len(b), odsHeaderLen+1)
	}
	f.Data = b[offset:]
	return f, nil
}

// objectBuffer collects the fragments of one object id.
type objectBuffer struct {
	data     []byte
	complete bool
	width    uint16
	height   uint16
}

// objectAccumulator reassembles objects split across packets, keyed by id.
// Fragment bytes are copied because packet payloads are reused by the reader.
type objectAccumulator struct {
	objects map[uint16]*objectBuffer
}

func newObjectAccumulator() *objectAccumulator {
	return &objectAccumulator{objects: make(map[uint16]*objectBuffer)}
}

// add appends a fragment. A first fragment discards whatever was buffered for
// its id. It reports whether the object is now complete.
func (a *objectAccumulator) add(f *ObjectFragment) (bool, error) {
	buf, ok := a.objects[f.ObjectID]
	if !ok {
		buf = &objectBuffer{}
		a.objects[f.ObjectID] = buf
	}
	if f.First {
		buf.data = buf.data[:0]
		buf.complete = false
		buf.width = f.Width
		buf.height = f.Height
	}
	if len(buf.data) > MaxObjectDataLen-len(f.Data) {
		size := len(buf.data)
		delete(a.objects, f.ObjectID)
		return false, malformed("object 0x%04x exceeds %d bytes (%d buffered, %d incoming)", f.ObjectID, MaxObjectDataLen, size, len(f.Data))
	}
	buf.data = append(buf.data, f.Data...)
	if f.Last {
		buf.complete = true
	}
	return buf.complete, nil
}

// get returns the buffered bytes for id.
func (a *objectAccumulator) get(id uint16) (*objectBuffer, bool) {
	buf, ok := a.objects[id]
	return buf, ok
}

func (a *objectAccumulator) reset() {
	clear(a.objects)
}

func (a *objectAccumulator) size() int {
	return len(a.objects)
}

func (b *objectBuffer) String() string {
	return fmt.Sprintf("%dx%d, %d byte(s), complete=%t", b.width, b.height, len(b.data), b.complete)
}
