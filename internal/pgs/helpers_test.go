package pgs

import (
	"bytes"
	"encoding/binary"
)

func makePacket(typ SegmentType, ptsMillis uint32, payload []byte) []byte {
	buf := make([]byte, packetHeaderLen+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], PacketMarker)
	binary.BigEndian.PutUint32(buf[2:6], ptsMillis*ptsClockKHz)
	binary.BigEndian.PutUint32(buf[6:10], 0)
	buf[10] = byte(typ)
	binary.BigEndian.PutUint16(buf[11:13], uint16(len(payload)))
	copy(buf[packetHeaderLen:], payload)
	return buf
}

func pcsPayload(width, height uint16, state CompositionState, objects ...CompositionObject) []byte {
	buf := make([]byte, pcsHeaderLen, pcsHeaderLen+len(objects)*compositionObjLen)
	binary.BigEndian.PutUint16(buf[0:2], width)
	binary.BigEndian.PutUint16(buf[2:4], height)
	buf[4] = 0x10
	binary.BigEndian.PutUint16(buf[5:7], 1)
	buf[7] = byte(state)
	buf[10] = byte(len(objects))
	for _, obj := range objects {
		rec := make([]byte, compositionObjLen)
		binary.BigEndian.PutUint16(rec[0:2], obj.ObjectID)
		rec[2] = obj.WindowID
		if obj.Cropped {
			rec[3] |= objectCroppedFlag
		}
		if obj.Forced {
			rec[3] |= objectForcedFlag
		}
		binary.BigEndian.PutUint16(rec[4:6], obj.X)
		binary.BigEndian.PutUint16(rec[6:8], obj.Y)
		buf = append(buf, rec...)
	}
	return buf
}

func wdsPayload(windows ...Window) []byte {
	buf := []byte{byte(len(windows))}
	for _, w := range windows {
		rec := make([]byte, windowRecordLen)
		rec[0] = w.ID
		binary.BigEndian.PutUint16(rec[1:3], w.X)
		binary.BigEndian.PutUint16(rec[3:5], w.Y)
		binary.BigEndian.PutUint16(rec[5:7], w.Width)
		binary.BigEndian.PutUint16(rec[7:9], w.Height)
		buf = append(buf, rec...)
	}
	return buf
}

func pdsPayload(id uint16, entries ...PaletteEntry) []byte {
	buf := []byte{byte(id >> 8), byte(id)}
	for _, e := range entries {
		buf = append(buf, e.Index, e.Y, e.Cr, e.Cb, e.Alpha)
	}
	return buf
}

func odsPayload(id uint16, first, last bool, width, height uint16, data []byte) []byte {
	var flags byte
	if first {
		flags |= objectFirstFlag
	}
	if last {
		flags |= objectLastFlag
	}
	buf := []byte{byte(id >> 8), byte(id), 0, flags}
	if first {
		total := len(data) + 4
		buf = append(buf, byte(total>>16), byte(total>>8), byte(total))
		buf = append(buf, byte(width>>8), byte(width), byte(height>>8), byte(height))
	}
	return append(buf, data...)
}

// displaySet builds PCS, WDS, PDS, ODS and END packets drawing one object.
func displaySet(ptsMillis uint32, state CompositionState, width, height uint16, obj CompositionObject, win Window, gray1 uint8, rle []byte) []byte {
	var stream bytes.Buffer
	stream.Write(makePacket(SegmentComposition, ptsMillis, pcsPayload(width, height, state, obj)))
	stream.Write(makePacket(SegmentWindow, ptsMillis, wdsPayload(win)))
	stream.Write(makePacket(SegmentPalette, ptsMillis, pdsPayload(0,
		PaletteEntry{Index: 0, Y: 0, Alpha: 0},
		PaletteEntry{Index: 1, Y: gray1, Alpha: 0xff},
	)))
	stream.Write(makePacket(SegmentObject, ptsMillis, odsPayload(obj.ObjectID, true, true, 4, 4, rle)))
	stream.Write(makePacket(SegmentEnd, ptsMillis, nil))
	return stream.Bytes()
}

// eraseSet builds a display set with no objects.
func eraseSet(ptsMillis uint32, width, height uint16, win Window) []byte {
	var stream bytes.Buffer
	stream.Write(makePacket(SegmentComposition, ptsMillis, pcsPayload(width, height, StateNormal)))
	stream.Write(makePacket(SegmentWindow, ptsMillis, wdsPayload(win)))
	stream.Write(makePacket(SegmentEnd, ptsMillis, nil))
	return stream.Bytes()
}

type frameRecorder struct {
	frames []Frame
}

func (r *frameRecorder) Emit(f Frame) error {
	r.frames = append(r.frames, f)
	return nil
}
