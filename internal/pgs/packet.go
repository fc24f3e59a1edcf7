package pgs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// PacketMarker is the big-endian "PG" sentinel opening every packet.
	PacketMarker = 0x5047
	// MaxSegmentLen is the largest payload a 16-bit length field can declare.
	MaxSegmentLen = 0xffff

	packetHeaderLen = 13

	// ptsClockKHz is the presentation clock rate in ticks per millisecond.
	ptsClockKHz = 90
)

// SegmentType identifies the payload kind carried by a packet.
type SegmentType uint8

const (
	SegmentPalette     SegmentType = 0x14
	SegmentObject      SegmentType = 0x15
	SegmentComposition SegmentType = 0x16
	SegmentWindow      SegmentType = 0x17
	SegmentEnd         SegmentType = 0x80
)

func (t SegmentType) String() string {
	switch t {
	case SegmentPalette:
		return "PDS"
	case SegmentObject:
		return "ODS"
	case SegmentComposition:
		return "PCS"
	case SegmentWindow:
		return "WDS"
	case SegmentEnd:
		return "END"
	default:
		return fmt.Sprintf("0x%02x", uint8(t))
	}
}

// Packet is one framed unit of the stream. Payload aliases the reader's
// internal buffer and is only valid until the next call to ReadPacket.
type Packet struct {
	Marker  uint16
	PTS     uint32
	DTS     uint32
	Type    SegmentType
	Payload []byte
}

// PTSMillis converts the 90kHz presentation timestamp to milliseconds.
func (p Packet) PTSMillis() uint64 {
	return PTSToMillis(p.PTS)
}

// PTSToMillis converts a 90kHz timestamp to whole milliseconds.
func PTSToMillis(pts uint32) uint64 {
	return uint64(pts) / ptsClockKHz
}

// PacketReader frames packets from a byte stream. It reuses a single payload
// buffer across reads.
type PacketReader struct {
	r      io.Reader
	header [packetHeaderLen]byte
	buf    []byte
	count  int
}

// NewPacketReader wraps r.
func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{r: r}
}

// Count returns how many packets have been attempted, including failed ones.
func (pr *PacketReader) Count() int {
	return pr.count
}

// ReadPacket reads the next packet. It returns io.EOF only when the stream ends
// cleanly on a packet boundary. ErrBadMarker and ErrTruncated are returned for
// framing problems; any other error comes from the underlying reader.
func (pr *PacketReader) ReadPacket() (Packet, error) {
	n, err := io.ReadFull(pr.r, pr.header[:2])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Packet{}, io.EOF
		}
		pr.count++
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Packet{}, fmt.Errorf("%w: %d byte(s) of marker", ErrTruncated, n)
		}
		return Packet{}, fmt.Errorf("read marker: %w", err)
	}
	pr.count++

	marker := binary.BigEndian.Uint16(pr.header[:2])
	if marker != PacketMarker {
		return Packet{}, fmt.Errorf("%w: got 0x%04x", ErrBadMarker, marker)
	}

	if _, err := io.ReadFull(pr.r, pr.header[2:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Packet{}, fmt.Errorf("%w: short header", ErrTruncated)
		}
		return Packet{}, fmt.Errorf("read header: %w", err)
	}

	pkt := Packet{
		Marker: marker,
		PTS:    binary.BigEndian.Uint32(pr.header[2:6]),
		DTS:    binary.BigEndian.Uint32(pr.header[6:10]),
		Type:   SegmentType(pr.header[10]),
	}
	length := int(binary.BigEndian.Uint16(pr.header[11:13]))

	if cap(pr.buf) < length {
		pr.buf = make([]byte, length)
	}
	pr.buf = pr.buf[:length]
	if length > 0 {
		if n, err := io.ReadFull(pr.r, pr.buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Packet{}, fmt.Errorf("%w: payload %d of %d bytes", ErrTruncated, n, length)
			}
			return Packet{}, fmt.Errorf("read payload: %w", err)
		}
	}
	pkt.Payload = pr.buf
	return pkt, nil
}
