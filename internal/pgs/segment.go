package pgs

import "fmt"

// Segment is the decoded form of one packet payload. The concrete type is one
// of *Composition, *Palette, *WindowTable, *ObjectFragment, EndSegment or
// UnknownSegment.
type Segment interface {
	segmentType() SegmentType
}

// EndSegment marks the end of a display set.
type EndSegment struct{}

// UnknownSegment carries a segment type this package does not interpret.
type UnknownSegment struct {
	Type SegmentType
	Len  int
}

func (*Composition) segmentType() SegmentType    { return SegmentComposition }
func (*Palette) segmentType() SegmentType        { return SegmentPalette }
func (*WindowTable) segmentType() SegmentType    { return SegmentWindow }
func (*ObjectFragment) segmentType() SegmentType { return SegmentObject }
func (EndSegment) segmentType() SegmentType      { return SegmentEnd }
func (u UnknownSegment) segmentType() SegmentType {
	return u.Type
}

// Decode dispatches pkt to the decoder for its segment type. Unknown types
// decode to UnknownSegment together with ErrUnknownSegment.
func Decode(pkt Packet) (Segment, error) {
	var (
		seg Segment
		err error
	)
	switch pkt.Type {
	case SegmentComposition:
		seg, err = DecodeComposition(pkt)
	case SegmentPalette:
		seg, err = DecodePalette(pkt)
	case SegmentWindow:
		seg, err = DecodeWindows(pkt)
	case SegmentObject:
		seg, err = DecodeObject(pkt)
	case SegmentEnd:
		return EndSegment{}, nil
	default:
		return UnknownSegment{Type: pkt.Type, Len: len(pkt.Payload)}, fmt.Errorf("%w %s", ErrUnknownSegment, pkt.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", pkt.Type, err)
	}
	return seg, nil
}
