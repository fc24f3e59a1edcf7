package pgs

import "encoding/binary"

const (
	pcsHeaderLen       = 11
	compositionObjLen  = 8
	paletteUpdatedFlag = 0x80
	objectCroppedFlag  = 0x80
	objectForcedFlag   = 0x40
)

// CompositionState is the epoch role of a presentation composition.
type CompositionState uint8

const (
	StateNormal           CompositionState = 0x00
	StateAcquisitionPoint CompositionState = 0x40
	StateEpochStart       CompositionState = 0x80
	StateEpochContinue    CompositionState = 0xc0
)

func (s CompositionState) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateAcquisitionPoint:
		return "acquisition_point"
	case StateEpochStart:
		return "epoch_start"
	case StateEpochContinue:
		return "epoch_continue"
	default:
		return "unknown"
	}
}

// CompositionObject places one bitmap object inside a window.
type CompositionObject struct {
	ObjectID uint16
	WindowID uint8
	Cropped  bool
	Forced   bool
	X        uint16
	Y        uint16
}

// Composition is a decoded presentation composition segment (PCS).
type Composition struct {
	PTSMillis      uint64
	VideoWidth     uint16
	VideoHeight    uint16
	FrameRateID    uint8
	CompositionID  uint16
	State          CompositionState
	PaletteUpdated bool
	PaletteID      uint8
	Objects        []CompositionObject
}

// Object returns the composition entry for id.
func (c *Composition) Object(id uint16) (CompositionObject, bool) {
	if c == nil {
		return CompositionObject{}, false
	}
	for _, obj := range c.Objects {
		if obj.ObjectID == id {
			return obj, true
		}
	}
	return CompositionObject{}, false
}

// FrameRate maps a frame-rate id to frames per second; unknown ids yield 0.
func FrameRate(id uint8) float64 {
	switch id {
	case 0x10:
		return 24000.0 / 1001
	case 0x20:
		return 24
	case 0x30:
		return 25
	case 0x40:
		return 30000.0 / 1001
	case 0x60:
		return 50
	case 0x70:
		return 60000.0 / 1001
	default:
		return 0
	}
}

// DecodeComposition parses a PCS payload. The payload must be exactly the
// 11-byte header plus 8 bytes per declared object.
func DecodeComposition(pkt Packet) (*Composition, error) {
	b := pkt.Payload
	if len(b) < pcsHeaderLen {
		return nil, malformed("composition payload %d bytes, need at least %d", len(b), pcsHeaderLen)
	}
	count := int(b[10])
	if want := pcsHeaderLen + count*compositionObjLen; len(b) != want {
		return nil, malformed("composition declares %d object(s): payload %d bytes, want %d", count, len(b), want)
	}

	c := &Composition{
		PTSMillis:      pkt.PTSMillis(),
		VideoWidth:     binary.BigEndian.Uint16(b[0:2]),
		VideoHeight:    binary.BigEndian.Uint16(b[2:4]),
		FrameRateID:    b[4],
		CompositionID:  binary.BigEndian.Uint16(b[5:7]),
		State:          CompositionState(b[7]),
		PaletteUpdated: b[8]&paletteUpdatedFlag != 0,
		PaletteID:      b[9],
		Objects:        make([]CompositionObject, count),
	}
	for i := range c.Objects {
		rec := b[pcsHeaderLen+i*compositionObjLen:]
		c.Objects[i] = CompositionObject{
			ObjectID: binary.BigEndian.Uint16(rec[0:2]),
			WindowID: rec[2],
			Cropped:  rec[3]&objectCroppedFlag != 0,
			Forced:   rec[3]&objectForcedFlag != 0,
			X:        binary.BigEndian.Uint16(rec[4:6]),
			Y:        binary.BigEndian.Uint16(rec[6:8]),
		}
	}
	return c, nil
}
