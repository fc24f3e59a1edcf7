package pgs

import (
	"errors"
	"math"
	"testing"
)

func TestDecodeComposition(t *testing.T) {
	t.Parallel()
	objs := []CompositionObject{
		{ObjectID: 7, WindowID: 1, Forced: true, X: 100, Y: 800},
		{ObjectID: 8, WindowID: 2, Cropped: true, X: 200, Y: 900},
	}
	pkt := Packet{Type: SegmentComposition, PTS: 90 * 1500, Payload: pcsPayload(1920, 1080, StateEpochStart, objs...)}
	c, err := DecodeComposition(pkt)
	if err != nil {
		t.Fatal(err)
	}
	if c.PTSMillis != 1500 {
		t.Errorf("pts = %d, want 1500", c.PTSMillis)
	}
	if c.VideoWidth != 1920 || c.VideoHeight != 1080 {
		t.Errorf("video = %dx%d, want 1920x1080", c.VideoWidth, c.VideoHeight)
	}
	if c.State != StateEpochStart {
		t.Errorf("state = %s, want epoch_start", c.State)
	}
	if len(c.Objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(c.Objects))
	}
	for i := range objs {
		if c.Objects[i] != objs[i] {
			t.Errorf("object %d = %+v, want %+v", i, c.Objects[i], objs[i])
		}
	}
	if len(c.Objects)*compositionObjLen+pcsHeaderLen != len(pkt.Payload) {
		t.Error("object count does not account for payload length")
	}
}

func TestDecodeComposition_LengthMismatch(t *testing.T) {
	t.Parallel()
	payload := pcsPayload(720, 480, StateNormal, CompositionObject{ObjectID: 1})
	cases := map[string][]byte{
		"extra byte":   append(append([]byte{}, payload...), 0),
		"missing byte": payload[:len(payload)-1],
		"short header": payload[:5],
	}
	for name, b := range cases {
		if _, err := DecodeComposition(Packet{Payload: b}); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestGrayLevelExact(t *testing.T) {
	t.Parallel()
	for y := 0; y <= 255; y++ {
		for a := 0; a <= 255; a++ {
			want := uint8(math.Floor(float64(y*a) / 255))
			if got := GrayLevel(uint8(y), uint8(a)); got != want {
				t.Fatalf("GrayLevel(%d, %d) = %d, want %d", y, a, got, want)
			}
		}
	}
	if GrayLevel(255, 255) != 255 {
		t.Error("full luma at full alpha should be 255")
	}
	if GrayLevel(0, 200) != 0 {
		t.Error("zero luma should be 0")
	}
}

func TestDecodePalette_IgnoresTrailingBytes(t *testing.T) {
	t.Parallel()
	payload := pdsPayload(3,
		PaletteEntry{Index: 1, Y: 200, Alpha: 255},
		PaletteEntry{Index: 9, Y: 255, Alpha: 128},
	)
	payload = append(payload, 0xaa, 0xbb, 0xcc)
	p, err := DecodePalette(Packet{Payload: payload})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != 3 {
		t.Errorf("id = %d, want 3", p.ID)
	}
	if len(p.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(p.Entries))
	}
	if p.Gray(1) != 200 {
		t.Errorf("gray(1) = %d, want 200", p.Gray(1))
	}
	if p.Gray(9) != 128 {
		t.Errorf("gray(9) = %d, want 128", p.Gray(9))
	}
	if p.Gray(2) != 0 {
		t.Errorf("undefined index should be 0, got %d", p.Gray(2))
	}
}

func TestDecodePalette_TooShort(t *testing.T) {
	t.Parallel()
	if _, err := DecodePalette(Packet{Payload: []byte{1}}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeWindows(t *testing.T) {
	t.Parallel()
	win := Window{ID: 2, X: 10, Y: 20, Width: 300, Height: 40}
	tbl, err := DecodeWindows(Packet{Payload: wdsPayload(win)})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := tbl.Window(2)
	if !ok || got != win {
		t.Fatalf("window = %+v (%t), want %+v", got, ok, win)
	}

	bad := append(wdsPayload(win), 0)
	if _, err := DecodeWindows(Packet{Payload: bad}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := DecodeWindows(Packet{}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for empty payload, got %v", err)
	}
}

func TestDecodeObject_First(t *testing.T) {
	t.Parallel()
	payload := []byte{0x00, 0x05, 0x01, 0xc0, 0x01, 0x02, 0x03, 0x00, 0x10, 0x00, 0x08, 0xaa, 0xbb}
	f, err := DecodeObject(Packet{Payload: payload})
	if err != nil {
		t.Fatal(err)
	}
	if f.ObjectID != 5 || f.Version != 1 {
		t.Errorf("id/version = %d/%d, want 5/1", f.ObjectID, f.Version)
	}
	if !f.First || !f.Last {
		t.Errorf("flags first=%t last=%t, want both", f.First, f.Last)
	}
	if f.DataLen != 0x010203 {
		t.Errorf("data len = 0x%06x, want 0x010203", f.DataLen)
	}
	if f.Width != 16 || f.Height != 8 {
		t.Errorf("size = %dx%d, want 16x8", f.Width, f.Height)
	}
	if len(f.Data) != 2 || f.Data[0] != 0xaa {
		t.Errorf("data = %x", f.Data)
	}
}

func TestDecodeObject_MinimumLengths(t *testing.T) {
	t.Parallel()
	first := []byte{0, 1, 0, objectFirstFlag, 0, 0, 4, 0, 1, 0}
	if _, err := DecodeObject(Packet{Payload: first}); !errors.Is(err, ErrMalformed) {
		t.Errorf("10-byte first fragment: expected ErrMalformed, got %v", err)
	}
	cont := []byte{0, 1, 0, objectLastFlag}
	if _, err := DecodeObject(Packet{Payload: cont}); !errors.Is(err, ErrMalformed) {
		t.Errorf("4-byte continuation: expected ErrMalformed, got %v", err)
	}
	if _, err := DecodeObject(Packet{Payload: append(cont, 0x01)}); err != nil {
		t.Errorf("5-byte continuation: unexpected error %v", err)
	}
}

func TestDecode_Dispatch(t *testing.T) {
	t.Parallel()
	seg, err := Decode(Packet{Type: SegmentEnd})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := seg.(EndSegment); !ok {
		t.Errorf("expected EndSegment, got %T", seg)
	}

	seg, err = Decode(Packet{Type: SegmentType(0x42), Payload: []byte{1, 2}})
	if !errors.Is(err, ErrUnknownSegment) {
		t.Fatalf("expected ErrUnknownSegment, got %v", err)
	}
	if u, ok := seg.(UnknownSegment); !ok || u.Len != 2 {
		t.Errorf("expected UnknownSegment with length 2, got %#v", seg)
	}

	if _, err := Decode(Packet{Type: SegmentWindow, Payload: []byte{2}}); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed through Decode, got %v", err)
	}
}

func TestFrameRate(t *testing.T) {
	t.Parallel()
	if FrameRate(0x20) != 24 {
		t.Errorf("0x20 = %f, want 24", FrameRate(0x20))
	}
	if FrameRate(0x99) != 0 {
		t.Errorf("unknown id should map to 0")
	}
}
