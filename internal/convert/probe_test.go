package convert

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"sup2pgm/internal/pgs"
	"sup2pgm/internal/testsupport"
)

func TestProbeListsPackets(t *testing.T) {
	stream := testsupport.NewStream().Subtitle(1_000, 0xff).Erase(2_000)
	var rows []ProbeRow
	summary, err := Probe(context.Background(), bytes.NewReader(stream.Bytes()), func(row ProbeRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if summary.Packets != 8 || len(rows) != 8 {
		t.Fatalf("packets = %d rows = %d", summary.Packets, len(rows))
	}
	if summary.Errors != 0 {
		t.Fatalf("errors = %d", summary.Errors)
	}
	if summary.ByType[pgs.SegmentComposition] != 2 || summary.ByType[pgs.SegmentEnd] != 2 {
		t.Fatalf("by type = %v", summary.ByType)
	}
	if summary.FirstPTS != 1_000 || summary.LastPTS != 2_000 {
		t.Fatalf("pts range = %d..%d", summary.FirstPTS, summary.LastPTS)
	}
	first := rows[0]
	if first.Type != pgs.SegmentComposition || first.PTS != 1_000 || first.Size != 19 {
		t.Fatalf("first row = %+v", first)
	}
	if !strings.Contains(first.Detail, "state=") || !strings.Contains(first.Detail, "video=64x32") {
		t.Fatalf("detail = %q", first.Detail)
	}
}

func TestProbeReportsBadPackets(t *testing.T) {
	stream := testsupport.NewStream().Raw([]byte{0, 0}).Packet(pgs.SegmentComposition, 0, []byte{1, 2, 3})
	var rows []ProbeRow
	summary, err := Probe(context.Background(), bytes.NewReader(stream.Bytes()), func(row ProbeRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if summary.Errors != 2 || len(rows) != 2 {
		t.Fatalf("summary = %+v rows = %+v", summary, rows)
	}
	if !errors.Is(rows[0].Err, pgs.ErrBadMarker) || !errors.Is(rows[1].Err, pgs.ErrMalformed) {
		t.Fatalf("row errors = %v, %v", rows[0].Err, rows[1].Err)
	}
}

func TestProbeStopsOnVisitError(t *testing.T) {
	stop := errors.New("stop")
	stream := testsupport.NewStream().Subtitle(0, 1)
	calls := 0
	_, err := Probe(context.Background(), bytes.NewReader(stream.Bytes()), func(ProbeRow) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err = %v calls = %d", err, calls)
	}
}
