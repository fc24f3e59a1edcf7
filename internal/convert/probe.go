package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"sup2pgm/internal/pgs"
)

// ProbeRow describes one packet.
type ProbeRow struct {
	Index  int
	PTS    uint64 // milliseconds
	DTS    uint64 // milliseconds
	Type   pgs.SegmentType
	Size   int
	Detail string
	// Segment is the decoded segment. Object data aliases the read buffer and
	// is only valid during the visit call.
	Segment pgs.Segment
	// Err is set when the packet could not be framed or decoded.
	Err error
}

// ProbeSummary totals a probed stream.
type ProbeSummary struct {
	Packets  int
	Errors   int
	ByType   map[pgs.SegmentType]int
	FirstPTS uint64
	LastPTS  uint64
}

// Probe frames and decodes every packet of r without rendering, calling visit
// once per packet. Packets that fail to decode are reported through
// ProbeRow.Err; read errors and errors from visit end the probe.
func Probe(ctx context.Context, r io.Reader, visit func(ProbeRow) error) (ProbeSummary, error) {
	summary := ProbeSummary{ByType: make(map[pgs.SegmentType]int)}
	pr := pgs.NewPacketReader(r)
	seenPTS := false
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		pkt, err := pr.ReadPacket()
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		row := ProbeRow{Index: pr.Count() - 1}
		summary.Packets = pr.Count()
		if err != nil {
			if !pgs.IsRecoverable(err) {
				return summary, fmt.Errorf("read packet %d: %w", row.Index, err)
			}
			row.Err = err
		} else {
			row.PTS = pkt.PTSMillis()
			row.DTS = pgs.PTSToMillis(pkt.DTS)
			row.Type = pkt.Type
			row.Size = len(pkt.Payload)
			if !seenPTS || row.PTS < summary.FirstPTS {
				summary.FirstPTS = row.PTS
			}
			seenPTS = true
			summary.LastPTS = max(summary.LastPTS, row.PTS)
			summary.ByType[pkt.Type]++

			seg, decodeErr := pgs.Decode(pkt)
			if decodeErr != nil {
				row.Err = decodeErr
			} else {
				row.Segment = seg
				row.Detail = describe(seg)
			}
		}
		if row.Err != nil {
			summary.Errors++
		}
		if visit != nil {
			if err := visit(row); err != nil {
				return summary, err
			}
		}
	}
}

func describe(seg pgs.Segment) string {
	_, attrs := pgs.Describe(seg)
	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		parts = append(parts, attr.Key+"="+attr.Value.String())
	}
	return strings.Join(parts, " ")
}
