package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sup2pgm/internal/convert"
	"sup2pgm/internal/pgs"
	"sup2pgm/internal/srt"
)

var printer = message.NewPrinter(language.English)

func printSummary(w io.Writer, s convert.Summary) {
	st := s.Stats
	printer.Fprintf(w, "%d packets parsed, %d images saved to %s", st.Packets, st.Frames, s.IndexPath)
	if n := st.Errors(); n > 0 {
		printer.Fprintf(w, " (%d packets skipped: %s)", n, errorBreakdown(st))
	}
	fmt.Fprintln(w)
}

func errorBreakdown(st pgs.Stats) string {
	kinds := []struct {
		label string
		count int
	}{
		{"bad marker", st.BadMarker},
		{"truncated", st.Truncated},
		{"malformed", st.Malformed},
		{"unknown type", st.Unknown},
		{"unplaced object", st.Correlation},
	}
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if k.count > 0 {
			parts = append(parts, printer.Sprintf("%d %s", k.count, k.label))
		}
	}
	return strings.Join(parts, ", ")
}

func formatMillis(ms uint64) string {
	tc, err := srt.FormatTimecode(ms)
	if err != nil {
		return printer.Sprintf("%d ms", ms)
	}
	return tc
}

var titleCaser = cases.Title(language.Und)

// stateLabel renders a composition state for humans, e.g. "Epoch Start".
func stateLabel(state pgs.CompositionState) string {
	return titleCaser.String(strings.ReplaceAll(state.String(), "_", " "))
}

func sortedTypes(counts map[pgs.SegmentType]int) []pgs.SegmentType {
	types := make([]pgs.SegmentType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
