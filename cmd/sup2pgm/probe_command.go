package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sup2pgm/internal/convert"
	"sup2pgm/internal/input"
	"sup2pgm/internal/pgs"
)

func newProbeCommand() *cobra.Command {
	var errorsOnly bool

	cmd := &cobra.Command{
		Use:   "probe [file]",
		Short: "List the packets of a SUP stream without rendering",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := input.StdinName
			if len(args) == 1 {
				path = args[0]
			}
			stream, err := input.Open(path)
			if err != nil {
				return err
			}
			defer stream.Close()

			var rows [][]string
			summary, err := convert.Probe(cmd.Context(), stream, func(row convert.ProbeRow) error {
				if errorsOnly && row.Err == nil {
					return nil
				}
				rows = append(rows, probeRow(row))
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			style := styleFor(out)
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable(style,
					[]string{"#", "PTS", "DTS", "Type", "State", "Bytes", "Detail"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
			}

			counts := make([][]string, 0, len(summary.ByType))
			for _, t := range sortedTypes(summary.ByType) {
				counts = append(counts, []string{t.String(), printer.Sprintf("%d", summary.ByType[t])})
			}
			if len(counts) > 0 {
				fmt.Fprintln(out, renderTable(style, []string{"Segment", "Packets"}, counts, []columnAlignment{alignLeft, alignRight}))
			}
			printer.Fprintf(out, "%d packets, %d errors", summary.Packets, summary.Errors)
			if summary.Packets > summary.Errors {
				fmt.Fprintf(out, ", %s --> %s", formatMillis(summary.FirstPTS), formatMillis(summary.LastPTS))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&errorsOnly, "errors", false, "Only list packets that failed to decode")
	return cmd
}

func probeRow(row convert.ProbeRow) []string {
	index := strconv.Itoa(row.Index)
	if row.Err != nil {
		if errors.Is(row.Err, pgs.ErrBadMarker) || errors.Is(row.Err, pgs.ErrTruncated) {
			return []string{index, "", "", "", "", "", "error: " + row.Err.Error()}
		}
		return []string{index, formatMillis(row.PTS), formatMillis(row.DTS), row.Type.String(), "", strconv.Itoa(row.Size), "error: " + row.Err.Error()}
	}
	state := ""
	if pcs, ok := row.Segment.(*pgs.Composition); ok {
		state = stateLabel(pcs.State)
	}
	return []string{
		index,
		formatMillis(row.PTS),
		formatMillis(row.DTS),
		row.Type.String(),
		state,
		strconv.Itoa(row.Size),
		row.Detail,
	}
}
