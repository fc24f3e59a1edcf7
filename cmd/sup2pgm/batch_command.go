package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sup2pgm/internal/catalog"
	"sup2pgm/internal/config"
	"sup2pgm/internal/convert"
)

type batchResult struct {
	input   string
	summary convert.Summary
	err     error
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir string
		jobs      int
	)

	cmd := &cobra.Command{
		Use:   "batch <file>...",
		Short: "Convert several SUP files concurrently",
		Long: `batch converts each file with its own decoder. Output for movie.sup is
written as movie00000.pgm ... and movie.srtx in the output directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if outputDir != "" {
				expanded, err := config.ExpandPath(outputDir)
				if err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
				cfg.Output.Dir = expanded
			}
			if jobs <= 0 {
				jobs = cfg.Batch.Concurrency
			}
			if jobs <= 0 {
				jobs = runtime.NumCPU()
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			bases, err := batchBaseNames(args)
			if err != nil {
				return err
			}

			var store *catalog.Store
			if cfg.Output.Catalog {
				store, err = catalog.Open(cmd.Context(), cfg.ResolvedCatalogPath())
				if err != nil {
					return fmt.Errorf("open catalog: %w", err)
				}
				defer store.Close()
			}

			results := runBatch(cmd.Context(), cfg, store, logger, args, bases, jobs)
			return reportBatch(cmd, results)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for frames and cue indexes (default from config)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Files converted at once (default from config, then one per CPU)")
	return cmd
}

func runBatch(ctx context.Context, cfg *config.Config, store *catalog.Store, logger *slog.Logger, inputs, bases []string, jobs int) []batchResult {
	results := make([]batchResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range inputs {
		g.Go(func() error {
			summary, err := convert.Run(gctx, convert.Job{
				Input:    path,
				Config:   cfg,
				BaseName: bases[i],
				Catalog:  store,
				Logger:   logger,
			})
			results[i] = batchResult{input: path, summary: summary, err: err}
			if errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func reportBatch(cmd *cobra.Command, results []batchResult) error {
	rows := make([][]string, 0, len(results))
	failed := 0
	var canceled bool
	for _, r := range results {
		status := "ok"
		if r.err != nil {
			failed++
			status = "failed: " + r.err.Error()
			canceled = canceled || errors.Is(r.err, context.Canceled)
		} else if n := r.summary.Stats.Errors(); n > 0 {
			status = printer.Sprintf("ok, %d skipped", n)
		}
		rows = append(rows, []string{
			r.input,
			printer.Sprintf("%d", r.summary.Stats.Packets),
			printer.Sprintf("%d", r.summary.Stats.Frames),
			r.summary.IndexPath,
			status,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(styleFor(out),
		[]string{"Input", "Packets", "Images", "Index", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
	if canceled {
		return context.Canceled
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// batchBaseNames derives one output base per input from its file name,
// dropping compression and .sup extensions. Two inputs may not share a base.
func batchBaseNames(inputs []string) ([]string, error) {
	bases := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, path := range inputs {
		name := filepath.Base(path)
		for _, ext := range []string{".gz", ".zst", ".sup"} {
			if strings.HasSuffix(strings.ToLower(name), ext) && len(name) > len(ext) {
				name = name[:len(name)-len(ext)]
			}
		}
		if name == "" || name == "." || name == string(filepath.Separator) || path == "-" {
			return nil, fmt.Errorf("cannot derive an output name from %q", path)
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%s and %s would both write %s*.pgm", prev, path, name)
		}
		seen[name] = path
		bases[i] = name
	}
	return bases, nil
}
