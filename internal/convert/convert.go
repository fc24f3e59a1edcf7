package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"sup2pgm/internal/catalog"
	"sup2pgm/internal/config"
	"sup2pgm/internal/input"
	"sup2pgm/internal/logging"
	"sup2pgm/internal/output"
	"sup2pgm/internal/pgs"
	"sup2pgm/internal/preflight"
)

// Job describes one conversion.
type Job struct {
	// Input is a file path or "-" for standard input.
	Input  string
	Config *config.Config
	// BaseName overrides Config.Output.BaseName when set.
	BaseName string
	// Catalog is shared by batch workers; when nil and the config enables the
	// catalog, Run opens and closes its own.
	Catalog *catalog.Store
	Logger  *slog.Logger
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID       string
	Input       string
	BaseName    string
	IndexPath   string
	Compression input.Compression
	Stats       pgs.Stats
	Duration    time.Duration
}

// Run converts job.Input. The returned summary is filled in as far as the run
// got, even on error.
func Run(ctx context.Context, job Job) (Summary, error) {
	started := time.Now()
	summary, err := run(ctx, job, started)
	summary.Duration = time.Since(started)
	return summary, err
}

func run(ctx context.Context, job Job, started time.Time) (Summary, error) {
	cfg := job.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	base := job.BaseName
	if base == "" {
		base = cfg.Output.BaseName
	}

	summary := Summary{RunID: uuid.NewString(), Input: job.Input, BaseName: base}
	ctx = logging.WithInput(logging.WithRunID(ctx, summary.RunID), job.Input)
	runLogger := logging.WithContext(ctx, job.Logger)
	logger := logging.NewComponentLogger(runLogger, "convert")

	if cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return summary, fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := preflight.Err(preflight.RunAll(cfg)); err != nil {
		return summary, err
	}

	stream, err := input.Open(job.Input)
	if err != nil {
		return summary, err
	}
	defer stream.Close()
	summary.Compression = stream.Compression

	store := job.Catalog
	if store == nil && cfg.Output.Catalog {
		store, err = catalog.Open(ctx, cfg.ResolvedCatalogPath())
		if err != nil {
			return summary, fmt.Errorf("open catalog: %w", err)
		}
		defer store.Close()
	}

	sinkOpts := output.Options{
		Dir:            cfg.Output.Dir,
		BaseName:       base,
		IndexExtension: cfg.Output.IndexExtension,
		Lock:           cfg.Output.Lock,
		RunID:          summary.RunID,
		Logger:         runLogger,
	}
	if store != nil {
		if err := store.BeginRun(ctx, catalog.Run{ID: summary.RunID, Input: job.Input, BaseName: base, StartedAt: started}); err != nil {
			return summary, fmt.Errorf("catalog run: %w", err)
		}
		sinkOpts.Recorder = store
	}

	sink, err := output.Open(ctx, sinkOpts)
	if err != nil {
		finishCatalog(ctx, logger, store, summary, err)
		return summary, err
	}
	summary.IndexPath = sink.IndexPath()

	logger.Info("conversion started",
		logging.String("output", summary.IndexPath),
		logging.String("compression", string(stream.Compression)),
	)

	decoder := pgs.NewDecoder(sink, pgs.Options{
		MergeThreshold:         uint64(cfg.Decode.MergeThresholdMS),
		AcquisitionPointClears: cfg.Decode.AcquisitionPointClears,
		MaxCanvasBytes:         cfg.Decode.MaxCanvasBytes,
		Logger:                 runLogger,
	})
	stats, runErr := decoder.Run(ctx, stream)
	summary.Stats = stats
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}
	finishCatalog(ctx, logger, store, summary, runErr)

	if runErr != nil {
		if !errors.Is(runErr, context.Canceled) {
			logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
				logging.Error(runErr),
				logging.Int("frames", stats.Frames),
				logging.String(logging.FieldErrorHint, "frames written before the failure are kept"),
			)
		}
		return summary, runErr
	}

	attrs := []logging.Attr{
		logging.Int("packets", stats.Packets),
		logging.Int("frames", stats.Frames),
		logging.Int("errors", stats.Errors()),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	}
	if stats.Errors() > 0 {
		logging.WarnWithContext(logger, "conversion finished with skipped packets", "conversion_partial",
			append(attrs,
				logging.String(logging.FieldErrorHint, "run with -v to see each skipped packet"),
				logging.String(logging.FieldImpact, "some subtitles may be missing or incomplete"),
			)...)
	} else {
		logger.Info("conversion finished", logging.Args(attrs...)...)
	}
	return summary, nil
}

func finishCatalog(ctx context.Context, logger *slog.Logger, store *catalog.Store, summary Summary, runErr error) {
	if store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s := summary.Stats
	if err := store.FinishRun(ctx, summary.RunID, s.Packets, s.Frames, s.Errors(), runErr); err != nil {
		logging.WarnWithContext(logger, "failed to finalize catalog run", "catalog_finish_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "catalog shows the run as still running"),
		)
	}
}
