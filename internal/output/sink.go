// Package output writes decoded subtitle frames to disk: one PGM image per
// frame plus a cue index that lists each image with its display interval.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"sup2pgm/internal/catalog"
	"sup2pgm/internal/logging"
	"sup2pgm/internal/pgm"
	"sup2pgm/internal/pgs"
	"sup2pgm/internal/srt"
)

// ErrLocked is returned when another process is writing the same output base.
var ErrLocked = errors.New("output base is locked by another process")

// FrameRecorder stores frame metadata; *catalog.Store satisfies it.
type FrameRecorder interface {
	RecordFrame(ctx context.Context, f catalog.Frame) error
}

// Options configures a Sink.
type Options struct {
	Dir            string
	BaseName       string
	IndexExtension string
	// Lock takes an exclusive lock on <base>.lock for the sink's lifetime.
	Lock bool
	// Recorder, when set, receives one record per frame.
	Recorder FrameRecorder
	RunID    string
	Logger   *slog.Logger
}

// Sink implements pgs.FrameEmitter by writing <base>NNNNN.pgm files and
// appending a cue for each to <base><ext>.
type Sink struct {
	ctx    context.Context
	opts   Options
	logger *slog.Logger
	lock   *flock.Flock
	index  *os.File
	cues   *srt.Writer
	frames int
}

var _ pgs.FrameEmitter = (*Sink)(nil)

// Open prepares the output directory, takes the lock and truncates the index.
func Open(ctx context.Context, opts Options) (*Sink, error) {
	if opts.BaseName == "" {
		return nil, errors.New("output base name is empty")
	}
	if opts.IndexExtension == "" {
		opts.IndexExtension = ".srtx"
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	s := &Sink{
		ctx:    ctx,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "output"),
	}

	if opts.Lock {
		lockPath := s.path(opts.BaseName + ".lock")
		lock := flock.New(lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
		}
		s.lock = lock
	}

	indexPath := s.path(opts.BaseName + opts.IndexExtension)
	index, err := os.Create(indexPath)
	if err != nil {
		s.unlock()
		return nil, fmt.Errorf("create cue index: %w", err)
	}
	s.index = index
	s.cues = srt.NewWriter(index)
	return s, nil
}

// ImageName returns the file name of frame n.
func ImageName(base string, n int) string {
	return fmt.Sprintf("%s%05d.pgm", base, n)
}

// Emit writes the frame image, then the catalog record, then its cue. Timecodes
// are checked before anything is written; the image is removed again if a
// later step fails.
func (s *Sink) Emit(frame pgs.Frame) error {
	name := ImageName(s.opts.BaseName, frame.Index)
	for _, ms := range []uint64{frame.Start, frame.End} {
		if _, err := srt.FormatTimecode(ms); err != nil {
			return fmt.Errorf("cue for %s: %w", name, err)
		}
	}

	path := s.path(name)
	if err := pgm.WriteFile(path, frame.Width, frame.Height, frame.Pix); err != nil {
		return err
	}
	if s.opts.Recorder != nil {
		rec := catalog.Frame{
			RunID:   s.opts.RunID,
			Index:   frame.Index,
			StartMS: frame.Start,
			EndMS:   frame.End,
			Width:   frame.Width,
			Height:  frame.Height,
			Image:   path,
		}
		if err := s.opts.Recorder.RecordFrame(s.ctx, rec); err != nil {
			s.discard(path)
			return fmt.Errorf("catalog %s: %w", name, err)
		}
	}
	if _, err := s.cues.WriteCue(frame.Start, frame.End, name); err != nil {
		s.discard(path)
		return fmt.Errorf("cue for %s: %w", name, err)
	}
	s.frames++
	s.logger.Debug("frame written",
		logging.String("path", path),
		logging.Uint64("start_ms", frame.Start),
		logging.Uint64("end_ms", frame.End),
	)
	return nil
}

func (s *Sink) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(s.logger, "failed to remove unindexed image", "output_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "image file left without a cue"),
		)
	}
}

// Frames returns how many frames were written.
func (s *Sink) Frames() int {
	return s.frames
}

// IndexPath returns the cue index location.
func (s *Sink) IndexPath() string {
	return s.path(s.opts.BaseName + s.opts.IndexExtension)
}

// Close flushes the cue index and releases the lock.
func (s *Sink) Close() error {
	var errs []error
	if s.cues != nil {
		if err := s.cues.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush cue index: %w", err))
		}
		s.cues = nil
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cue index: %w", err))
		}
		s.index = nil
	}
	if err := s.unlock(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Sink) unlock() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	if err != nil {
		logging.WarnWithContext(s.logger, "failed to release output lock", "output_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "lock file may need manual removal"),
		)
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

func (s *Sink) path(name string) string {
	if s.opts.Dir == "" {
		return name
	}
	return filepath.Join(s.opts.Dir, name)
}
