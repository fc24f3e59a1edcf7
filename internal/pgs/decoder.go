package pgs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"sup2pgm/internal/logging"
)

// DefaultMergeThreshold is the minimum gap, in milliseconds, between two
// compositions for them to be shown as separate subtitle events.
const DefaultMergeThreshold uint64 = 200

// Frame is one finished subtitle image and the interval it is displayed for.
// Start is inclusive and End exclusive, both in milliseconds.
type Frame struct {
	Index  int
	Start  uint64
	End    uint64
	Width  int
	Height int
	Pix    []byte
}

// FrameEmitter receives finished frames. An error from Emit ends the run.
type FrameEmitter interface {
	Emit(Frame) error
}

// EmitterFunc adapts a function to FrameEmitter.
type EmitterFunc func(Frame) error

func (f EmitterFunc) Emit(frame Frame) error { return f(frame) }

// Options tunes a Decoder.
type Options struct {
	// MergeThreshold in milliseconds; compositions closer together than this
	// are merged into one event.
	MergeThreshold uint64
	// AcquisitionPointClears treats acquisition points like epoch starts.
	AcquisitionPointClears bool
	// MaxCanvasBytes caps canvas allocation; 0 derives a cap from system memory.
	MaxCanvasBytes uint64
	Logger         *slog.Logger
}

// Stats counts what a run has seen.
type Stats struct {
	Packets     int
	Frames      int
	BadMarker   int
	Truncated   int
	Malformed   int
	Unknown     int
	Correlation int
}

// Errors sums every recovered error.
func (s Stats) Errors() int {
	return s.BadMarker + s.Truncated + s.Malformed + s.Unknown + s.Correlation
}

// Decoder is the composition state machine. It owns the canvas, the active
// composition, palette and window tables, and the object fragment buffers.
type Decoder struct {
	opts    Options
	emitter FrameEmitter
	logger  *slog.Logger

	canvas  *Canvas
	comp    *Composition
	palette *Palette
	windows *WindowTable
	objects *objectAccumulator

	eventStart uint64
	lastPTS    uint64
	stats      Stats
}

// NewDecoder builds a decoder that hands frames to emitter.
func NewDecoder(emitter FrameEmitter, opts Options) *Decoder {
	return &Decoder{
		opts:    opts,
		emitter: emitter,
		logger:  logging.NewComponentLogger(opts.Logger, "pgs"),
		objects: newObjectAccumulator(),
	}
}

// Stats returns the counters accumulated so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Canvas exposes the current frame buffer; nil before the first composition.
func (d *Decoder) Canvas() *Canvas {
	return d.canvas
}

// Run decodes packets from r until the stream ends, then flushes any frame
// still on the canvas. Malformed packets and unplaceable objects are logged and
// skipped; read and emit failures are returned.
func (d *Decoder) Run(ctx context.Context, r io.Reader) (Stats, error) {
	pr := NewPacketReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return d.stats, err
		}
		pkt, err := pr.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		d.stats.Packets = pr.Count()
		if err != nil {
			if !IsRecoverable(err) {
				return d.stats, fmt.Errorf("read packet %d: %w", pr.Count()-1, err)
			}
			d.noteError(err, pr.Count()-1)
			continue
		}
		if err := d.Apply(pkt); err != nil {
			if !IsRecoverable(err) {
				return d.stats, fmt.Errorf("packet %d: %w", pr.Count()-1, err)
			}
			d.noteError(err, pr.Count()-1)
		}
	}
	if err := d.Flush(); err != nil {
		return d.stats, err
	}
	d.logger.Debug("stream decoded",
		logging.Int("packets", d.stats.Packets),
		logging.Int("frames", d.stats.Frames),
		logging.Int("errors", d.stats.Errors()),
	)
	return d.stats, nil
}

// Apply decodes one packet and updates the state machine. Recoverable errors
// (see IsRecoverable) leave the state unchanged.
func (d *Decoder) Apply(pkt Packet) error {
	if ms := pkt.PTSMillis(); ms > d.lastPTS {
		d.lastPTS = ms
	}
	seg, err := Decode(pkt)
	if err != nil {
		return err
	}
	d.trace(seg)

	switch s := seg.(type) {
	case *Composition:
		return d.applyComposition(s)
	case *Palette:
		d.palette = s
	case *WindowTable:
		d.windows = s
	case *ObjectFragment:
		if _, err := d.objects.add(s); err != nil {
			return err
		}
	case EndSegment:
		return d.applyEnd()
	}
	return nil
}

// Flush emits whatever is still on the canvas. The event ends at the latest
// timestamp seen in the stream.
func (d *Decoder) Flush() error {
	if d.canvas.Empty() {
		return nil
	}
	end := max(d.lastPTS, d.eventStart)
	if err := d.emit(d.eventStart, end); err != nil {
		return err
	}
	d.canvas.Clear()
	return nil
}

func (d *Decoder) applyComposition(c *Composition) error {
	pts := c.PTSMillis
	width, height := int(c.VideoWidth), int(c.VideoHeight)
	clearing := d.clears(c.State)

	var resized *Canvas
	if d.canvas == nil || (clearing && !d.canvas.SameSize(width, height)) {
		canvas, err := NewCanvas(width, height, d.opts.MaxCanvasBytes)
		if err != nil {
			return malformed("composition at %d ms: %v", pts, err)
		}
		resized = canvas
	}

	displaying := !d.canvas.Empty()
	emitted := false
	if displaying && (pts >= d.eventStart+d.opts.MergeThreshold || resized != nil) {
		if err := d.emit(d.eventStart, pts); err != nil {
			return err
		}
		d.eventStart = pts
		emitted = true
	}

	switch {
	case resized != nil:
		if d.canvas != nil {
			d.logger.Debug("canvas resized",
				logging.Int("width", width),
				logging.Int("height", height),
			)
		}
		d.canvas = resized
		d.eventStart = pts
	case clearing:
		if displaying && !emitted {
			d.logger.Debug("composition merged into current event",
				logging.Uint64("pts_ms", pts),
				logging.Uint64("event_start_ms", d.eventStart),
			)
			break
		}
		d.canvas.Clear()
		d.eventStart = pts
	case !displaying:
		d.eventStart = pts
	}

	d.comp = c
	return nil
}

func (d *Decoder) clears(state CompositionState) bool {
	switch state {
	case StateEpochStart:
		return true
	case StateAcquisitionPoint:
		return d.opts.AcquisitionPointClears
	default:
		return false
	}
}

func (d *Decoder) applyEnd() error {
	if d.comp != nil && d.canvas != nil && len(d.comp.Objects) == 0 && d.windows != nil {
		// An erase inside the merge window still ends the event on screen.
		if pts := d.comp.PTSMillis; pts > d.eventStart && !d.canvas.Empty() {
			if err := d.emit(d.eventStart, pts); err != nil {
				return err
			}
			d.eventStart = pts
		}
		for _, w := range d.windows.Windows {
			d.canvas.ClearRegion(int(w.X), int(w.Y), int(w.Width), int(w.Height))
		}
	}

	if d.comp != nil {
		for _, obj := range d.comp.Objects {
			buf, ok := d.objects.get(obj.ObjectID)
			if !ok {
				continue
			}
			if !buf.complete {
				d.logger.Debug("rendering incomplete object",
					logging.Int("object_id", int(obj.ObjectID)),
					logging.String("object", buf.String()),
				)
			}
			if err := Render(d.canvas, buf.data, obj.ObjectID, d.comp, d.windows, d.palette); err != nil {
				d.noteError(err, d.stats.Packets-1)
			}
		}
	}

	d.comp = nil
	d.palette = nil
	d.windows = nil
	d.objects.reset()
	return nil
}

func (d *Decoder) emit(start, end uint64) error {
	frame := Frame{
		Index:  d.stats.Frames,
		Start:  start,
		End:    end,
		Width:  d.canvas.Width,
		Height: d.canvas.Height,
		Pix:    d.canvas.Snapshot(),
	}
	if err := d.emitter.Emit(frame); err != nil {
		return fmt.Errorf("emit frame %d: %w", frame.Index, err)
	}
	d.stats.Frames++
	d.logger.Debug("frame emitted",
		logging.Int("frame", frame.Index),
		logging.Uint64("start_ms", start),
		logging.Uint64("end_ms", end),
	)
	return nil
}

func (d *Decoder) noteError(err error, packet int) {
	var corr *CorrelationError
	attrs := []logging.Attr{logging.Int("packet", packet), logging.Error(err)}
	switch {
	case errors.Is(err, ErrUnknownSegment):
		d.stats.Unknown++
		d.logger.Info("unknown segment skipped", logging.Args(attrs...)...)
		return
	case errors.Is(err, ErrBadMarker):
		d.stats.BadMarker++
		logging.WarnWithContext(d.logger, "packet skipped", "packet_bad_marker", append(attrs,
			logging.String(logging.FieldErrorHint, "input may not be a SUP stream or is misaligned"),
			logging.String(logging.FieldImpact, "packet ignored"),
		)...)
	case errors.Is(err, ErrTruncated):
		d.stats.Truncated++
		logging.WarnWithContext(d.logger, "packet skipped", "packet_truncated", append(attrs,
			logging.String(logging.FieldErrorHint, "input ended mid-packet"),
			logging.String(logging.FieldImpact, "last packet ignored"),
		)...)
	case errors.As(err, &corr):
		d.stats.Correlation++
		logging.WarnWithContext(d.logger, "object not rendered", "object_correlation_failed", append(attrs,
			logging.Int("object_id", int(corr.ObjectID)),
			logging.String(logging.FieldImpact, "object missing from frame"),
		)...)
	default:
		d.stats.Malformed++
		logging.WarnWithContext(d.logger, "segment skipped", "segment_malformed", append(attrs,
			logging.String(logging.FieldImpact, "segment ignored"),
		)...)
	}
}
