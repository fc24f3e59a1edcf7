package pgs

import (
	"context"
	"fmt"
	"log/slog"

	"sup2pgm/internal/logging"
)

// trace logs a decoded segment at debug level.
func (d *Decoder) trace(seg Segment) {
	if !d.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	msg, attrs := Describe(seg)
	d.logger.Debug(msg, logging.Args(attrs...)...)
}

// Describe summarizes a segment as a log message plus attributes.
func Describe(seg Segment) (string, []logging.Attr) {
	switch s := seg.(type) {
	case *Composition:
		attrs := []logging.Attr{
			logging.Uint64("pts_ms", s.PTSMillis),
			logging.String("state", s.State.String()),
			logging.String("video", fmt.Sprintf("%dx%d", s.VideoWidth, s.VideoHeight)),
			logging.String("fps", fmt.Sprintf("%.3f", FrameRate(s.FrameRateID))),
			logging.String("composition", fmt.Sprintf("0x%04x", s.CompositionID)),
			logging.String("palette", fmt.Sprintf("0x%02x", s.PaletteID)),
			logging.Bool("palette_updated", s.PaletteUpdated),
		}
		for i, obj := range s.Objects {
			attrs = append(attrs, logging.String(fmt.Sprintf("object.%d", i), describeObject(obj)))
		}
		return "PCS", attrs
	case *Palette:
		attrs := []logging.Attr{
			logging.String("palette", fmt.Sprintf("0x%04x", s.ID)),
			logging.Int("colors", len(s.Entries)),
		}
		for _, e := range s.Entries {
			attrs = append(attrs, logging.String(fmt.Sprintf("color.0x%02x", e.Index),
				fmt.Sprintf("#%02x%02x%02x%02x gray=0x%02x", e.Y, e.Cb, e.Cr, e.Alpha, e.Gray)))
		}
		return "PDS", attrs
	case *WindowTable:
		attrs := make([]logging.Attr, 0, len(s.Windows))
		for _, w := range s.Windows {
			attrs = append(attrs, logging.String(fmt.Sprintf("window.0x%02x", w.ID),
				fmt.Sprintf("%dx%d+%d+%d", w.Width, w.Height, w.X, w.Y)))
		}
		return "WDS", attrs
	case *ObjectFragment:
		attrs := []logging.Attr{
			logging.String("object", fmt.Sprintf("0x%04x", s.ObjectID)),
			logging.Int("version", int(s.Version)),
			logging.Int("fragment_bytes", len(s.Data)),
		}
		if s.First {
			attrs = append(attrs,
				logging.String("size", fmt.Sprintf("%dx%d", s.Width, s.Height)),
				logging.Uint64("data_len", uint64(s.DataLen)),
			)
		}
		if s.Last {
			attrs = append(attrs, logging.Bool("last", true))
		}
		return "ODS", attrs
	case EndSegment:
		return "END", nil
	case UnknownSegment:
		return "unknown segment", []logging.Attr{
			logging.String("type", s.Type.String()),
			logging.Int("bytes", s.Len),
		}
	default:
		return "segment", nil
	}
}

func describeObject(obj CompositionObject) string {
	out := fmt.Sprintf("id=0x%04x window=0x%02x offset=%dx%d", obj.ObjectID, obj.WindowID, obj.X, obj.Y)
	if obj.Cropped {
		out += " cropped"
	}
	if obj.Forced {
		out += " forced"
	}
	return out
}
