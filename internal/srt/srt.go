// Package srt formats SRT timecodes and writes the cue index that pairs each
// frame image with its display interval.
package srt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxMillis is the last instant a two-digit hour field can express.
const MaxMillis = 100*3_600_000 - 1

// ErrOutOfRange reports a timestamp of 100 hours or more.
var ErrOutOfRange = errors.New("timecode exceeds 99 hours")

// FormatTimecode renders ms as HH:MM:SS,mmm.
func FormatTimecode(ms uint64) (string, error) {
	if ms > MaxMillis {
		return "", fmt.Errorf("%w: %d ms", ErrOutOfRange, ms)
	}
	hours := ms / 3_600_000
	ms %= 3_600_000
	minutes := ms / 60_000
	ms %= 60_000
	secs := ms / 1_000
	millis := ms % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis), nil
}

// ParseTimecode is the inverse of FormatTimecode. A period is accepted in
// place of the comma.
func ParseTimecode(value string) (uint64, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ".", ",")
	clock, frac, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timecode %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timecode %q", value)
	}
	hours, errH := strconv.ParseUint(hms[0], 10, 32)
	minutes, errM := strconv.ParseUint(hms[1], 10, 32)
	seconds, errS := strconv.ParseUint(hms[2], 10, 32)
	millis, errMS := strconv.ParseUint(frac, 10, 32)
	if errH != nil || errM != nil || errS != nil || errMS != nil || minutes > 59 || seconds > 59 || millis > 999 {
		return 0, fmt.Errorf("invalid timecode %q", value)
	}
	return hours*3_600_000 + minutes*60_000 + seconds*1_000 + millis, nil
}

// Cue is one entry of the index.
type Cue struct {
	Number int
	Start  uint64
	End    uint64
	Image  string
}

// Writer appends numbered cues. Numbering starts at 1.
type Writer struct {
	w    *bufio.Writer
	next int
}

// NewWriter wraps w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), next: 1}
}

// WriteCue appends a cue for image shown from start to end (milliseconds).
// Nothing is written when either timestamp is out of range.
func (cw *Writer) WriteCue(start, end uint64, image string) (Cue, error) {
	from, err := FormatTimecode(start)
	if err != nil {
		return Cue{}, err
	}
	to, err := FormatTimecode(end)
	if err != nil {
		return Cue{}, err
	}
	cue := Cue{Number: cw.next, Start: start, End: end, Image: image}
	if _, err := fmt.Fprintf(cw.w, "%d\n%s --> %s\n%s\n\n", cue.Number, from, to, image); err != nil {
		return Cue{}, err
	}
	cw.next++
	return cue, nil
}

// Flush writes buffered cues to the underlying writer.
func (cw *Writer) Flush() error {
	return cw.w.Flush()
}

// ReadCues parses an index produced by Writer.
func ReadCues(r io.Reader) ([]Cue, error) {
	var (
		cues  []Cue
		block []string
	)
	scanner := bufio.NewScanner(r)
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		defer func() { block = block[:0] }()
		if len(block) != 3 {
			return fmt.Errorf("cue %q: expected 3 lines, got %d", strings.Join(block, " | "), len(block))
		}
		number, err := strconv.Atoi(block[0])
		if err != nil {
			return fmt.Errorf("cue number %q: %w", block[0], err)
		}
		startText, endText, ok := strings.Cut(block[1], "-->")
		if !ok {
			return fmt.Errorf("cue %d: missing -->", number)
		}
		start, err := ParseTimecode(startText)
		if err != nil {
			return fmt.Errorf("cue %d: %w", number, err)
		}
		end, err := ParseTimecode(endText)
		if err != nil {
			return fmt.Errorf("cue %d: %w", number, err)
		}
		cues = append(cues, Cue{Number: number, Start: start, End: end, Image: block[2]})
		return nil
	}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cues, nil
}
