package pgs

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMarker reports a packet that does not start with the "PG" sentinel.
	ErrBadMarker = errors.New("pgs: bad packet marker")
	// ErrTruncated reports a stream that ended inside a packet header or payload.
	ErrTruncated = errors.New("pgs: truncated packet")
	// ErrMalformed reports a segment body whose length or counts are inconsistent.
	ErrMalformed = errors.New("pgs: malformed segment")
	// ErrUnknownSegment reports a packet with an unrecognized segment type.
	ErrUnknownSegment = errors.New("pgs: unknown segment type")
)

// CorrelationError is returned by Render when an object cannot be placed:
// the composition does not reference it, its window is missing or empty, or the
// object would start outside its window.
type CorrelationError struct {
	ObjectID uint16
	WindowID uint8
	Reason   string
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("pgs: object 0x%04x (window 0x%02x): %s", e.ObjectID, e.WindowID, e.Reason)
}

// IsRecoverable reports whether err only invalidates the current packet or
// object. Anything else (I/O failures, emitter failures) ends the run.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	var corr *CorrelationError
	return errors.Is(err, ErrBadMarker) ||
		errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrUnknownSegment) ||
		errors.As(err, &corr)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
