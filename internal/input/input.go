// Package input opens subtitle streams from files or standard input and
// transparently decompresses gzip and zstd wrapped streams.
package input

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/mattn/go-isatty"
)

// StdinName is the path that selects standard input.
const StdinName = "-"

const readBufferSize = 64 << 10

// ErrTerminal is returned when standard input is an interactive terminal.
var ErrTerminal = errors.New("refusing to read a subtitle stream from a terminal; pass -i or pipe a file")

// Compression names the container wrapped around the raw stream.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Stream is an opened input. Read returns the decompressed bytes.
type Stream struct {
	Name        string
	Compression Compression

	r       io.Reader
	closers []func() error
}

func (s *Stream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Close releases decoders and the underlying file in reverse order of creation.
func (s *Stream) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Open opens path, or standard input when path is "-".
func Open(path string) (*Stream, error) {
	switch path {
	case "":
		return nil, errors.New("input path is empty")
	case StdinName:
		if IsTerminal(os.Stdin) {
			return nil, ErrTerminal
		}
		return NewStream("stdin", os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("open input: %s is a directory", path)
	}
	stream, err := NewStream(path, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	stream.closers = append([]func() error{file.Close}, stream.closers...)
	return stream, nil
}

// NewStream sniffs r for a compression header and wraps it accordingly. The
// caller keeps ownership of r.
func NewStream(name string, r io.Reader) (*Stream, error) {
	br := bufio.NewReaderSize(r, readBufferSize)
	magic, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	stream := &Stream{Name: name, Compression: CompressionNone, r: br}
	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream %s: %w", name, err)
		}
		stream.Compression = CompressionGzip
		stream.r = zr
		stream.closers = append(stream.closers, zr.Close)
	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		if err != nil {
			return nil, fmt.Errorf("open zstd stream %s: %w", name, err)
		}
		stream.Compression = CompressionZstd
		stream.r = zr
		stream.closers = append(stream.closers, func() error {
			zr.Close()
			return nil
		})
	}
	return stream, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
