package fcp

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Sink receives the bytes of one part (metadata or data) of a fetched key.
//
// Open is called before the first byte, and only when the part is not
// empty. Close is called exactly once for every successful Open. When a
// redirect is followed, the sinks are opened again for the next key and
// must discard what they received before. A sink left holding a part of a
// redirecting key is opened and closed once more to empty it.
type Sink interface {
	Open() error
	io.Writer
	Close() error
}

// FileSink writes into a file, truncating it on Open.
type FileSink struct {
	Path string
	Perm os.FileMode // 0644 when zero

	f *os.File
}

var _ Sink = (*FileSink)(nil)

func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

func (s *FileSink) Open() error {
	if s.f != nil {
		return fmt.Errorf("fcp: file sink %s already open", s.Path)
	}
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	s.f = f
	return nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	if s.f == nil {
		return 0, ErrSinkNotOpen
	}
	return s.f.Write(p)
}

func (s *FileSink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// TempFileSink writes into a temporary file created on the first Open.
// Later Opens truncate the same file. The caller owns the file and should
// call Remove when done.
type TempFileSink struct {
	Dir     string // os.TempDir when empty
	Pattern string

	f    *os.File
	name string
}

var _ Sink = (*TempFileSink)(nil)

func (s *TempFileSink) Open() error {
	if s.f != nil {
		return fmt.Errorf("fcp: temp file sink %s already open", s.name)
	}

	if s.name != "" {
		f, err := os.OpenFile(s.name, os.O_WRONLY|os.O_TRUNC, 0)
		if err != nil {
			return err
		}
		s.f = f
		return nil
	}

	pattern := s.Pattern
	if pattern == "" {
		pattern = "fcp-*"
	}
	f, err := os.CreateTemp(s.Dir, pattern)
	if err != nil {
		return err
	}
	s.f = f
	s.name = f.Name()
	return nil
}

func (s *TempFileSink) Write(p []byte) (int, error) {
	if s.f == nil {
		return 0, ErrSinkNotOpen
	}
	return s.f.Write(p)
}

func (s *TempFileSink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Name returns the path of the temporary file, empty before the first Open.
func (s *TempFileSink) Name() string {
	return s.name
}

// Remove closes and deletes the temporary file.
func (s *TempFileSink) Remove() error {
	if err := s.Close(); err != nil {
		return err
	}
	if s.name == "" {
		return nil
	}
	err := os.Remove(s.name)
	s.name = ""
	return err
}

// BufferSink keeps the received bytes in memory.
type BufferSink struct {
	buf    bytes.Buffer
	opened bool
	opens  int
	closes int
}

var _ Sink = (*BufferSink)(nil)

func (s *BufferSink) Open() error {
	s.buf.Reset()
	s.opened = true
	s.opens++
	return nil
}

func (s *BufferSink) Write(p []byte) (int, error) {
	if !s.opened {
		return 0, ErrSinkNotOpen
	}
	return s.buf.Write(p)
}

func (s *BufferSink) Close() error {
	if s.opened {
		s.opened = false
		s.closes++
	}
	return nil
}

// Bytes returns the bytes received since the last Open.
func (s *BufferSink) Bytes() []byte {
	return s.buf.Bytes()
}

func (s *BufferSink) String() string {
	return s.buf.String()
}

// IsOpen reports whether the sink was opened and not closed yet.
func (s *BufferSink) IsOpen() bool {
	return s.opened
}

// Opens returns how many times the sink was opened.
func (s *BufferSink) Opens() int {
	return s.opens
}

// Closes returns how many times an open sink was closed.
func (s *BufferSink) Closes() int {
	return s.closes
}

type discardSink struct{}

func (discardSink) Open() error                 { return nil }
func (discardSink) Write(p []byte) (int, error) { return len(p), nil }
func (discardSink) Close() error                { return nil }

// sinkHandle tracks the lifecycle of a sink during one fetch so that it is
// closed exactly once, and only if it was opened.
type sinkHandle struct {
	name   string
	sink   Sink
	opened bool
	closed bool
}

func newSinkHandle(name string, sink Sink) *sinkHandle {
	if sink == nil {
		sink = discardSink{}
	}
	return &sinkHandle{name: name, sink: sink}
}

func (h *sinkHandle) open() error {
	if err := h.sink.Open(); err != nil {
		return fmt.Errorf("fcp: open %s sink: %w", h.name, err)
	}
	h.opened = true
	return nil
}

func (h *sinkHandle) write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := h.sink.Write(p); err != nil {
		return fmt.Errorf("fcp: write %s sink: %w", h.name, err)
	}
	return nil
}

func (h *sinkHandle) close() error {
	if !h.opened || h.closed {
		return nil
	}
	h.closed = true
	if err := h.sink.Close(); err != nil {
		return fmt.Errorf("fcp: close %s sink: %w", h.name, err)
	}
	return nil
}
