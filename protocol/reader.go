package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DebugLogger receives diagnostics about skipped messages and fields.
type DebugLogger interface {
	Debugf(format string, v ...any)
}

type discardLogger struct{}

func (discardLogger) Debugf(string, ...any) {}

// Reader reads node messages from a stream.
//
// A Reader owns the chunk buffer used by DataChunk messages. The buffer
// grows to fit the largest chunk seen and is reused afterwards, including
// across Reset calls. A Reader must not be used concurrently.
type Reader struct {
	br     *bufio.Reader
	chunk  []byte
	logger DebugLogger
}

// NewReader returns a Reader over r. logger may be nil.
func NewReader(r io.Reader, logger DebugLogger) *Reader {
	if logger == nil {
		logger = discardLogger{}
	}
	return &Reader{
		br:     bufio.NewReaderSize(r, MaxLineLength),
		logger: logger,
	}
}

// Reset discards buffered input and switches to reading from r.
// The chunk buffer is kept.
func (r *Reader) Reset(rd io.Reader) {
	r.br.Reset(rd)
}

// ChunkCapacity returns the current capacity of the chunk buffer.
func (r *Reader) ChunkCapacity() int {
	return cap(r.chunk)
}

// ReadMessage reads the next message from the stream.
//
// Lines that are not a known message token are logged and skipped.
//
// Errors:
//   - ErrNoResponse: the stream ended cleanly before a message started
//   - *ConnectionError: transport failure, including timeouts (see IsTimeout)
//     and an EOF in the middle of a message (io.ErrUnexpectedEOF)
//   - *ParseError: malformed message, the stream is desynchronized
func (r *Reader) ReadMessage() (Message, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, wrapReadError(err, false)
		}

		t := LookupMessageType(line)
		switch t {
		case TypeUnknown:
			if line != "" {
				r.logger.Debugf("fcp: skipping unknown message %q", line)
			}
			continue
		case TypeDataChunk:
			return r.readDataChunk()
		}

		m := newFieldMessage(t)
		if err := r.readFields(m); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// readFields consumes Key=Value lines into m until EndMessage.
func (r *Reader) readFields(m fieldSetter) error {
	for {
		line, err := r.readLine()
		if err != nil {
			return wrapReadError(err, true)
		}

		if isEndMessage(line) {
			return nil
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			r.logger.Debugf("fcp: %s: unhandled line %q", m.Type(), line)
			continue
		}

		known, err := m.setField(key, value)
		if err != nil {
			return &ParseError{Message: fmt.Sprintf("invalid %s field %s=%q", m.Type(), key, value), Err: err}
		}
		if !known {
			r.logger.Debugf("fcp: %s: unhandled field %q", m.Type(), line)
		}
	}
}

// readDataChunk reads the body of a DataChunk:
//
//	Length=<hex N>\n
//	Data\n
//	<N raw bytes>
func (r *Reader) readDataChunk() (*DataChunk, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, wrapReadError(err, true)
	}

	value, ok := strings.CutPrefix(line, LengthPrefix)
	if !ok {
		return nil, &ParseError{Message: "DataChunk missing Length field, got " + strconv.Quote(line)}
	}

	n, err := strconv.ParseInt(value, 16, 64)
	if err != nil {
		return nil, &ParseError{Message: "invalid DataChunk length", Err: err}
	}
	if n < 0 || n > MaxChunkLength {
		return nil, &ParseError{Message: fmt.Sprintf("DataChunk length %d out of range", n)}
	}

	line, err = r.readLine()
	if err != nil {
		return nil, wrapReadError(err, true)
	}
	if line != DataMarker {
		return nil, &ParseError{Message: "DataChunk missing Data marker, got " + strconv.Quote(line)}
	}

	r.reserve(int(n))
	data := r.chunk[:n]

	// Payload bytes are read verbatim, they may contain newlines.
	if _, err := io.ReadFull(r.br, data); err != nil {
		return nil, wrapReadError(err, true)
	}

	return &DataChunk{Length: int(n), Data: data}, nil
}

// reserve makes sure the chunk buffer can hold n bytes.
func (r *Reader) reserve(n int) {
	if cap(r.chunk) < n {
		r.chunk = make([]byte, n)
	}
}

// readLine returns the next line without its terminator.
// io.EOF is only returned when no byte of the line was read.
func (r *Reader) readLine() (string, error) {
	line, err := r.br.ReadSlice('\n')
	if err != nil {
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			return "", &ParseError{Message: fmt.Sprintf("line exceeds %d bytes", MaxLineLength)}
		case errors.Is(err, io.EOF) && len(line) > 0:
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}

	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return string(line), nil
}

func isEndMessage(line string) bool {
	return len(line) >= len(EndMessage) && strings.EqualFold(line[:len(EndMessage)], EndMessage)
}

// wrapReadError classifies a read failure. A clean EOF between messages is
// ErrNoResponse, inside a message it is an unexpected EOF.
func wrapReadError(err error, inMessage bool) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, io.EOF) {
		if !inMessage {
			return ErrNoResponse
		}
		err = io.ErrUnexpectedEOF
	}
	return &ConnectionError{Op: "read", Err: err}
}
