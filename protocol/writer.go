package protocol

import (
	"io"
	"strconv"
	"strings"

	"github.com/pior/fcp/internal"
)

// Typical ClientGet is ~150 bytes
var bufferPool = internal.NewBufferPool(256)

// InvalidRequestError is returned when a command cannot be encoded.
// Nothing was written.
//
// Connection handling: connection is still valid.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return "fcp: invalid request: " + e.Message
}

// ShouldCloseConnection returns false - the request was rejected client-side
func (e *InvalidRequestError) ShouldCloseConnection() bool {
	return false
}

// ClientGet requests the data stored under URI.
type ClientGet struct {
	URI            string
	HopsToLive     int
	RemoveLocalKey bool
}

// WriteSessionHeader writes the 4-byte header that opens every FCP session.
func WriteSessionHeader(w io.Writer) error {
	_, err := w.Write(SessionHeader)
	return err
}

// WriteClientGet serializes req to wire format and writes it to w in a
// single Write:
//
//	ClientGet
//	RemoveLocalKey=<true|false>
//	URI=<uri>
//	HopsToLive=<hex>
//	EndMessage
func WriteClientGet(w io.Writer, req *ClientGet) error {
	return writeClientGet(w, req, false)
}

// WriteSession opens an FCP session: the session header followed by req,
// in a single Write. Nothing is written when req is invalid.
func WriteSession(w io.Writer, req *ClientGet) error {
	return writeClientGet(w, req, true)
}

func writeClientGet(w io.Writer, req *ClientGet, header bool) error {
	if err := validateClientGet(req); err != nil {
		return err
	}

	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	if header {
		buf.Write(SessionHeader)
	}
	appendClientGet(buf, req)
	_, err := w.Write(buf.Bytes())
	return err
}

func appendClientGet(w io.StringWriter, req *ClientGet) {
	htl := req.HopsToLive
	if htl == 0 {
		htl = DefaultHopsToLive
	}

	w.WriteString(CmdClientGet + LF)
	w.WriteString("RemoveLocalKey=" + strconv.FormatBool(req.RemoveLocalKey) + LF)
	w.WriteString("URI=" + req.URI + LF)
	w.WriteString("HopsToLive=" + strconv.FormatInt(int64(htl), 16) + LF)
	w.WriteString(EndMessage + LF)
}

func validateClientGet(req *ClientGet) error {
	if req.URI == "" {
		return &InvalidRequestError{Message: "URI is empty"}
	}
	if strings.ContainsAny(req.URI, "\r\n") {
		return &InvalidRequestError{Message: "URI contains a line break"}
	}
	if req.HopsToLive < 0 {
		return &InvalidRequestError{Message: "HopsToLive is negative"}
	}
	return nil
}
