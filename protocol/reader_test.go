package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/fcp/internal/testutils"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Debugf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func newTestReader(input string) *Reader {
	return NewReader(strings.NewReader(input), nil)
}

func TestReadMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Message
	}{
		{
			name:     "node hello",
			input:    "NodeHello\nProtocol=1.2\nNode=Fred,0.5,1.46,5107\nHighestSeenBuild=5107\nMaxFileSize=5f5e0ff\nEndMessage\n",
			expected: &NodeHello{Protocol: "1.2", Node: "Fred,0.5,1.46,5107", HighestSeenBuild: 5107, MaxFileSize: 0x5f5e0ff},
		},
		{
			name:  "node info",
			input: "NodeInfo\nArchitecture=amd64\nEstimatedLoad=1e\nIsTransient=false\nEndMessage\n",
			expected: &NodeInfo{Properties: map[string]string{
				"Architecture":  "amd64",
				"EstimatedLoad": "1e",
				"IsTransient":   "false",
			}},
		},
		{
			name:     "success",
			input:    "Success\nURI=freenet:CHK@abc\nPublicKey=pub\nPrivateKey=priv\nLength=400\nEndMessage\n",
			expected: &Success{URI: "freenet:CHK@abc", PublicKey: "pub", PrivateKey: "priv", Length: 0x400},
		},
		{
			name:     "data found",
			input:    "DataFound\nDataLength=64\nMetadataLength=32\nTimeout=1388\nEndMessage\n",
			expected: &DataFound{DataLength: 100, MetadataLength: 50, Timeout: 5 * time.Second},
		},
		{
			name:     "data not found",
			input:    "DataNotFound\nEndMessage\n",
			expected: &DataNotFound{},
		},
		{
			name:     "route not found",
			input:    "RouteNotFound\nReason=no route\nUnreachable=a\nRestarted=2\nRejected=1\nEndMessage\n",
			expected: &RouteNotFound{Reason: "no route", Unreachable: 10, Restarted: 2, Rejected: 1},
		},
		{
			name:     "uri error",
			input:    "URIError\nReason=bad key type\nEndMessage\n",
			expected: &URIError{Reason: "bad key type"},
		},
		{
			name:     "restarted",
			input:    "Restarted\nTimeout=1388\nEndMessage\n",
			expected: &Restarted{Timeout: 5000 * time.Millisecond},
		},
		{
			name:     "key collision",
			input:    "KeyCollision\nURI=freenet:SSK@x\nPublicKey=p\nPrivateKey=q\nEndMessage\n",
			expected: &KeyCollision{URI: "freenet:SSK@x", PublicKey: "p", PrivateKey: "q"},
		},
		{
			name:     "pending",
			input:    "Pending\nURI=freenet:CHK@y\nTimeout=3e8\nEndMessage\n",
			expected: &Pending{URI: "freenet:CHK@y", Timeout: time.Second},
		},
		{
			name:     "format error",
			input:    "FormatError\nReason=missing URI\nEndMessage\n",
			expected: &FormatError{Reason: "missing URI"},
		},
		{
			name:     "failed",
			input:    "Failed\nReason=internal error\nEndMessage\n",
			expected: &Failed{Reason: "internal error"},
		},
		{
			name: "segment header",
			input: "SegmentHeader\nFECAlgorithm=OnionFEC_a_1_2\nFileLength=100000\nOffset=0\n" +
				"BlockCount=8\nBlockSize=20000\nDataBlockOffset=0\nCheckBlockCount=4\nCheckBlockSize=20000\n" +
				"CheckBlockOffset=8\nSegments=1\nSegmentNum=0\nBlocksRequired=8\nEndMessage\n",
			expected: &SegmentHeader{
				FECAlgorithm:     "OnionFEC_a_1_2",
				FileLength:       0x100000,
				BlockCount:       8,
				BlockSize:        0x20000,
				CheckBlockCount:  4,
				CheckBlockSize:   0x20000,
				CheckBlockOffset: 8,
				Segments:         1,
				BlocksRequired:   8,
			},
		},
		{
			name:     "blocks encoded",
			input:    "BlocksEncoded\nBlockCount=4\nBlockSize=20000\nEndMessage\n",
			expected: &BlocksEncoded{BlockCount: 4, BlockSize: 0x20000},
		},
		{
			name:     "made metadata",
			input:    "MadeMetadata\nDataLength=1a\nEndMessage\n",
			expected: &MadeMetadata{DataLength: 26},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := newTestReader(tt.input).ReadMessage()
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, msg); diff != "" {
				t.Errorf("ReadMessage() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadMessage_OnlyPresentFieldsAreSet(t *testing.T) {
	r := newTestReader(
		"DataFound\nDataLength=64\nMetadataLength=10\nTimeout=3e8\nEndMessage\n" +
			"DataFound\nDataLength=20\nEndMessage\n",
	)

	first, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, &DataFound{DataLength: 100, MetadataLength: 16, Timeout: time.Second}, first)

	second, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, &DataFound{DataLength: 32}, second, "fields from the previous message must not leak")
}

func TestReadMessage_SkipsUnknownMessages(t *testing.T) {
	logger := &recordingLogger{}
	r := NewReader(strings.NewReader("\nNodeGossip\nPeers=3\nEndMessage\nDataNotFound\nEndMessage\n"), logger)

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, TypeDataNotFound, msg.Type())
	assert.Contains(t, logger.lines, `fcp: skipping unknown message "NodeGossip"`)
}

func TestReadMessage_IgnoresUnknownFields(t *testing.T) {
	logger := &recordingLogger{}
	r := NewReader(strings.NewReader("Restarted\nTimeout=3e8\nColour=blue\nnot a field\nEndMessage\n"), logger)

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, &Restarted{Timeout: time.Second}, msg)
	assert.Len(t, logger.lines, 2)
}

func TestReadMessage_EndMessageMatching(t *testing.T) {
	tests := []string{
		"EndMessage",
		"endmessage",
		"ENDMESSAGE",
		"EndMessage trailing",
		"EndMessage\r",
	}

	for _, terminator := range tests {
		t.Run(terminator, func(t *testing.T) {
			msg, err := newTestReader("Failed\nReason=x\n" + terminator + "\n").ReadMessage()
			require.NoError(t, err)
			assert.Equal(t, &Failed{Reason: "x"}, msg)
		})
	}
}

func TestReadMessage_CRLF(t *testing.T) {
	msg, err := newTestReader("URIError\r\nReason=bad\r\nEndMessage\r\n").ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, &URIError{Reason: "bad"}, msg)
}

func TestReadMessage_InvalidNumber(t *testing.T) {
	_, err := newTestReader("DataFound\nDataLength=zz\nEndMessage\n").ReadMessage()
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "DataLength")
}

func TestReadMessage_DecimalField(t *testing.T) {
	// HighestSeenBuild is the one decimal field
	_, err := newTestReader("NodeHello\nHighestSeenBuild=1a\nEndMessage\n").ReadMessage()

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestReadMessage_NoResponse(t *testing.T) {
	_, err := newTestReader("").ReadMessage()
	require.ErrorIs(t, err, ErrNoResponse)

	// Blank lines alone are not a message either
	_, err = newTestReader("\n\n").ReadMessage()
	require.ErrorIs(t, err, ErrNoResponse)
}

func TestReadMessage_UnexpectedEOF(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"partial token", "DataFou"},
		{"missing EndMessage", "DataFound\nDataLength=10\n"},
		{"partial field", "DataFound\nDataLen"},
		{"chunk without length", "DataChunk\n"},
		{"chunk without data marker", "DataChunk\nLength=4\n"},
		{"short chunk", "DataChunk\nLength=4\nData\nab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestReader(tt.input).ReadMessage()
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNoResponse)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

			var ce *ConnectionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "read", ce.Op)
			assert.False(t, IsTimeout(err))
		})
	}
}

func TestReadMessage_Timeout(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"before message", ""},
		{"inside fields", "DataFound\nDataLength=10\n"},
		{"inside chunk", "DataChunk\nLength=10\nData\nabc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := testutils.NewTimeoutConnectionMock(tt.input)
			_, err := NewReader(conn, nil).ReadMessage()
			require.Error(t, err)
			assert.True(t, IsTimeout(err), "expected timeout, got %v", err)
			assert.True(t, ShouldCloseConnection(err))
		})
	}
}

func TestReadDataChunk(t *testing.T) {
	payload := []byte("line one\nline two\r\nEndMessage\n\x00\xff")
	input := fmt.Sprintf("DataChunk\nLength=%x\nData\n%s", len(payload), payload)

	msg, err := newTestReader(input).ReadMessage()
	require.NoError(t, err)

	chunk, ok := msg.(*DataChunk)
	require.True(t, ok)
	assert.Equal(t, len(payload), chunk.Length)
	assert.Equal(t, payload, chunk.Data)
}

func TestReadDataChunk_Exactness(t *testing.T) {
	for _, n := range []int{0, 1, 2, 10, 255, 4096, 9000} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			payload := make([]byte, n)
			for i := range payload {
				payload[i] = byte(i % 256) // includes '\n' and '\r'
			}

			var input bytes.Buffer
			fmt.Fprintf(&input, "DataChunk\nLength=%x\nData\n", n)
			input.Write(payload)
			input.WriteString("DataNotFound\nEndMessage\n")

			r := NewReader(&input, nil)
			msg, err := r.ReadMessage()
			require.NoError(t, err)
			assert.True(t, bytes.Equal(payload, msg.(*DataChunk).Data))

			// The stream stays in sync after the raw bytes
			next, err := r.ReadMessage()
			require.NoError(t, err)
			assert.Equal(t, TypeDataNotFound, next.Type())
		})
	}
}

func TestReadDataChunk_BufferReuse(t *testing.T) {
	r := newTestReader(
		"DataChunk\nLength=10\nData\n" + strings.Repeat("a", 16) +
			"DataChunk\nLength=4\nData\nbbbb" +
			"DataChunk\nLength=20\nData\n" + strings.Repeat("c", 32),
	)

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, 16, msg.(*DataChunk).Length)
	assert.Equal(t, 16, r.ChunkCapacity())

	msg, err = r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("bbbb"), msg.(*DataChunk).Data)
	assert.Equal(t, 16, r.ChunkCapacity(), "smaller chunk must reuse the buffer")

	msg, err = r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte(strings.Repeat("c", 32)), msg.(*DataChunk).Data)
	assert.Equal(t, 32, r.ChunkCapacity())
}

func TestReadDataChunk_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing length", "DataChunk\nData\nabcd"},
		{"length not hex", "DataChunk\nLength=xyz\nData\n"},
		{"negative length", "DataChunk\nLength=-4\nData\n"},
		{"oversized length", fmt.Sprintf("DataChunk\nLength=%x\nData\n", MaxChunkLength+1)},
		{"missing data marker", "DataChunk\nLength=4\nabcd\n"},
		{"data marker with suffix", "DataChunk\nLength=4\nDataX\nabcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestReader(tt.input).ReadMessage()
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.True(t, ShouldCloseConnection(err))
		})
	}
}

func TestReadMessage_LineTooLong(t *testing.T) {
	input := "Failed\nReason=" + strings.Repeat("x", MaxLineLength) + "\nEndMessage\n"
	_, err := newTestReader(input).ReadMessage()

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestReader_Reset(t *testing.T) {
	r := newTestReader("DataChunk\nLength=8\nData\n12345678")
	_, err := r.ReadMessage()
	require.NoError(t, err)

	r.Reset(strings.NewReader("DataChunk\nLength=2\nData\nok"))
	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), msg.(*DataChunk).Data)
	assert.Equal(t, 8, r.ChunkCapacity())
}

func TestLookupMessageType(t *testing.T) {
	for i, name := range messageTypeNames {
		if MessageType(i) == TypeUnknown {
			continue
		}
		assert.Equal(t, MessageType(i), LookupMessageType(name))
		assert.Equal(t, name, MessageType(i).String())
	}

	assert.Equal(t, TypeUnknown, LookupMessageType("datafound"))
	assert.Equal(t, "Unknown", MessageType(99).String())
}

func TestParseErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &ParseError{Message: "outer", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "fcp: parse error: outer: inner", err.Error())
}
