package protocol

// Protocol delimiters and markers
const (
	// LF terminates every text line. Nodes never send CRLF, but a trailing CR
	// is tolerated by the reader.
	LF = "\n"

	// EndMessage terminates the field list of every message except DataChunk.
	EndMessage = "EndMessage"

	// DataMarker separates the Length field of a DataChunk from its raw bytes.
	DataMarker = "Data"

	// LengthPrefix starts the first body line of a DataChunk.
	LengthPrefix = "Length="
)

// SessionHeader must be written once at the start of every FCP connection,
// before the first command.
var SessionHeader = []byte{0x00, 0x00, 0x00, 0x02}

// Limits
const (
	// MaxLineLength is the longest text line accepted from a node.
	MaxLineLength = 8192

	// MaxChunkLength bounds the declared length of a single DataChunk.
	// Nodes send chunks of at most a few KiB; anything this large means the
	// stream is desynchronized.
	MaxChunkLength = 16 << 20

	// DefaultHopsToLive is used when a ClientGet does not specify a hop limit.
	DefaultHopsToLive = 10
)

// CmdClientGet requests a key from the node.
const CmdClientGet = "ClientGet"

// MessageType identifies a node-to-client message.
type MessageType int

const (
	TypeUnknown MessageType = iota
	TypeNodeHello
	TypeNodeInfo
	TypeSuccess
	TypeDataFound
	TypeDataChunk
	TypeDataNotFound
	TypeRouteNotFound
	TypeURIError
	TypeRestarted
	TypeKeyCollision
	TypePending
	TypeFormatError
	TypeFailed
	TypeSegmentHeader
	TypeBlocksEncoded
	TypeMadeMetadata
)

var messageTypeNames = [...]string{
	TypeUnknown:       "Unknown",
	TypeNodeHello:     "NodeHello",
	TypeNodeInfo:      "NodeInfo",
	TypeSuccess:       "Success",
	TypeDataFound:     "DataFound",
	TypeDataChunk:     "DataChunk",
	TypeDataNotFound:  "DataNotFound",
	TypeRouteNotFound: "RouteNotFound",
	TypeURIError:      "URIError",
	TypeRestarted:     "Restarted",
	TypeKeyCollision:  "KeyCollision",
	TypePending:       "Pending",
	TypeFormatError:   "FormatError",
	TypeFailed:        "Failed",
	TypeSegmentHeader: "SegmentHeader",
	TypeBlocksEncoded: "BlocksEncoded",
	TypeMadeMetadata:  "MadeMetadata",
}

// messageTypes maps the wire token of each known message to its type.
var messageTypes = func() map[string]MessageType {
	m := make(map[string]MessageType, len(messageTypeNames))
	for t, name := range messageTypeNames {
		if MessageType(t) == TypeUnknown {
			continue
		}
		m[name] = MessageType(t)
	}
	return m
}()

func (t MessageType) String() string {
	if t < 0 || int(t) >= len(messageTypeNames) {
		return messageTypeNames[TypeUnknown]
	}
	return messageTypeNames[t]
}

// LookupMessageType returns the type for a wire token, or TypeUnknown.
func LookupMessageType(token string) MessageType {
	return messageTypes[token]
}
