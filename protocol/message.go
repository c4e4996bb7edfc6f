package protocol

import (
	"strconv"
	"time"
)

// Message is a parsed node-to-client message. Exactly one concrete type is
// returned per ReadMessage call, always freshly zeroed before its fields are
// parsed.
type Message interface {
	Type() MessageType
}

// fieldSetter is implemented by every message parsed with the generic
// Key=Value loop. setField reports whether the key is part of the message's
// field set; an error means the value was malformed.
type fieldSetter interface {
	Message
	setField(key, value string) (bool, error)
}

// NodeHello is the node's answer to ClientHello.
type NodeHello struct {
	Protocol         string
	Node             string
	HighestSeenBuild int
	MaxFileSize      int64
}

func (*NodeHello) Type() MessageType { return TypeNodeHello }

func (m *NodeHello) setField(key, value string) (ok bool, err error) {
	switch key {
	case "Protocol":
		m.Protocol = value
	case "Node":
		m.Node = value
	case "HighestSeenBuild":
		m.HighestSeenBuild, err = parseDec(value)
	case "MaxFileSize":
		m.MaxFileSize, err = parseHex64(value)
	default:
		return false, nil
	}
	return true, err
}

// nodeInfoFields is the field set of NodeInfo. Values are diagnostic and
// kept verbatim.
var nodeInfoFields = map[string]struct{}{
	"Architecture":           {},
	"OperatingSystem":        {},
	"OperatingSystemVersion": {},
	"NodePort":               {},
	"NodeAddress":            {},
	"JavaVendor":             {},
	"JavaName":               {},
	"JavaVersion":            {},
	"MaximumMemory":          {},
	"AllocatedMemory":        {},
	"FreeMemory":             {},
	"EstimatedLoad":          {},
	"DatastoreMax":           {},
	"DatastoreFree":          {},
	"DatastoreUsed":          {},
	"MaxFileSize":            {},
	"MostRecentTimestamp":    {},
	"LeastRecentTimestamp":   {},
	"RoutingTime":            {},
	"AvailableThreads":       {},
	"IsTransient":            {},
	"ActiveJobs":             {},
}

// NodeInfo is the node's answer to ClientInfo.
type NodeInfo struct {
	Properties map[string]string
}

func (*NodeInfo) Type() MessageType { return TypeNodeInfo }

func (m *NodeInfo) setField(key, value string) (bool, error) {
	if _, ok := nodeInfoFields[key]; !ok {
		return false, nil
	}
	if m.Properties == nil {
		m.Properties = make(map[string]string)
	}
	m.Properties[key] = value
	return true, nil
}

// Success acknowledges a completed insert or key generation.
type Success struct {
	URI        string
	PublicKey  string
	PrivateKey string
	Length     int64
}

func (*Success) Type() MessageType { return TypeSuccess }

func (m *Success) setField(key, value string) (ok bool, err error) {
	switch key {
	case "URI":
		m.URI = value
	case "PublicKey":
		m.PublicKey = value
	case "PrivateKey":
		m.PrivateKey = value
	case "Length":
		m.Length, err = parseHex64(value)
	default:
		return false, nil
	}
	return true, err
}

// DataFound announces the sizes of the data that follows as DataChunks.
// DataLength includes MetadataLength.
type DataFound struct {
	DataLength     int64
	MetadataLength int64
	Timeout        time.Duration
}

func (*DataFound) Type() MessageType { return TypeDataFound }

func (m *DataFound) setField(key, value string) (ok bool, err error) {
	switch key {
	case "DataLength":
		m.DataLength, err = parseHex64(value)
	case "MetadataLength":
		m.MetadataLength, err = parseHex64(value)
	case "Timeout":
		m.Timeout, err = parseMillis(value)
	default:
		return false, nil
	}
	return true, err
}

// DataChunk carries raw bytes. Data aliases the Reader's chunk buffer and is
// only valid until the next ReadMessage call.
type DataChunk struct {
	Length int
	Data   []byte
}

func (*DataChunk) Type() MessageType { return TypeDataChunk }

// DataNotFound means the key could not be retrieved within the hop limit.
type DataNotFound struct{}

func (*DataNotFound) Type() MessageType { return TypeDataNotFound }

func (*DataNotFound) setField(string, string) (bool, error) { return false, nil }

// RouteNotFound means the node ran out of peers to route the request to.
type RouteNotFound struct {
	Reason      string
	Unreachable int
	Restarted   int
	Rejected    int
}

func (*RouteNotFound) Type() MessageType { return TypeRouteNotFound }

func (m *RouteNotFound) setField(key, value string) (ok bool, err error) {
	switch key {
	case "Reason":
		m.Reason = value
	case "Unreachable":
		m.Unreachable, err = parseHex(value)
	case "Restarted":
		m.Restarted, err = parseHex(value)
	case "Rejected":
		m.Rejected, err = parseHex(value)
	default:
		return false, nil
	}
	return true, err
}

// URIError means the node rejected the requested URI.
type URIError struct {
	Reason string
}

func (*URIError) Type() MessageType { return TypeURIError }

func (m *URIError) setField(key, value string) (bool, error) {
	return setReason(&m.Reason, key, value)
}

// Restarted means the request was aborted upstream and must be retried on a
// fresh connection. Timeout replaces the client's read timeout.
type Restarted struct {
	Timeout time.Duration
}

func (*Restarted) Type() MessageType { return TypeRestarted }

func (m *Restarted) setField(key, value string) (ok bool, err error) {
	if key != "Timeout" {
		return false, nil
	}
	m.Timeout, err = parseMillis(value)
	return true, err
}

// KeyCollision means an insert hit existing data under the same key.
type KeyCollision struct {
	URI        string
	PublicKey  string
	PrivateKey string
}

func (*KeyCollision) Type() MessageType { return TypeKeyCollision }

func (m *KeyCollision) setField(key, value string) (bool, error) {
	switch key {
	case "URI":
		m.URI = value
	case "PublicKey":
		m.PublicKey = value
	case "PrivateKey":
		m.PrivateKey = value
	default:
		return false, nil
	}
	return true, nil
}

// Pending is a keepalive from the node. Timeout replaces the client's read
// timeout.
type Pending struct {
	URI        string
	PublicKey  string
	PrivateKey string
	Timeout    time.Duration
}

func (*Pending) Type() MessageType { return TypePending }

func (m *Pending) setField(key, value string) (ok bool, err error) {
	switch key {
	case "URI":
		m.URI = value
	case "PublicKey":
		m.PublicKey = value
	case "PrivateKey":
		m.PrivateKey = value
	case "Timeout":
		m.Timeout, err = parseMillis(value)
	default:
		return false, nil
	}
	return true, err
}

// FormatError means the node could not parse the client's command.
type FormatError struct {
	Reason string
}

func (*FormatError) Type() MessageType { return TypeFormatError }

func (m *FormatError) setField(key, value string) (bool, error) {
	return setReason(&m.Reason, key, value)
}

// Failed is a generic node-side failure.
type Failed struct {
	Reason string
}

func (*Failed) Type() MessageType { return TypeFailed }

func (m *Failed) setField(key, value string) (bool, error) {
	return setReason(&m.Reason, key, value)
}

// SegmentHeader describes one FEC segment of a split file.
type SegmentHeader struct {
	FECAlgorithm     string
	FileLength       int64
	Offset           int64
	BlockCount       int
	BlockSize        int
	DataBlockOffset  int
	CheckBlockCount  int
	CheckBlockSize   int
	CheckBlockOffset int
	Segments         int
	SegmentNum       int
	BlocksRequired   int
}

func (*SegmentHeader) Type() MessageType { return TypeSegmentHeader }

func (m *SegmentHeader) setField(key, value string) (ok bool, err error) {
	switch key {
	case "FECAlgorithm":
		m.FECAlgorithm = value
	case "FileLength":
		m.FileLength, err = parseHex64(value)
	case "Offset":
		m.Offset, err = parseHex64(value)
	case "BlockCount":
		m.BlockCount, err = parseHex(value)
	case "BlockSize":
		m.BlockSize, err = parseHex(value)
	case "DataBlockOffset":
		m.DataBlockOffset, err = parseHex(value)
	case "CheckBlockCount":
		m.CheckBlockCount, err = parseHex(value)
	case "CheckBlockSize":
		m.CheckBlockSize, err = parseHex(value)
	case "CheckBlockOffset":
		m.CheckBlockOffset, err = parseHex(value)
	case "Segments":
		m.Segments, err = parseHex(value)
	case "SegmentNum":
		m.SegmentNum, err = parseHex(value)
	case "BlocksRequired":
		m.BlocksRequired, err = parseHex(value)
	default:
		return false, nil
	}
	return true, err
}

// BlocksEncoded reports the check blocks produced for a segment.
type BlocksEncoded struct {
	BlockCount int
	BlockSize  int
}

func (*BlocksEncoded) Type() MessageType { return TypeBlocksEncoded }

func (m *BlocksEncoded) setField(key, value string) (ok bool, err error) {
	switch key {
	case "BlockCount":
		m.BlockCount, err = parseHex(value)
	case "BlockSize":
		m.BlockSize, err = parseHex(value)
	default:
		return false, nil
	}
	return true, err
}

// MadeMetadata reports the length of generated split file metadata.
type MadeMetadata struct {
	DataLength int64
}

func (*MadeMetadata) Type() MessageType { return TypeMadeMetadata }

func (m *MadeMetadata) setField(key, value string) (ok bool, err error) {
	if key != "DataLength" {
		return false, nil
	}
	m.DataLength, err = parseHex64(value)
	return true, err
}

// newFieldMessage returns a zeroed message for every type parsed by the
// generic field loop. DataChunk is handled separately.
func newFieldMessage(t MessageType) fieldSetter {
	switch t {
	case TypeNodeHello:
		return &NodeHello{}
	case TypeNodeInfo:
		return &NodeInfo{}
	case TypeSuccess:
		return &Success{}
	case TypeDataFound:
		return &DataFound{}
	case TypeDataNotFound:
		return &DataNotFound{}
	case TypeRouteNotFound:
		return &RouteNotFound{}
	case TypeURIError:
		return &URIError{}
	case TypeRestarted:
		return &Restarted{}
	case TypeKeyCollision:
		return &KeyCollision{}
	case TypePending:
		return &Pending{}
	case TypeFormatError:
		return &FormatError{}
	case TypeFailed:
		return &Failed{}
	case TypeSegmentHeader:
		return &SegmentHeader{}
	case TypeBlocksEncoded:
		return &BlocksEncoded{}
	case TypeMadeMetadata:
		return &MadeMetadata{}
	}
	return nil
}

func setReason(dst *string, key, value string) (bool, error) {
	if key != "Reason" {
		return false, nil
	}
	*dst = value
	return true, nil
}

func parseHex(s string) (int, error) {
	v, err := strconv.ParseInt(s, 16, 0)
	return int(v), err
}

func parseHex64(s string) (int64, error) {
	return strconv.ParseInt(s, 16, 64)
}

func parseDec(s string) (int, error) {
	return strconv.Atoi(s)
}

// parseMillis parses a hexadecimal millisecond count.
func parseMillis(s string) (time.Duration, error) {
	ms, err := parseHex64(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}
