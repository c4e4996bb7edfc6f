package fcp

import "github.com/pior/fcp/metadata"

// Key is the state of one key fetch. It is filled by Session.GetFile and
// reused across the hops of a redirect chain.
type Key struct {
	// URI is the last URI requested.
	URI *URI

	// MetadataSize and Size are the lengths announced by DataFound for the
	// metadata and data parts.
	MetadataSize int64
	Size         int64

	// Metadata is the raw metadata, allocated once to MetadataSize.
	Metadata []byte

	// Document is the parsed metadata. It is nil when the key carries no
	// metadata or when it could not be parsed.
	Document *metadata.Metadata

	// MetadataSink and DataSink receive the streamed parts. A nil sink
	// discards its part.
	MetadataSink Sink
	DataSink     Sink
}

func (k *Key) reset() {
	k.MetadataSize = 0
	k.Size = 0
	k.Metadata = nil
	k.Document = nil
}
