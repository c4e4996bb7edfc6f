package fcp

import (
	"context"
	"fmt"

	"github.com/pior/fcp/metadata"
)

// Result describes a completed fetch.
type Result struct {
	// URI is the requested URI.
	URI string

	// ResolvedURI is the canonical URI of the key whose data was delivered,
	// after following redirects.
	ResolvedURI string

	// Redirects is the number of redirects followed.
	Redirects int

	// Size and MetadataSize are the lengths of the final key's parts.
	Size         int64
	MetadataSize int64

	// Metadata is the final key's raw metadata, Document its parsed form.
	Metadata []byte
	Document *metadata.Metadata
}

// FollowRedirects fetches uri and keeps fetching while the key's metadata
// names a redirect target in its default document, up to MaxRedirects hops.
// The sinks receive each hop in turn: they are opened again for every key
// that carries the corresponding part. A sink that received a part of an
// earlier hop is emptied when the final key has no such part, so the sinks
// always hold the final key.
func (s *Session) FollowRedirects(ctx context.Context, uri string, key *Key) (*Result, error) {
	target := uri
	redirects := 0
	var staleMetadata, staleData bool

	for {
		if err := s.GetFile(ctx, target, key); err != nil {
			return nil, err
		}

		next, ok := key.Document.RedirectTarget()
		if !ok || s.options.MaxRedirects < 0 {
			break
		}
		if redirects >= s.options.MaxRedirects {
			s.stats.recordError()
			return nil, fmt.Errorf("%w: %s redirects to %s after %d redirects", ErrTooManyRedirects, key.URI, next, redirects)
		}

		s.logger.Infof("fcp: %s redirects to %s", key.URI, next)
		s.stats.recordRedirect()
		staleMetadata = staleMetadata || key.MetadataSize > 0
		staleData = staleData || key.Size > 0
		target = next
		redirects++
	}

	if staleMetadata && key.MetadataSize == 0 {
		if err := emptySink("metadata", key.MetadataSink); err != nil {
			return nil, err
		}
	}
	if staleData && key.Size == 0 {
		if err := emptySink("data", key.DataSink); err != nil {
			return nil, err
		}
	}

	return &Result{
		URI:          uri,
		ResolvedURI:  key.URI.String(),
		Redirects:    redirects,
		Size:         key.Size,
		MetadataSize: key.MetadataSize,
		Metadata:     key.Metadata,
		Document:     key.Document,
	}, nil
}

// emptySink truncates a sink by opening and closing it.
func emptySink(name string, sink Sink) error {
	h := newSinkHandle(name, sink)
	if err := h.open(); err != nil {
		return err
	}
	return h.close()
}
