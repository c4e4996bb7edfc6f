package fcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/pior/fcp/metadata"
	"github.com/pior/fcp/protocol"
)

// GetFile fetches a single key into key's sinks. It does not follow
// redirects: the metadata, if any, is left in key for the caller.
//
// The request is re-sent on a fresh connection when the node answers
// Restarted or RouteNotFound, and when reading the answer times out.
// Timeouts consume the Retries budget, Restarted refills it and
// RouteNotFound leaves it alone. Once DataFound is received, any failure
// while streaming is final.
//
// The sinks are opened only for non-empty parts and are always closed.
// The connection is closed on every path.
func (s *Session) GetFile(ctx context.Context, uri string, key *Key) error {
	u, err := ParseURI(uri)
	if err != nil {
		s.stats.recordError()
		return err
	}
	key.URI = u
	key.reset()
	s.timeout = s.options.Timeout

	req := &protocol.ClientGet{
		URI:            u.String(),
		HopsToLive:     s.options.HopsToLive,
		RemoveLocalKey: s.options.RemoveLocalKey,
	}
	s.logger.Debugf("fcp: get %s from %s (htl=%d)", req.URI, s.node.addr, req.HopsToLive)

	conn, found, err := s.request(ctx, req)
	if err != nil {
		s.stats.recordError()
		return contextError(ctx, err)
	}
	defer conn.Close()

	if err := s.receive(conn, found, key); err != nil {
		s.stats.recordError()
		return contextError(ctx, err)
	}
	return nil
}

// request sends req until the node answers DataFound, retrying as
// described on GetFile. The node's circuit breaker counts the whole retry
// sequence as a single request. On success the returned connection is
// positioned on the first DataChunk.
func (s *Session) request(ctx context.Context, req *protocol.ClientGet) (*Connection, *protocol.DataFound, error) {
	if s.node.breaker == nil {
		return s.retry(ctx, req)
	}

	var conn *Connection
	msg, err := s.node.breaker.Execute(func() (protocol.Message, error) {
		c, found, err := s.retry(ctx, req)
		if err != nil {
			return nil, contextError(ctx, err)
		}
		conn = c
		return found, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return conn, msg.(*protocol.DataFound), nil
}

func (s *Session) retry(ctx context.Context, req *protocol.ClientGet) (*Connection, *protocol.DataFound, error) {
	retries := s.options.Retries
	restarts := 0

	for {
		conn, msg, err := s.exchange(ctx, req)
		if err != nil {
			if !isReadTimeout(err) || ctx.Err() != nil {
				return nil, nil, err
			}
			s.stats.recordTimeout()
			retries--
			if retries < 0 {
				return nil, nil, fmt.Errorf("%w: %s: no answer from %s after %d attempts: %w",
					ErrRetriesExhausted, req.URI, s.node.addr, s.options.Retries+1, err)
			}
			s.logger.Infof("fcp: %s: timed out after %s, retrying (%d left)", req.URI, s.timeout, retries)
			continue
		}

		switch m := msg.(type) {
		case *protocol.DataFound:
			s.stats.recordDataFound()
			s.setTimeout(m.Timeout, m.Type())
			return conn, m, nil
		case *protocol.Restarted:
			_ = conn.Close()
			s.stats.recordRestart()
			s.setTimeout(m.Timeout, m.Type())
			retries = s.options.Retries
		case *protocol.RouteNotFound:
			_ = conn.Close()
			s.stats.recordRouteNotFound()
			if m.Reason != "" {
				s.logger.Debugf("fcp: %s: route not found: %s", req.URI, m.Reason)
			}
		default:
			_ = conn.Close()
			return nil, nil, s.fetchError(req.URI, msg)
		}

		restarts++
		if restarts > s.options.MaxRestarts {
			return nil, nil, fmt.Errorf("%w: %s: %d restarts", ErrRetriesExhausted, req.URI, restarts)
		}
		s.logger.Infof("fcp: %s: %s, sending request again", req.URI, msg.Type())
	}
}

// exchange connects, sends req and waits for the node's answer. Pending
// keepalives update the timeout, any other message is not an answer to a
// ClientGet and fails the exchange. The connection is closed when an error
// is returned.
func (s *Session) exchange(ctx context.Context, req *protocol.ClientGet) (*Connection, protocol.Message, error) {
	s.stats.recordFetch()

	conn, err := s.connect(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	for {
		msg, err := conn.Receive(s.timeout)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}

		switch m := msg.(type) {
		case *protocol.DataFound, *protocol.DataNotFound, *protocol.RouteNotFound,
			*protocol.Restarted, *protocol.URIError, *protocol.FormatError, *protocol.Failed:
			return conn, msg, nil
		case *protocol.Pending:
			s.setTimeout(m.Timeout, m.Type())
		default:
			_ = conn.Close()
			return nil, nil, fmt.Errorf("%w %s while waiting for an answer to %s", ErrUnexpectedMessage, msg.Type(), req.URI)
		}
	}
}

func (s *Session) fetchError(uri string, msg protocol.Message) error {
	fe := &FetchError{URI: uri, Type: msg.Type()}
	switch m := msg.(type) {
	case *protocol.DataNotFound:
		s.stats.recordDataNotFound()
	case *protocol.URIError:
		fe.Reason = m.Reason
	case *protocol.FormatError:
		fe.Reason = m.Reason
	case *protocol.Failed:
		fe.Reason = m.Reason
	}
	return fe
}

func isReadTimeout(err error) bool {
	var ce *protocol.ConnectionError
	return errors.As(err, &ce) && ce.Op == "read" && ce.Timeout()
}

// receive streams the DataChunks announced by found. The first
// MetadataLength bytes go to the metadata sink, the rest to the data sink.
// A chunk may straddle the two parts.
func (s *Session) receive(conn *Connection, found *protocol.DataFound, key *Key) (err error) {
	metaLeft := found.MetadataLength
	dataLeft := found.DataLength - found.MetadataLength
	if metaLeft < 0 || dataLeft < 0 {
		return &protocol.ParseError{Message: fmt.Sprintf("invalid DataFound: DataLength=%d MetadataLength=%d",
			found.DataLength, found.MetadataLength)}
	}
	if metaLeft > s.options.MaxMetadataLength {
		return fmt.Errorf("%w: %s: %d bytes, limit is %d",
			ErrMetadataTooLarge, key.URI, metaLeft, s.options.MaxMetadataLength)
	}

	key.MetadataSize = metaLeft
	key.Size = dataLeft
	if metaLeft > 0 {
		key.Metadata = make([]byte, 0, metaLeft)
	}
	s.logger.Infof("fcp: %s: found %d bytes of data, %d bytes of metadata", key.URI, dataLeft, metaLeft)

	metaSink := newSinkHandle("metadata", key.MetadataSink)
	dataSink := newSinkHandle("data", key.DataSink)
	defer func() {
		// a close error only surfaces when the transfer itself succeeded
		if cerr := metaSink.close(); err == nil {
			err = cerr
		}
		if cerr := dataSink.close(); err == nil {
			err = cerr
		}
	}()

	switch {
	case metaLeft > 0:
		if err := metaSink.open(); err != nil {
			return err
		}
	case dataLeft > 0:
		if err := dataSink.open(); err != nil {
			return err
		}
	}

	for metaLeft+dataLeft > 0 {
		chunk, err := s.receiveChunk(conn, key.URI)
		if err != nil {
			return err
		}
		s.stats.recordBytes(len(chunk.Data))
		p := chunk.Data

		if metaLeft > 0 {
			n := min(int64(len(p)), metaLeft)
			if err := metaSink.write(p[:n]); err != nil {
				return err
			}
			key.Metadata = append(key.Metadata, p[:n]...)
			metaLeft -= n
			p = p[n:]

			if metaLeft == 0 {
				if err := metaSink.close(); err != nil {
					return err
				}
				s.parseMetadata(key)
				if dataLeft > 0 {
					if err := dataSink.open(); err != nil {
						return err
					}
				}
			}
		}

		if int64(len(p)) > dataLeft {
			return &protocol.ParseError{Message: fmt.Sprintf("DataChunk overruns DataLength by %d bytes", int64(len(p))-dataLeft)}
		}
		if err := dataSink.write(p); err != nil {
			return err
		}
		dataLeft -= int64(len(p))
	}

	return nil
}

func (s *Session) receiveChunk(conn *Connection, uri *URI) (*protocol.DataChunk, error) {
	msg, err := conn.Receive(s.timeout)
	if err != nil {
		return nil, err
	}
	chunk, ok := msg.(*protocol.DataChunk)
	if !ok {
		return nil, fmt.Errorf("%w %s while receiving %s", ErrUnexpectedMessage, msg.Type(), uri)
	}
	return chunk, nil
}

// parseMetadata parses the received metadata. Unparseable metadata is
// reported and the key is treated as carrying plain data.
func (s *Session) parseMetadata(key *Key) {
	md, err := metadata.Parse(key.Metadata)
	if err != nil {
		s.logger.Warnf("fcp: %s: ignoring invalid metadata: %v", key.URI, err)
		return
	}
	key.Document = md
}
