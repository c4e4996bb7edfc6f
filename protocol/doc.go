// Package protocol implements the wire format of the Freenet Client
// Protocol (FCP 1.x) as spoken by a Freenet 0.5 node.
//
// The package only serializes commands and parses messages. Connection
// management, retries and redirects live in the parent package.
//
// # Messages
//
// Every node message is a type token line, a list of Key=Value lines and an
// EndMessage line:
//
//	DataFound
//	DataLength=1f4
//	MetadataLength=0
//	EndMessage
//
// DataChunk messages carry raw bytes instead of a field list:
//
//	DataChunk
//	Length=1f4
//	Data
//	<0x1f4 raw bytes>
//
// Numeric fields are hexadecimal, with the exception of
// NodeHello.HighestSeenBuild which is decimal.
//
// # Reading
//
// Reader.ReadMessage returns one Message per call. The concrete type tells
// which message was received:
//
//	r := protocol.NewReader(conn, nil)
//	msg, err := r.ReadMessage()
//	if err != nil {
//	    if protocol.IsTimeout(err) {
//	        // retry on a fresh connection
//	    }
//	    return err
//	}
//	switch m := msg.(type) {
//	case *protocol.DataFound:
//	    // m.DataLength bytes follow as DataChunk messages
//	case *protocol.Restarted:
//	    // reconnect and resend
//	}
//
// Unknown message tokens and unknown fields are skipped so that newer nodes
// remain compatible.
//
// # Writing
//
//	protocol.WriteSession(conn, &protocol.ClientGet{
//	    URI:        "freenet:KSK@gpl.txt",
//	    HopsToLive: 10,
//	})
//
// # Error Handling
//
//   - ErrNoResponse: the node closed the connection without answering
//   - *ConnectionError: I/O failure; IsTimeout tells deadline expiries apart
//   - *ParseError: the stream is desynchronized and must be closed
//   - *InvalidRequestError: the command was rejected before being written
package protocol
