// Package metadata parses Freenet 0.5 key metadata.
//
// Metadata is a sequence of parts. The first part is always Version, each
// following part is usually a Document. Parts are separated by EndPart and
// the whole metadata is terminated by End:
//
//	Version
//	Revision=1
//	EndPart
//	Document
//	Redirect.Target=freenet:CHK@...
//	End
//
// A Document without a Name is the default document of the key.
package metadata

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Well-known document fields
const (
	KeyName           = "Name"
	KeyRedirectTarget = "Redirect.Target"
	KeyInfoFormat     = "Info.Format"
	KeyInfoDesc       = "Info.Description"
)

// Part headers and terminators
const (
	headerVersion  = "Version"
	headerDocument = "Document"
	endPart        = "EndPart"
	end            = "End"
)

// Metadata is a parsed metadata block.
type Metadata struct {
	Revision  int
	Documents []*Document

	// Trailing holds any bytes following the End line.
	Trailing []byte
}

// Document is one Document part.
type Document struct {
	Name   string
	Fields map[string]string
}

// ParseError reports malformed metadata.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("metadata: line %d: %s", e.Line, e.Message)
}

// Parse parses raw metadata bytes.
func Parse(raw []byte) (*Metadata, error) {
	md := &Metadata{}

	var (
		header  string
		fields  map[string]string
		inPart  bool
		started bool
		lineNo  int
	)

	rest := raw
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		lineNo++

		if !inPart {
			if len(line) == 0 {
				continue
			}
			header = string(line)
			if !started && header != headerVersion {
				return nil, &ParseError{Line: lineNo, Message: "expected Version, got " + strconv.Quote(header)}
			}
			started = true
			inPart = true
			fields = make(map[string]string)
			continue
		}

		switch string(line) {
		case endPart:
			if err := md.addPart(header, fields, lineNo); err != nil {
				return nil, err
			}
			inPart = false
		case end:
			if err := md.addPart(header, fields, lineNo); err != nil {
				return nil, err
			}
			if len(rest) > 0 {
				md.Trailing = rest
			}
			return md, nil
		default:
			key, value, found := strings.Cut(string(line), "=")
			if !found || key == "" {
				return nil, &ParseError{Line: lineNo, Message: "expected Key=Value, got " + strconv.Quote(string(line))}
			}
			fields[key] = value
		}
	}

	if !started {
		return nil, &ParseError{Line: lineNo, Message: "empty metadata"}
	}
	return nil, &ParseError{Line: lineNo, Message: "missing End"}
}

func (md *Metadata) addPart(header string, fields map[string]string, lineNo int) error {
	switch header {
	case headerVersion:
		if v, ok := fields["Revision"]; ok {
			rev, err := strconv.ParseInt(v, 16, 0)
			if err != nil {
				return &ParseError{Line: lineNo, Message: "invalid Revision " + strconv.Quote(v)}
			}
			md.Revision = int(rev)
		}
	case headerDocument:
		md.Documents = append(md.Documents, &Document{
			Name:   fields[KeyName],
			Fields: fields,
		})
	}
	// Other part types are not used by the client and are dropped.
	return nil
}

// FindDocument returns the document with the given name, nil if absent.
// The empty name selects the default document.
func (md *Metadata) FindDocument(name string) *Document {
	if md == nil {
		return nil
	}
	for _, doc := range md.Documents {
		if doc.Name == name {
			return doc
		}
	}
	return nil
}

// RedirectTarget returns the Redirect.Target of the default document.
func (md *Metadata) RedirectTarget() (string, bool) {
	return md.FindDocument("").Lookup(KeyRedirectTarget)
}

// Lookup returns the value of a document field.
func (d *Document) Lookup(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, ok := d.Fields[key]
	return v, ok
}
