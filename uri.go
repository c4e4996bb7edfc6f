package fcp

import (
	"fmt"
	"strings"
)

// KeyType is the kind of Freenet key named by a URI.
type KeyType string

const (
	KeyCHK KeyType = "CHK" // content hash key
	KeySSK KeyType = "SSK" // signed subspace key
	KeyKSK KeyType = "KSK" // keyword signed key
	KeySVK KeyType = "SVK" // signature verification key
)

const uriScheme = "freenet:"

// URI is a parsed Freenet key URI:
//
//	freenet:CHK@<routing key>,<crypto key>
//	freenet:SSK@<public key>/<document name>
//	freenet:KSK@<keyword>
type URI struct {
	Type KeyType

	// Key is the part following '@' up to the first '/'. For KSK it is the
	// whole keyword.
	Key string

	// DocName is the part after the first '/', SSK and SVK only.
	DocName string
}

// ParseURI parses a Freenet key URI. The "freenet:" scheme is optional and
// the key type is matched case-insensitively.
func ParseURI(raw string) (*URI, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= len(uriScheme) && strings.EqualFold(s[:len(uriScheme)], uriScheme) {
		s = s[len(uriScheme):]
	}

	kind, rest, found := strings.Cut(s, "@")
	if !found {
		return nil, fmt.Errorf("%w %q: missing '@'", ErrInvalidURI, raw)
	}
	if strings.ContainsAny(rest, "\r\n") {
		return nil, fmt.Errorf("%w %q: contains a line break", ErrInvalidURI, raw)
	}

	u := &URI{Type: KeyType(strings.ToUpper(kind))}
	switch u.Type {
	case KeyKSK:
		u.Key = rest
	case KeyCHK:
		u.Key = rest
		// CHK@key,crypto/filename: the filename is a hint for browsers only
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			u.Key, u.DocName = rest[:i], rest[i+1:]
		}
	case KeySSK, KeySVK:
		u.Key, u.DocName, _ = strings.Cut(rest, "/")
	default:
		return nil, fmt.Errorf("%w %q: unknown key type %q", ErrInvalidURI, raw, kind)
	}

	if u.Key == "" {
		return nil, fmt.Errorf("%w %q: empty key", ErrInvalidURI, raw)
	}
	return u, nil
}

// String returns the canonical form, always carrying the freenet: scheme.
func (u *URI) String() string {
	var sb strings.Builder
	sb.Grow(len(uriScheme) + len(u.Type) + 1 + len(u.Key) + 1 + len(u.DocName))
	sb.WriteString(uriScheme)
	sb.WriteString(string(u.Type))
	sb.WriteByte('@')
	sb.WriteString(u.Key)
	if u.DocName != "" {
		sb.WriteByte('/')
		sb.WriteString(u.DocName)
	}
	return sb.String()
}
