// Package protocol decides whether clipboard text is addressed to nexusclip.
//
// A payload is in scope when it parses as a single JSON value whose root is an
// object carrying a non-empty string proto_ver that starts with Marker. Parsing
// is permissive: comments and trailing commas from hand-edited or loosely
// generated producers are accepted.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"
)

const (
	// Marker is the required proto_ver prefix.
	Marker = "aitcp-hilr-"
	// LedgerProto identifies the ledger record format itself.
	LedgerProto = "aitcp-hilr"

	// MaxDepth is the deepest object/array nesting accepted.
	MaxDepth = 64

	markerField = "proto_ver"
)

var (
	// ErrMalformed reports text that does not start with a JSON value.
	ErrMalformed = errors.New("payload is not valid JSON")
	// ErrTooDeep reports a value nested deeper than MaxDepth.
	ErrTooDeep = errors.New("payload nesting exceeds depth limit")
	// ErrNotObject reports a JSON root other than an object.
	ErrNotObject = errors.New("payload root is not a JSON object")
	// ErrMissingMarker reports an absent, non-string, or empty proto_ver.
	ErrMissingMarker = errors.New("payload has no proto_ver string")
	// ErrMarkerMismatch reports a proto_ver without the required prefix.
	ErrMarkerMismatch = errors.New("proto_ver does not carry the capture marker")
)

// Envelope is the part of an in-scope payload nexusclip looks at.
type Envelope struct {
	ProtoVer string
}

// InScope reports whether b should be captured. It never fails; every
// rejection is simply false.
func InScope(b []byte) bool {
	_, err := Inspect(b)
	return err == nil
}

// Inspect parses the first JSON value in b and returns its envelope, or the
// reason it is out of scope. Anything after that value is ignored.
func Inspect(b []byte) (Envelope, error) {
	lead, err := leadingValue(b)
	if err != nil {
		return Envelope{}, err
	}
	// Standardize rewrites its input in place.
	standard, err := hujson.Standardize(bytes.Clone(lead))
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var root any
	if err := json.Unmarshal(standard, &root); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return Envelope{}, ErrNotObject
	}

	raw, ok := obj[markerField]
	if !ok {
		return Envelope{}, ErrMissingMarker
	}
	protoVer, ok := raw.(string)
	if !ok || protoVer == "" {
		return Envelope{}, ErrMissingMarker
	}
	if !strings.HasPrefix(protoVer, Marker) {
		return Envelope{ProtoVer: protoVer}, ErrMarkerMismatch
	}
	return Envelope{ProtoVer: protoVer}, nil
}

// leadingValue returns the prefix of b holding its first value, skipping
// strings and comments while matching brackets. Scalar roots and unclosed
// containers are returned whole so the parser reports them.
func leadingValue(b []byte) ([]byte, error) {
	depth := 0
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '"':
			if depth == 0 {
				return b, nil
			}
			for i++; i < len(b) && b[i] != '"'; i++ {
				if b[i] == '\\' {
					i++
				}
			}
		case '/':
			if i+1 >= len(b) {
				return b, nil
			}
			switch b[i+1] {
			case '/':
				for i += 2; i < len(b) && b[i] != '\n'; i++ {
				}
			case '*':
				end := bytes.Index(b[i+2:], []byte("*/"))
				if end < 0 {
					return b, nil
				}
				i += 2 + end + 1
			default:
				return b, nil
			}
		case '{', '[':
			depth++
			if depth > MaxDepth {
				return nil, ErrTooDeep
			}
		case '}', ']':
			depth--
			if depth <= 0 {
				return b[:i+1], nil
			}
		case ' ', '\t', '\r', '\n':
		default:
			if depth == 0 {
				return b, nil
			}
		}
	}
	return b, nil
}
