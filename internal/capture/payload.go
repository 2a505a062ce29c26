package capture

import (
	"errors"
	"strings"

	"nexusclip/internal/contenthash"
)

// MaxPayloadBytes bounds the UTF-8 size of a capturable payload.
const MaxPayloadBytes = 512 * 1024

var (
	// ErrEmptyPayload reports text that is empty after trimming.
	ErrEmptyPayload = errors.New("payload is empty")
	// ErrPayloadTooLarge reports text over MaxPayloadBytes.
	ErrPayloadTooLarge = errors.New("payload exceeds size limit")
)

// Payload is a normalized clipboard payload ready for validation.
type Payload struct {
	Text        string
	Bytes       []byte
	Fingerprint string
}

// NewPayload trims surrounding whitespace from raw and enforces the size bounds.
func NewPayload(raw string) (Payload, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Payload{}, ErrEmptyPayload
	}
	b := []byte(text)
	if len(b) > MaxPayloadBytes {
		return Payload{}, ErrPayloadTooLarge
	}
	return Payload{
		Text:        text,
		Bytes:       b,
		Fingerprint: contenthash.Fingerprint(b),
	}, nil
}

// Len returns the encoded size in bytes.
func (p Payload) Len() int {
	return len(p.Bytes)
}
