// Package platform holds the boundary between the engine and the host view
// system: the display link that delivers frames, event payload decoding,
// host lifecycle, and the view host that receives property updates.
package platform

import (
	"encoding/json"
	"errors"
)

// EventDecoder turns a raw platform payload into the value handed to event
// handlers.
type EventDecoder interface {
	DecodeEvent(key string, raw []byte) (any, error)
}

// MessageCodec encodes and decodes payloads crossing the platform boundary.
type MessageCodec interface {
	// Encode converts a Go value to bytes for the host.
	Encode(value any) ([]byte, error)

	// Decode converts bytes received from the host to a Go value.
	Decode(data []byte) (any, error)
}

// JsonCodec implements MessageCodec and EventDecoder using JSON.
type JsonCodec struct{}

// Encode serializes the value to JSON bytes.
func (c JsonCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode deserializes JSON bytes to a Go value. Empty input decodes to nil.
func (c JsonCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DecodeEvent implements EventDecoder.
func (c JsonCodec) DecodeEvent(_ string, raw []byte) (any, error) {
	return c.Decode(raw)
}

// DefaultCodec is the codec used when the host supplies none.
var DefaultCodec = JsonCodec{}

// Standard errors for platform operations.
var (
	// ErrDisplayLinkStopped indicates a frame was requested from a display
	// link that is not running.
	ErrDisplayLinkStopped = errors.New("display link not running")

	// ErrViewNotFound indicates the view tag is unknown to the host.
	ErrViewNotFound = errors.New("view not found")

	// ErrPropNotFound indicates the view has no such property.
	ErrPropNotFound = errors.New("view property not found")
)
