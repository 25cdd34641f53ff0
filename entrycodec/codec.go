// Package entrycodec implements a per-instance mapping from an 8-bit type
// tag to the codec that knows how to encode, self-delimit, and decode
// that type's payload bytes. The framing layer above never inspects a
// payload; it only ever asks a codec to do so.
package entrycodec

import (
	"errors"
	"fmt"
	"io"
)

// ErrUnknownType is returned when a frame's type tag has no registered codec.
var ErrUnknownType = errors.New("entrycodec: unknown type tag")

// Codec is implemented by client-supplied payload types. A Codec value is
// always used for exactly one entry: New returns a fresh, empty instance,
// which is then either filled by the caller and Encode-d for a write, or
// filled by ReadPayload/Decode for a read.
type Codec interface {
	// Type returns this codec's registered tag. It must match the tag the
	// factory that produced this instance was registered under.
	Type() uint8

	// Encode serializes the codec's current value into its self-delimiting
	// wire form. The framing layer writes the returned bytes verbatim as
	// the frame's payload and never interprets them.
	Encode() ([]byte, error)

	// ReadPayload consumes exactly this codec's payload from r starting at
	// offset, without interpreting it, and returns the raw bytes read. The
	// codec alone knows how many bytes its own encoding occupies.
	ReadPayload(r io.ReaderAt, offset int64) ([]byte, error)

	// Decode interprets bytes previously produced by ReadPayload or Encode,
	// populating the codec's value.
	Decode(raw []byte) error
}

// Factory produces a fresh, empty Codec instance for one entry.
type Factory func() Codec

// Registry maps type tags to codec factories. A Registry is populated by
// the client before the WAL is opened; it is passed by reference into the
// coordinator rather than kept as package-level state, so independent WAL
// instances never share or race over registrations.
type Registry struct {
	factories map[uint8]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[uint8]Factory)}
}

// Register associates tag with a factory. Registering the same tag twice
// overwrites the previous factory.
func (r *Registry) Register(tag uint8, factory Factory) {
	r.factories[tag] = factory
}

// New allocates a fresh codec for tag, failing with ErrUnknownType if tag
// was never registered.
func (r *Registry) New(tag uint8) (Codec, error) {
	factory, ok := r.factories[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, tag)
	}
	return factory(), nil
}

// Has reports whether tag has a registered factory.
func (r *Registry) Has(tag uint8) bool {
	_, ok := r.factories[tag]
	return ok
}
