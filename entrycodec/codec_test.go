package entrycodec

import (
	"bytes"
	"errors"
	"testing"
)

func TestRegistryRoundTrip(t *testing.T) {
	reg := NewRegistry()
	reg.Register(RawType, NewRawCodec)

	if !reg.Has(RawType) {
		t.Fatalf("expected tag %d to be registered", RawType)
	}

	codec, err := reg.New(RawType)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, ok := codec.(*RawCodec)
	if !ok {
		t.Fatalf("expected *RawCodec, got %T", codec)
	}
	raw.Value = []byte("test")

	encoded, err := raw.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0, 0, 0, 4, 't', 'e', 's', 't'}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("Encode = %v, want %v", encoded, want)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.New(42); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestRawCodecReadPayload(t *testing.T) {
	backing := bytes.NewReader([]byte{0xFF, 0, 0, 0, 4, 't', 'e', 's', 't', 0xFF})
	c := &RawCodec{}
	raw, err := c.ReadPayload(backing, 1)
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if err := c.Decode(raw); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(c.Value) != "test" {
		t.Fatalf("Value = %q, want %q", c.Value, "test")
	}
}

func TestRawCodecDecodeLengthMismatch(t *testing.T) {
	c := &RawCodec{}
	if err := c.Decode([]byte{0, 0, 0, 4, 'a'}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}
