package cachekey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Variant is the discriminant of a key: its variant name without payload.
type Variant string

// Raw is the untyped identity of a key. Two keys are equal exactly when their
// Raw values are equal.
type Raw struct {
	Variant Variant
	// Payload is the canonical JSON encoding of the key payload.
	Payload string
}

const rawSeparator = "|"

// Discriminant returns the variant name for bulk operations.
func (r Raw) Discriminant() Variant {
	return r.Variant
}

// String renders the persisted form "<variant>|<payload>".
func (r Raw) String() string {
	return string(r.Variant) + rawSeparator + r.Payload
}

// ParseRaw reverses Raw.String.
func ParseRaw(value string) (Raw, error) {
	variant, payload, ok := strings.Cut(value, rawSeparator)
	if !ok || variant == "" {
		return Raw{}, fmt.Errorf("malformed cache key %q", value)
	}
	if !json.Valid([]byte(payload)) {
		return Raw{}, fmt.Errorf("malformed cache key payload %q", payload)
	}
	return Raw{Variant: Variant(variant), Payload: payload}, nil
}

// Key is a cache key whose value type is V.
type Key[V any] struct {
	raw    Raw
	policy Policy
}

func (k Key[V]) Raw() Raw { return k.raw }
func (k Key[V]) Variant() Variant { return k.raw.Variant }
func (k Key[V]) Policy() Policy { return k.policy }
func (k Key[V]) String() string { return k.raw.String() }
func (k Key[V]) IsZero() bool { return k.raw == Raw{} }

// EncodeValue serialises a value for this key.
func (k Key[V]) EncodeValue(value V) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s value: %w", k.raw.Variant, err)
	}
	return data, nil
}

// ErrVariantMismatch is returned when stored data belongs to another variant.
var ErrVariantMismatch = errors.New("cache value variant mismatch")

// DecodeValue parses a value stored under variant. It refuses data written
// for a different variant.
func (k Key[V]) DecodeValue(variant Variant, data []byte) (V, error) {
	var value V
	if variant != k.raw.Variant {
		return value, fmt.Errorf("%w: key %s, stored %s", ErrVariantMismatch, k.raw.Variant, variant)
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("decode %s value: %w", k.raw.Variant, err)
	}
	return value, nil
}
