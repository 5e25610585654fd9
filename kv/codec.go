package kv

import "encoding/json"

// Codec encodes and decodes a typed value to and from the raw bytes stored
// in the backend map. Implementations must be deterministic for key types:
// two equal keys must encode to the same bytes.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec encodes values as JSON. It is the default choice for rich key
// and value types.
type JSONCodec[T any] struct{}

// Encode marshals value to JSON bytes.
func (JSONCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

// Decode unmarshals JSON bytes into a value of type T.
func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var value T

	err := json.Unmarshal(data, &value)

	return value, err
}

// StringCodec stores strings as their raw bytes, without JSON quoting. Use
// it for string keys so the backend contents stay human-readable.
type StringCodec struct{}

// Encode converts the string to bytes.
func (StringCodec) Encode(value string) ([]byte, error) {
	return []byte(value), nil
}

// Decode converts bytes back to a string.
func (StringCodec) Decode(data []byte) (string, error) {
	return string(data), nil
}

// BytesCodec passes byte slices through, copying so neither side can alias
// the other's buffer.
type BytesCodec struct{}

// Encode copies the value.
func (BytesCodec) Encode(value []byte) ([]byte, error) {
	return append([]byte(nil), value...), nil
}

// Decode copies the data.
func (BytesCodec) Decode(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}
