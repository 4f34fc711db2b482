package aokv

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Kind discriminates the value variants.
type Kind uint8

// Supported value variants. The numeric values double as the "t"
// field of the on-disk descriptor.
const (
	KindJSON Kind = iota
	KindArray
	KindBytes
)

// ArrayType identifies the element type of a typed-array value.
type ArrayType uint8

// Recognized typed-array element types.
const (
	Uint8 ArrayType = iota
	Uint8Clamped
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
	DataView
	unknownArrayType
)

var arrayTypeTags = [...]string{"u8", "u8c", "i16", "u16", "i32", "u32", "f32", "f64", "dv"}

func (t ArrayType) isValid() bool { return t < unknownArrayType }

// String returns the on-disk tag of the element type.
func (t ArrayType) String() string {
	if t.isValid() {
		return arrayTypeTags[t]
	}
	return fmt.Sprintf("aokv.ArrayType(%d)", uint8(t))
}

func arrayTypeFromTag(tag string) (ArrayType, bool) {
	for i, s := range arrayTypeTags {
		if s == tag {
			return ArrayType(i), true
		}
	}
	return unknownArrayType, false
}

// --------------------------------------------------------------------

// Value is a tagged variant over the three storable cases: a JSON
// value, a typed numeric array, or an opaque byte buffer. The zero
// Value is JSON null, which doubles as the tombstone.
type Value struct {
	kind Kind
	js   interface{} // KindJSON payload
	at   ArrayType   // KindArray element type
	raw  []byte      // KindArray/KindBytes payload
}

// JSONValue wraps any JSON-representable value. JSONValue(nil) is the
// null value used as a tombstone by Writer.Remove.
func JSONValue(v interface{}) Value {
	return Value{kind: KindJSON, js: v}
}

// ArrayValue wraps a typed numeric array given its element type and
// the little-endian bytes of its accessible window.
func ArrayValue(t ArrayType, data []byte) Value {
	return Value{kind: KindArray, at: t, raw: data}
}

// BytesValue wraps an opaque byte buffer.
func BytesValue(data []byte) Value {
	return Value{kind: KindBytes, raw: data}
}

// Kind returns the variant of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is JSON null, i.e. a tombstone.
func (v Value) IsNull() bool { return v.kind == KindJSON && v.js == nil }

// Interface returns the decoded JSON payload of a KindJSON value and
// nil for the other variants.
func (v Value) Interface() interface{} { return v.js }

// Bytes returns the raw payload of a KindArray or KindBytes value.
func (v Value) Bytes() []byte { return v.raw }

// ArrayType returns the element type of a KindArray value.
func (v Value) ArrayType() ArrayType { return v.at }

// --------------------------------------------------------------------

// descriptor is the small JSON object at the head of every body.
type descriptor struct {
	T int             `json:"t"`
	A string          `json:"a,omitempty"`
	D json.RawMessage `json:"d,omitempty"`
}

// encodeBody serializes a value into a body: u32 descriptor size, the
// UTF-8 JSON descriptor, then the post bytes for the array and bytes
// variants. If compress is set the compressed form is adopted iff it
// is strictly shorter and its probe byte (offset 4) is not '{'.
func encodeBody(dst []byte, v Value, compress CompressFunc) ([]byte, error) {
	desc := descriptor{T: int(v.kind)}
	var post []byte

	switch v.kind {
	case KindJSON:
		d, err := json.Marshal(v.js)
		if err != nil {
			return nil, err
		}
		desc.D = d
	case KindArray:
		if !v.at.isValid() {
			return nil, ErrBadArrayType
		}
		desc.A = v.at.String()
		post = v.raw
	case KindBytes:
		post = v.raw
	default:
		return nil, ErrBadVariant
	}

	dj, err := json.Marshal(&desc)
	if err != nil {
		return nil, err
	}

	mark := len(dst)
	dst = append(dst, 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(dst[mark:], uint32(len(dj)))
	dst = append(dst, dj...)
	dst = append(dst, post...)

	if compress == nil {
		return dst, nil
	}

	body := dst[mark:]
	packed, err := compress(body)
	if err != nil {
		return nil, err
	}
	if len(packed) < len(body) && len(packed) >= 5 && packed[4] != probeByte {
		return append(dst[:mark], packed...), nil
	}
	return dst, nil
}

// decodeBody reverses encodeBody. A configured decompressor is applied
// first when the probe byte says the body is compressed.
func decodeBody(body []byte, decompress DecompressFunc) (Value, error) {
	if decompress != nil && len(body) >= 5 && body[4] != probeByte {
		plain, err := decompress(body)
		if err != nil {
			return Value{}, err
		}
		body = plain
	}

	if len(body) < 4 {
		return Value{}, ErrBadVariant
	}
	descSz := int(binary.LittleEndian.Uint32(body))
	if 4+descSz > len(body) {
		return Value{}, ErrBadVariant
	}

	var desc descriptor
	if err := json.Unmarshal(body[4:4+descSz], &desc); err != nil {
		return Value{}, err
	}
	// the caller may recycle body, so the post must not alias it
	post := append([]byte(nil), body[4+descSz:]...)

	switch desc.T {
	case int(KindJSON):
		var v interface{}
		if len(desc.D) != 0 {
			if err := json.Unmarshal(desc.D, &v); err != nil {
				return Value{}, err
			}
		}
		return JSONValue(v), nil
	case int(KindArray):
		at, ok := arrayTypeFromTag(desc.A)
		if !ok {
			return Value{}, ErrBadArrayType
		}
		return ArrayValue(at, post), nil
	case int(KindBytes):
		return BytesValue(post), nil
	default:
		return Value{}, ErrBadVariant
	}
}
