package column

import (
	"fmt"
	"sort"

	"github.com/rs/xid"
	"golang.org/x/text/language"
)

// Codec converts between a Go type and one Value variant. Decode fails with
// a TypeMismatchError on any other variant; it never coerces.
type Codec[T any] interface {
	Kind() Kind
	Encode(v T) (Value, error)
	Decode(v Value) (T, error)
}

// Scalar codecs.
var (
	String  Codec[string]        = textCodec{}
	ASCII   Codec[string]        = asciiCodec{}
	Int8    Codec[int8]          = int8Codec{}
	Int16   Codec[int16]         = int16Codec{}
	Int32   Codec[int32]         = int32Codec{}
	Int64   Codec[int64]         = int64Codec{}
	Float32 Codec[float32]       = float32Codec{}
	Float64 Codec[float64]       = float64Codec{}
	Bytes   Codec[[]byte]        = bytesCodec{}
	XID     Codec[xid.ID]        = xidCodec{}
	Lang    Codec[language.Base] = langCodec{}
	Raw     Codec[Value]         = rawCodec{}
)

type textCodec struct{}

func (textCodec) Kind() Kind                     { return KindText }
func (textCodec) Encode(v string) (Value, error) { return Text(v), nil }
func (textCodec) Decode(v Value) (string, error) {
	if t, ok := v.(Text); ok {
		return string(t), nil
	}
	return "", mismatch(KindText, v)
}

type asciiCodec struct{}

func (asciiCodec) Kind() Kind { return KindAscii }

func (asciiCodec) Encode(v string) (Value, error) {
	for i := 0; i < len(v); i++ {
		if v[i] > 0x7f {
			return nil, &EncodingError{Codec: "ascii", Reason: fmt.Sprintf("non-ascii byte 0x%02x at offset %d", v[i], i)}
		}
	}
	return Ascii(v), nil
}

func (asciiCodec) Decode(v Value) (string, error) {
	if a, ok := v.(Ascii); ok {
		return string(a), nil
	}
	return "", mismatch(KindAscii, v)
}

type int8Codec struct{}

func (int8Codec) Kind() Kind                   { return KindTinyInt }
func (int8Codec) Encode(v int8) (Value, error) { return TinyInt(v), nil }
func (int8Codec) Decode(v Value) (int8, error) {
	if n, ok := v.(TinyInt); ok {
		return int8(n), nil
	}
	return 0, mismatch(KindTinyInt, v)
}

type int16Codec struct{}

func (int16Codec) Kind() Kind                    { return KindSmallInt }
func (int16Codec) Encode(v int16) (Value, error) { return SmallInt(v), nil }
func (int16Codec) Decode(v Value) (int16, error) {
	if n, ok := v.(SmallInt); ok {
		return int16(n), nil
	}
	return 0, mismatch(KindSmallInt, v)
}

type int32Codec struct{}

func (int32Codec) Kind() Kind                    { return KindInt }
func (int32Codec) Encode(v int32) (Value, error) { return Int(v), nil }
func (int32Codec) Decode(v Value) (int32, error) {
	if n, ok := v.(Int); ok {
		return int32(n), nil
	}
	return 0, mismatch(KindInt, v)
}

type int64Codec struct{}

func (int64Codec) Kind() Kind                    { return KindBigInt }
func (int64Codec) Encode(v int64) (Value, error) { return BigInt(v), nil }
func (int64Codec) Decode(v Value) (int64, error) {
	if n, ok := v.(BigInt); ok {
		return int64(n), nil
	}
	return 0, mismatch(KindBigInt, v)
}

type float32Codec struct{}

func (float32Codec) Kind() Kind                      { return KindFloat }
func (float32Codec) Encode(v float32) (Value, error) { return Float(v), nil }
func (float32Codec) Decode(v Value) (float32, error) {
	if f, ok := v.(Float); ok {
		return float32(f), nil
	}
	return 0, mismatch(KindFloat, v)
}

type float64Codec struct{}

func (float64Codec) Kind() Kind                      { return KindDouble }
func (float64Codec) Encode(v float64) (Value, error) { return Double(v), nil }
func (float64Codec) Decode(v Value) (float64, error) {
	if f, ok := v.(Double); ok {
		return float64(f), nil
	}
	return 0, mismatch(KindDouble, v)
}

type bytesCodec struct{}

func (bytesCodec) Kind() Kind                     { return KindBlob }
func (bytesCodec) Encode(v []byte) (Value, error) { return Blob(v), nil }
func (bytesCodec) Decode(v Value) ([]byte, error) {
	if b, ok := v.(Blob); ok {
		return []byte(b), nil
	}
	return nil, mismatch(KindBlob, v)
}

// xidCodec stores an xid as its raw 12 bytes.
type xidCodec struct{}

func (xidCodec) Kind() Kind { return KindBlob }

func (xidCodec) Encode(v xid.ID) (Value, error) {
	return Blob(v.Bytes()), nil
}

func (xidCodec) Decode(v Value) (xid.ID, error) {
	b, ok := v.(Blob)
	if !ok {
		return xid.NilID(), mismatch(KindBlob, v)
	}
	id, err := xid.FromBytes(b)
	if err != nil {
		return xid.NilID(), &EncodingError{Codec: "xid", Reason: fmt.Sprintf("want 12 bytes, got %d", len(b))}
	}
	return id, nil
}

// langCodec stores a language as its ISO 639-3 code.
type langCodec struct{}

func (langCodec) Kind() Kind { return KindAscii }

func (langCodec) Encode(v language.Base) (Value, error) {
	return Ascii(v.ISO3()), nil
}

func (langCodec) Decode(v Value) (language.Base, error) {
	a, ok := v.(Ascii)
	if !ok {
		return language.Base{}, mismatch(KindAscii, v)
	}
	b, err := language.ParseBase(string(a))
	if err != nil {
		return language.Base{}, &EncodingError{Codec: "language", Reason: err.Error()}
	}
	return b, nil
}

type rawCodec struct{}

func (rawCodec) Kind() Kind                    { return KindInvalid }
func (rawCodec) Encode(v Value) (Value, error) { return v, nil }
func (rawCodec) Decode(v Value) (Value, error) { return v, nil }

type listCodec[T any] struct{ elem Codec[T] }

// ListOf returns a codec for list<T>.
func ListOf[T any](elem Codec[T]) Codec[[]T] { return listCodec[T]{elem: elem} }

func (listCodec[T]) Kind() Kind { return KindList }

func (c listCodec[T]) Encode(vs []T) (Value, error) {
	out := make(List, 0, len(vs))
	for _, v := range vs {
		e, err := c.elem.Encode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c listCodec[T]) Decode(v Value) ([]T, error) {
	l, ok := v.(List)
	if !ok {
		return nil, mismatch(KindList, v)
	}
	return decodeAll(c.elem, l)
}

type setCodec[T comparable] struct{ elem Codec[T] }

// SetOf returns a codec for set<T>. Encoding drops duplicates and keeps the
// first occurrence of each element.
func SetOf[T comparable](elem Codec[T]) Codec[[]T] { return setCodec[T]{elem: elem} }

func (setCodec[T]) Kind() Kind { return KindSet }

func (c setCodec[T]) Encode(vs []T) (Value, error) {
	seen := make(map[T]struct{}, len(vs))
	out := make(Set, 0, len(vs))
	for _, v := range vs {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		e, err := c.elem.Encode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c setCodec[T]) Decode(v Value) ([]T, error) {
	s, ok := v.(Set)
	if !ok {
		return nil, mismatch(KindSet, v)
	}
	return decodeAll(c.elem, s)
}

type mapCodec[T any] struct{ elem Codec[T] }

// MapOf returns a codec for map<text, T>.
func MapOf[T any](elem Codec[T]) Codec[map[string]T] { return mapCodec[T]{elem: elem} }

func (mapCodec[T]) Kind() Kind { return KindMap }

func (c mapCodec[T]) Encode(m map[string]T) (Value, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(Map, 0, len(m))
	for _, k := range keys {
		e, err := c.elem.Encode(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, Pair{Key: Text(k), Value: e})
	}
	return out, nil
}

func (c mapCodec[T]) Decode(v Value) (map[string]T, error) {
	m, ok := v.(Map)
	if !ok {
		return nil, mismatch(KindMap, v)
	}
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]T, len(m))
	for _, p := range m {
		k, err := String.Decode(p.Key)
		if err != nil {
			return nil, err
		}
		e, err := c.elem.Decode(p.Value)
		if err != nil {
			return nil, err
		}
		out[k] = e
	}
	return out, nil
}

// decodeAll returns nil for an empty collection, matching the store's
// treatment of empty collections as null.
func decodeAll[T any](elem Codec[T], vs []Value) ([]T, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		e, err := elem.Decode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
