// Package column models the native value kinds of a wide-column store and
// converts them to and from Go values.
//
// A [Value] is one of a closed set of variants: [Text], [Ascii], [TinyInt],
// [SmallInt], [Int], [BigInt], [Float], [Double], [Blob], [List], [Set] and
// [Map]. A [Codec] converts a Go type to and from exactly one variant, and
// [Columns] is the name-keyed exchange format between a fetched row and an
// entity struct.
package column

import (
	"bytes"
	"fmt"
)

// Kind identifies a Value variant.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindText
	KindAscii
	KindTinyInt
	KindSmallInt
	KindInt
	KindBigInt
	KindFloat
	KindDouble
	KindBlob
	KindList
	KindSet
	KindMap
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindText:     "text",
	KindAscii:    "ascii",
	KindTinyInt:  "tinyint",
	KindSmallInt: "smallint",
	KindInt:      "int",
	KindBigInt:   "bigint",
	KindFloat:    "float",
	KindDouble:   "double",
	KindBlob:     "blob",
	KindList:     "list",
	KindSet:      "set",
	KindMap:      "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Collection reports whether k is List, Set or Map.
func (k Kind) Collection() bool {
	return k == KindList || k == KindSet || k == KindMap
}

// Value is a single column value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	sealed()
}

type (
	Text     string
	Ascii    string
	TinyInt  int8
	SmallInt int16
	Int      int32
	BigInt   int64
	Float    float32
	Double   float64
	Blob     []byte
	List     []Value
	Set      []Value
	Map      []Pair
)

// Pair is one entry of a Map value.
type Pair struct {
	Key   Value
	Value Value
}

func (Text) Kind() Kind     { return KindText }
func (Ascii) Kind() Kind    { return KindAscii }
func (TinyInt) Kind() Kind  { return KindTinyInt }
func (SmallInt) Kind() Kind { return KindSmallInt }
func (Int) Kind() Kind      { return KindInt }
func (BigInt) Kind() Kind   { return KindBigInt }
func (Float) Kind() Kind    { return KindFloat }
func (Double) Kind() Kind   { return KindDouble }
func (Blob) Kind() Kind     { return KindBlob }
func (List) Kind() Kind     { return KindList }
func (Set) Kind() Kind      { return KindSet }
func (Map) Kind() Kind      { return KindMap }

func (Text) sealed()     {}
func (Ascii) sealed()    {}
func (TinyInt) sealed()  {}
func (SmallInt) sealed() {}
func (Int) sealed()      {}
func (BigInt) sealed()   {}
func (Float) sealed()    {}
func (Double) sealed()   {}
func (Blob) sealed()     {}
func (List) sealed()     {}
func (Set) sealed()      {}
func (Map) sealed()      {}

// KindOf returns the kind of v, or KindInvalid for nil.
func KindOf(v Value) Kind {
	if v == nil {
		return KindInvalid
	}
	return v.Kind()
}

// IsEmpty reports whether v is nil or an empty collection. The store does
// not distinguish an empty collection from null.
func IsEmpty(v Value) bool {
	switch c := v.(type) {
	case nil:
		return true
	case List:
		return len(c) == 0
	case Set:
		return len(c) == 0
	case Map:
		return len(c) == 0
	}
	return false
}

// Equal reports whether a and b hold the same value. Set and Map contents
// are compared without regard to order.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Blob:
		return bytes.Equal(av, b.(Blob))
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Set:
		return sameMembers(av, b.(Set))
	case Map:
		bv := b.(Map)
		if len(av) != len(bv) {
			return false
		}
		for _, p := range av {
			q, ok := lookup(bv, p.Key)
			if !ok || !Equal(p.Value, q) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func sameMembers(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && Equal(x, y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func lookup(m Map, key Value) (Value, bool) {
	for _, p := range m {
		if Equal(p.Key, key) {
			return p.Value, true
		}
	}
	return nil, false
}

// Compare orders two scalar values of the same kind. It returns an error for
// collections and for mismatched kinds.
func Compare(a, b Value) (int, error) {
	if KindOf(a) != KindOf(b) {
		return 0, &TypeMismatchError{Want: KindOf(a), Got: KindOf(b)}
	}
	switch av := a.(type) {
	case Text:
		return cmpOrdered(av, b.(Text)), nil
	case Ascii:
		return cmpOrdered(av, b.(Ascii)), nil
	case TinyInt:
		return cmpOrdered(av, b.(TinyInt)), nil
	case SmallInt:
		return cmpOrdered(av, b.(SmallInt)), nil
	case Int:
		return cmpOrdered(av, b.(Int)), nil
	case BigInt:
		return cmpOrdered(av, b.(BigInt)), nil
	case Float:
		return cmpOrdered(av, b.(Float)), nil
	case Double:
		return cmpOrdered(av, b.(Double)), nil
	case Blob:
		return bytes.Compare(av, b.(Blob)), nil
	}
	return 0, fmt.Errorf("column: %s values are not ordered", KindOf(a))
}

type ordered interface {
	~string | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

func cmpOrdered[T ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch c := v.(type) {
	case Blob:
		if c == nil {
			return Blob(nil)
		}
		return Blob(bytes.Clone(c))
	case List:
		out := make(List, len(c))
		for i, e := range c {
			out[i] = Clone(e)
		}
		return out
	case Set:
		out := make(Set, len(c))
		for i, e := range c {
			out[i] = Clone(e)
		}
		return out
	case Map:
		out := make(Map, len(c))
		for i, p := range c {
			out[i] = Pair{Key: Clone(p.Key), Value: Clone(p.Value)}
		}
		return out
	}
	return v
}

// Type describes the declared type of a column. Elem is the element kind of
// a List or Set, and the value kind of a Map. Key is the key kind of a Map.
type Type struct {
	Kind Kind
	Elem Kind
	Key  Kind
}

// Scalar returns the Type of a non-collection column.
func Scalar(k Kind) Type { return Type{Kind: k} }

// ListType returns a list<elem> Type.
func ListType(elem Kind) Type { return Type{Kind: KindList, Elem: elem} }

// SetType returns a set<elem> Type.
func SetType(elem Kind) Type { return Type{Kind: KindSet, Elem: elem} }

// MapType returns a map<key, elem> Type.
func MapType(key, elem Kind) Type { return Type{Kind: KindMap, Key: key, Elem: elem} }

// CQL returns the CQL spelling of t.
func (t Type) CQL() string {
	switch t.Kind {
	case KindList, KindSet:
		return fmt.Sprintf("%s<%s>", t.Kind, t.Elem)
	case KindMap:
		return fmt.Sprintf("map<%s, %s>", t.Key, t.Elem)
	}
	return t.Kind.String()
}

// Conforms reports whether v is a value of type t. A nil value conforms to
// every type.
func (t Type) Conforms(v Value) bool {
	if v == nil {
		return true
	}
	if v.Kind() != t.Kind {
		return false
	}
	switch c := v.(type) {
	case List:
		return allKind(c, t.Elem)
	case Set:
		return allKind(c, t.Elem)
	case Map:
		for _, p := range c {
			if KindOf(p.Key) != t.Key || KindOf(p.Value) != t.Elem {
				return false
			}
		}
	}
	return true
}

func allKind(vs []Value, k Kind) bool {
	for _, e := range vs {
		if KindOf(e) != k {
			return false
		}
	}
	return true
}
