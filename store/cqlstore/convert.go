package cqlstore

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/jacentio/folio/column"
)

// toNative converts a column value to the Go value gocql marshals for it.
func toNative(v column.Value) (any, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case column.Text:
		return string(c), nil
	case column.Ascii:
		return string(c), nil
	case column.TinyInt:
		return int8(c), nil
	case column.SmallInt:
		return int16(c), nil
	case column.Int:
		return int32(c), nil
	case column.BigInt:
		return int64(c), nil
	case column.Float:
		return float32(c), nil
	case column.Double:
		return float64(c), nil
	case column.Blob:
		return []byte(c), nil
	case column.List:
		return nativeSlice(c)
	case column.Set:
		return nativeSlice(c)
	case column.Map:
		out := make(map[any]any, len(c))
		for _, p := range c {
			if _, ok := p.Key.(column.Blob); ok {
				return nil, fmt.Errorf("blob map keys are not supported")
			}
			k, err := toNative(p.Key)
			if err != nil {
				return nil, err
			}
			e, err := toNative(p.Value)
			if err != nil {
				return nil, err
			}
			out[k] = e
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

func nativeSlice(vs []column.Value) ([]any, error) {
	out := make([]any, len(vs))
	for i, e := range vs {
		n, err := toNative(e)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// fromNative converts a scanned Go value into a value of the declared
// column type. Empty collections come back as nil.
func fromNative(typ column.Type, v any) (column.Value, error) {
	rv := reflect.ValueOf(v)
	switch typ.Kind {
	case column.KindList, column.KindSet:
		if rv.Kind() != reflect.Slice {
			return nil, fmt.Errorf("want slice for %s, got %T", typ.CQL(), v)
		}
		if rv.Len() == 0 {
			return nil, nil
		}
		out := make([]column.Value, rv.Len())
		for i := range out {
			e, err := scalar(typ.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		if typ.Kind == column.KindSet {
			return column.Set(out), nil
		}
		return column.List(out), nil
	case column.KindMap:
		if rv.Kind() != reflect.Map {
			return nil, fmt.Errorf("want map for %s, got %T", typ.CQL(), v)
		}
		if rv.Len() == 0 {
			return nil, nil
		}
		out := make(column.Map, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := scalar(typ.Key, iter.Key().Interface())
			if err != nil {
				return nil, err
			}
			e, err := scalar(typ.Elem, iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, column.Pair{Key: k, Value: e})
		}
		sort.Slice(out, func(i, j int) bool {
			c, _ := column.Compare(out[i].Key, out[j].Key)
			return c < 0
		})
		return out, nil
	}
	return scalar(typ.Kind, v)
}

func scalar(k column.Kind, v any) (column.Value, error) {
	rv := reflect.ValueOf(v)
	switch k {
	case column.KindText, column.KindAscii:
		if rv.Kind() != reflect.String {
			break
		}
		if k == column.KindAscii {
			return column.Ascii(rv.String()), nil
		}
		return column.Text(rv.String()), nil
	case column.KindTinyInt:
		if n, ok := integer(rv, math.MinInt8, math.MaxInt8); ok {
			return column.TinyInt(n), nil
		}
	case column.KindSmallInt:
		if n, ok := integer(rv, math.MinInt16, math.MaxInt16); ok {
			return column.SmallInt(n), nil
		}
	case column.KindInt:
		if n, ok := integer(rv, math.MinInt32, math.MaxInt32); ok {
			return column.Int(n), nil
		}
	case column.KindBigInt:
		if n, ok := integer(rv, math.MinInt64, math.MaxInt64); ok {
			return column.BigInt(n), nil
		}
	case column.KindFloat:
		if rv.CanFloat() {
			return column.Float(rv.Float()), nil
		}
	case column.KindDouble:
		if rv.CanFloat() {
			return column.Double(rv.Float()), nil
		}
	case column.KindBlob:
		if b, ok := v.([]byte); ok {
			if b == nil {
				return nil, nil
			}
			return column.Blob(b), nil
		}
	}
	return nil, fmt.Errorf("cannot read %T as %s", v, k)
}

func integer(rv reflect.Value, lo, hi int64) (int64, bool) {
	if !rv.IsValid() || !rv.CanInt() {
		return 0, false
	}
	n := rv.Int()
	return n, n >= lo && n <= hi
}
