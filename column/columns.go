package column

import (
	"fmt"
	"sort"
)

// Columns maps column names to values. It is built per operation, either
// from a fetched row or from an entity, and discarded once consumed.
// A missing key means the column is null or was not selected.
type Columns map[string]Value

// Get returns the value stored under name.
func (c Columns) Get(name string) (Value, bool) {
	v, ok := c[name]
	return v, ok
}

// Has reports whether name is present.
func (c Columns) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Set stores v under name. A nil v removes the column.
func (c Columns) Set(name string, v Value) {
	if v == nil {
		delete(c, name)
		return
	}
	c[name] = v
}

// Keys returns the column names in lexical order.
func (c Columns) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fill zips a positional row with the field names it was selected with.
// Null entries are skipped rather than stored.
func (c Columns) Fill(row []Value, fields []string) error {
	if len(row) != len(fields) {
		return fmt.Errorf("%w: %d values for %d fields", ErrRowShape, len(row), len(fields))
	}
	for i, name := range fields {
		if row[i] == nil {
			continue
		}
		c[name] = row[i]
	}
	return nil
}

// GetAs decodes the value stored under name.
func GetAs[T any](c Columns, name string, codec Codec[T]) (T, error) {
	v, ok := c[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrMissing, name)
	}
	out, err := codec.Decode(v)
	if err != nil {
		return out, withColumn(err, name)
	}
	return out, nil
}

// DecodeInto decodes name into dst when present and leaves dst untouched
// otherwise.
func DecodeInto[T any](c Columns, name string, codec Codec[T], dst *T) error {
	v, ok := c[name]
	if !ok {
		return nil
	}
	out, err := codec.Decode(v)
	if err != nil {
		return withColumn(err, name)
	}
	*dst = out
	return nil
}

// SetAs encodes v and stores it under name.
func SetAs[T any](c Columns, name string, codec Codec[T], v T) error {
	enc, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("column %q: %w", name, err)
	}
	c[name] = enc
	return nil
}

// AppendToMap merges key=v into the map column name, keeping every other
// entry already present.
func AppendToMap[T any](c Columns, name, key string, codec Codec[T], v T) error {
	enc, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("column %q: %w", name, err)
	}
	var cur Map
	if existing, ok := c[name]; ok {
		m, ok := existing.(Map)
		if !ok {
			return withColumn(mismatch(KindMap, existing), name)
		}
		cur = m
	}
	merged := make(Map, 0, len(cur)+1)
	replaced := false
	for _, p := range cur {
		if Equal(p.Key, Text(key)) {
			merged = append(merged, Pair{Key: p.Key, Value: enc})
			replaced = true
			continue
		}
		merged = append(merged, p)
	}
	if !replaced {
		merged = append(merged, Pair{Key: Text(key), Value: enc})
	}
	c[name] = merged
	return nil
}
