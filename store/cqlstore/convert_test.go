package cqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

func TestNativeRoundTrip(t *testing.T) {
	tests := map[string]struct {
		typ column.Type
		v   column.Value
	}{
		"text":     {column.Scalar(column.KindText), column.Text("héllo")},
		"ascii":    {column.Scalar(column.KindAscii), column.Ascii("eng")},
		"tinyint":  {column.Scalar(column.KindTinyInt), column.TinyInt(-1)},
		"smallint": {column.Scalar(column.KindSmallInt), column.SmallInt(32767)},
		"int":      {column.Scalar(column.KindInt), column.Int(19000)},
		"bigint":   {column.Scalar(column.KindBigInt), column.BigInt(1700000000000)},
		"float":    {column.Scalar(column.KindFloat), column.Float(0.5)},
		"double":   {column.Scalar(column.KindDouble), column.Double(1.25)},
		"blob":     {column.Scalar(column.KindBlob), column.Blob{1, 2, 3}},
		"list":     {column.ListType(column.KindBlob), column.List{column.Blob{1}, column.Blob{2}}},
		"set":      {column.SetType(column.KindAscii), column.Set{column.Ascii("eng"), column.Ascii("fra")}},
		"map": {column.MapType(column.KindText, column.KindInt), column.Map{
			{Key: column.Text("a"), Value: column.Int(1)},
			{Key: column.Text("b"), Value: column.Int(2)},
		}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			n, err := toNative(tc.v)
			require.NoError(t, err)
			if m, ok := n.(map[any]any); ok {
				// gocql scans maps into typed Go maps.
				typed := map[string]int{}
				for k, v := range m {
					typed[k.(string)] = int(v.(int32))
				}
				n = typed
			}
			got, err := fromNative(tc.typ, n)
			require.NoError(t, err)
			assert.True(t, column.Equal(tc.v, got), "got %v", got)
		})
	}
}

func TestFromNative_GocqlGoTypes(t *testing.T) {
	// gocql scans int columns into int and collections into typed slices.
	v, err := fromNative(column.Scalar(column.KindInt), int(42))
	require.NoError(t, err)
	assert.Equal(t, column.Int(42), v)

	v, err = fromNative(column.SetType(column.KindText), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, column.Set{column.Text("x"), column.Text("y")}, v)

	v, err = fromNative(column.ListType(column.KindText), []string{})
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = fromNative(column.Scalar(column.KindBlob), []byte(nil))
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = fromNative(column.Scalar(column.KindTinyInt), int(300))
	assert.Error(t, err)

	_, err = fromNative(column.Scalar(column.KindText), int64(1))
	assert.Error(t, err)
}

func TestToNative_RejectsBlobMapKeys(t *testing.T) {
	_, err := toNative(column.Map{{Key: column.Blob{1}, Value: column.Int(1)}})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := map[string]struct {
		err     error
		timeout bool
	}{
		"no response":   {gocql.ErrTimeoutNoResponse, true},
		"write timeout": {fmt.Errorf("exec: %w", &gocql.RequestErrWriteTimeout{}), true},
		"read timeout":  {&gocql.RequestErrReadTimeout{}, true},
		"unavailable":   {&gocql.RequestErrUnavailable{}, false},
		"canceled":      {context.Canceled, false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := classify(tc.err)
			assert.Equal(t, tc.timeout, errors.Is(got, store.ErrTimeout))
			assert.ErrorIs(t, got, tc.err)
		})
	}
	assert.NoError(t, classify(nil))
}
