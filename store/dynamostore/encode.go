package dynamostore

import (
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

const (
	attrPK = "pk"
	attrSK = "sk"

	// keySep joins key parts. It sorts below every character used by the
	// part encodings, so a shorter text part orders before a longer one.
	keySep = "#"

	// noClustering is the sort key of tables without clustering columns.
	noClustering = "~"
)

// itemKey is the physical primary key of every item.
type itemKey struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
}

func (k itemKey) attrs() (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(k)
}

// keyPart encodes one key value so that byte order matches value order.
func keyPart(v column.Value) (string, error) {
	switch c := v.(type) {
	case column.Text:
		return string(c), nil
	case column.Ascii:
		return string(c), nil
	case column.TinyInt:
		return sortableInt(int64(c)), nil
	case column.SmallInt:
		return sortableInt(int64(c)), nil
	case column.Int:
		return sortableInt(int64(c)), nil
	case column.BigInt:
		return sortableInt(int64(c)), nil
	case column.Float:
		return sortableFloat(float64(c)), nil
	case column.Double:
		return sortableFloat(float64(c)), nil
	case column.Blob:
		return hex.EncodeToString(c), nil
	}
	return "", fmt.Errorf("%s cannot be part of a key", column.KindOf(v))
}

func sortableInt(n int64) string {
	return fmt.Sprintf("%016x", uint64(n)^(1<<63))
}

func sortableFloat(f float64) string {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return fmt.Sprintf("%016x", bits)
}

// joinKey encodes the named columns of vals in order.
func joinKey(t *store.Table, names []string, vals column.Columns) (string, error) {
	parts := make([]string, len(names))
	for i, name := range names {
		v, ok := vals[name]
		if !ok || v == nil {
			return "", fmt.Errorf("dynamostore: %s: missing key column %q", t.Name, name)
		}
		p, err := keyPart(v)
		if err != nil {
			return "", fmt.Errorf("dynamostore: %s.%s: %w", t.Name, name, err)
		}
		parts[i] = p
	}
	return strings.Join(parts, keySep), nil
}

// keyOf derives the physical key of the row holding vals.
func keyOf(t *store.Table, vals column.Columns) (itemKey, error) {
	pk, err := joinKey(t, t.Partition, vals)
	if err != nil {
		return itemKey{}, err
	}
	if len(t.Clustering) == 0 {
		return itemKey{PK: pk, SK: noClustering}, nil
	}
	sk, err := joinKey(t, t.Clustering, vals)
	if err != nil {
		return itemKey{}, err
	}
	return itemKey{PK: pk, SK: sk}, nil
}

// toAttr converts v to an attribute value. Nulls and empty collections have
// no attribute and report false.
func toAttr(v column.Value) (types.AttributeValue, bool, error) {
	if v == nil || column.IsEmpty(v) {
		return nil, false, nil
	}
	switch c := v.(type) {
	case column.Text:
		return &types.AttributeValueMemberS{Value: string(c)}, true, nil
	case column.Ascii:
		return &types.AttributeValueMemberS{Value: string(c)}, true, nil
	case column.TinyInt, column.SmallInt, column.Int, column.BigInt, column.Float, column.Double:
		return &types.AttributeValueMemberN{Value: number(c)}, true, nil
	case column.Blob:
		return &types.AttributeValueMemberB{Value: []byte(c)}, true, nil
	case column.List:
		out := make([]types.AttributeValue, 0, len(c))
		for _, e := range c {
			a, ok, err := toAttr(e)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, fmt.Errorf("null list element")
			}
			out = append(out, a)
		}
		return &types.AttributeValueMemberL{Value: out}, true, nil
	case column.Set:
		return setAttr(c)
	case column.Map:
		out := make(map[string]types.AttributeValue, len(c))
		for _, p := range c {
			k, err := mapKey(p.Key)
			if err != nil {
				return nil, false, err
			}
			a, ok, err := toAttr(p.Value)
			if err != nil {
				return nil, false, err
			}
			if ok {
				out[k] = a
			}
		}
		return &types.AttributeValueMemberM{Value: out}, true, nil
	}
	return nil, false, fmt.Errorf("unsupported value %T", v)
}

func setAttr(s column.Set) (types.AttributeValue, bool, error) {
	switch column.KindOf(s[0]) {
	case column.KindText, column.KindAscii:
		out := make([]string, len(s))
		for i, e := range s {
			str, ok := textOf(e)
			if !ok {
				return nil, false, fmt.Errorf("mixed set elements")
			}
			out[i] = str
		}
		return &types.AttributeValueMemberSS{Value: out}, true, nil
	case column.KindBlob:
		out := make([][]byte, len(s))
		for i, e := range s {
			b, ok := e.(column.Blob)
			if !ok {
				return nil, false, fmt.Errorf("mixed set elements")
			}
			out[i] = b
		}
		return &types.AttributeValueMemberBS{Value: out}, true, nil
	}
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = number(e)
		if out[i] == "" {
			return nil, false, fmt.Errorf("unsupported set element %T", e)
		}
	}
	return &types.AttributeValueMemberNS{Value: out}, true, nil
}

func textOf(v column.Value) (string, bool) {
	switch c := v.(type) {
	case column.Text:
		return string(c), true
	case column.Ascii:
		return string(c), true
	}
	return "", false
}

func number(v column.Value) string {
	switch c := v.(type) {
	case column.TinyInt:
		return strconv.FormatInt(int64(c), 10)
	case column.SmallInt:
		return strconv.FormatInt(int64(c), 10)
	case column.Int:
		return strconv.FormatInt(int64(c), 10)
	case column.BigInt:
		return strconv.FormatInt(int64(c), 10)
	case column.Float:
		return strconv.FormatFloat(float64(c), 'g', -1, 32)
	case column.Double:
		return strconv.FormatFloat(float64(c), 'g', -1, 64)
	}
	return ""
}

func mapKey(v column.Value) (string, error) {
	if s, ok := textOf(v); ok {
		return s, nil
	}
	if n := number(v); n != "" {
		return n, nil
	}
	return "", fmt.Errorf("unsupported map key %T", v)
}

// fromAttr converts an attribute back into a value of the declared type.
func fromAttr(typ column.Type, a types.AttributeValue) (column.Value, error) {
	if _, null := a.(*types.AttributeValueMemberNULL); null || a == nil {
		return nil, nil
	}
	switch typ.Kind {
	case column.KindList:
		l, ok := a.(*types.AttributeValueMemberL)
		if !ok {
			return nil, fmt.Errorf("want L for %s, got %T", typ.CQL(), a)
		}
		if len(l.Value) == 0 {
			return nil, nil
		}
		out := make(column.List, len(l.Value))
		for i, e := range l.Value {
			v, err := fromAttr(column.Scalar(typ.Elem), e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case column.KindSet:
		return fromSet(typ, a)
	case column.KindMap:
		m, ok := a.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("want M for %s, got %T", typ.CQL(), a)
		}
		if len(m.Value) == 0 {
			return nil, nil
		}
		out := make(column.Map, 0, len(m.Value))
		for k, e := range m.Value {
			key, err := parseScalar(typ.Key, k)
			if err != nil {
				return nil, err
			}
			v, err := fromAttr(column.Scalar(typ.Elem), e)
			if err != nil {
				return nil, err
			}
			out = append(out, column.Pair{Key: key, Value: v})
		}
		sortPairs(out)
		return out, nil
	}

	switch c := a.(type) {
	case *types.AttributeValueMemberS:
		if typ.Kind == column.KindText || typ.Kind == column.KindAscii {
			return parseScalar(typ.Kind, c.Value)
		}
	case *types.AttributeValueMemberN:
		return parseScalar(typ.Kind, c.Value)
	case *types.AttributeValueMemberB:
		if typ.Kind == column.KindBlob {
			return column.Blob(c.Value), nil
		}
	}
	return nil, fmt.Errorf("cannot read %T as %s", a, typ.Kind)
}

func fromSet(typ column.Type, a types.AttributeValue) (column.Value, error) {
	var out column.Set
	switch c := a.(type) {
	case *types.AttributeValueMemberSS:
		for _, s := range c.Value {
			v, err := parseScalar(typ.Elem, s)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	case *types.AttributeValueMemberNS:
		for _, s := range c.Value {
			v, err := parseScalar(typ.Elem, s)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	case *types.AttributeValueMemberBS:
		if typ.Elem != column.KindBlob {
			return nil, fmt.Errorf("want %s set, got BS", typ.Elem)
		}
		for _, b := range c.Value {
			out = append(out, column.Blob(b))
		}
	default:
		return nil, fmt.Errorf("want a set for %s, got %T", typ.CQL(), a)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// parseScalar parses the string form used by S and N attributes and map keys.
func parseScalar(k column.Kind, s string) (column.Value, error) {
	switch k {
	case column.KindText:
		return column.Text(s), nil
	case column.KindAscii:
		return column.Ascii(s), nil
	case column.KindTinyInt:
		n, err := strconv.ParseInt(s, 10, 8)
		return column.TinyInt(n), err
	case column.KindSmallInt:
		n, err := strconv.ParseInt(s, 10, 16)
		return column.SmallInt(n), err
	case column.KindInt:
		n, err := strconv.ParseInt(s, 10, 32)
		return column.Int(n), err
	case column.KindBigInt:
		n, err := strconv.ParseInt(s, 10, 64)
		return column.BigInt(n), err
	case column.KindFloat:
		f, err := strconv.ParseFloat(s, 32)
		return column.Float(f), err
	case column.KindDouble:
		f, err := strconv.ParseFloat(s, 64)
		return column.Double(f), err
	}
	return nil, fmt.Errorf("cannot parse %s from a string", k)
}

func sortPairs(m column.Map) {
	sort.Slice(m, func(i, j int) bool {
		c, _ := column.Compare(m[i].Key, m[j].Key)
		return c < 0
	})
}
