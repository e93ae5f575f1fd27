package dynamostore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/folio/store"
)

// expr accumulates the placeholder maps shared by the expressions of one
// request.
type expr struct {
	names  map[string]string
	values map[string]types.AttributeValue
	byName map[string]string
}

func newExpr() *expr {
	return &expr{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
		byName: make(map[string]string),
	}
}

func (e *expr) name(attr string) string {
	if ph, ok := e.byName[attr]; ok {
		return ph
	}
	ph := "#a" + strconv.Itoa(len(e.byName))
	e.byName[attr] = ph
	e.names[ph] = attr
	return ph
}

func (e *expr) value(a types.AttributeValue) string {
	ph := ":v" + strconv.Itoa(len(e.values))
	e.values[ph] = a
	return ph
}

var cmpOps = map[store.Cmp]string{
	store.CmpEq: "=",
	store.CmpLt: "<",
	store.CmpLe: "<=",
	store.CmpGt: ">",
	store.CmpGe: ">=",
}

// predicate renders p against the column attribute of the same name.
func (e *expr) predicate(p store.Predicate) (string, error) {
	op, ok := cmpOps[p.Cmp]
	if !ok {
		return "", fmt.Errorf("unsupported comparison %v", p.Cmp)
	}
	a, present, err := toAttr(p.Value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Column, err)
	}
	if !present {
		if p.Cmp != store.CmpEq {
			return "", fmt.Errorf("%s: range over null", p.Column)
		}
		return "attribute_not_exists(" + e.name(p.Column) + ")", nil
	}
	return e.name(p.Column) + " " + op + " " + e.value(a), nil
}

func (e *expr) all(preds []store.Predicate) (string, error) {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		s, err := e.predicate(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " AND "), nil
}

// conditions renders the IF clause of stmt, or "" when there is none.
func (e *expr) conditions(stmt *store.Statement) (string, error) {
	switch {
	case stmt.IfNotExists:
		return "attribute_not_exists(" + e.name(attrPK) + ")", nil
	case stmt.IfExists:
		return "attribute_exists(" + e.name(attrPK) + ")", nil
	}
	return e.all(stmt.Conditions)
}

func (e *expr) projection(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = e.name(c)
	}
	return strings.Join(parts, ", ")
}

// namesOrNil and valuesOrNil keep empty maps out of requests, which
// DynamoDB rejects.
func (e *expr) namesOrNil() map[string]string {
	if len(e.names) == 0 {
		return nil
	}
	return e.names
}

func (e *expr) valuesOrNil() map[string]types.AttributeValue {
	if len(e.values) == 0 {
		return nil
	}
	return e.values
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
