// Package stream provides DynamoDB Streams handlers that finish cascade
// deletes the synchronous path left behind.
package stream

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

// Handler sweeps the child-link rows of parent rows removed from a
// DynamoDB-backed store.
type Handler struct {
	store  *store.Store
	prefix string
	logger zerolog.Logger
}

// NewHandler creates a new stream handler. tablePrefix is the prefix the
// store's DynamoDB tables were created with.
func NewHandler(s *store.Store, tablePrefix string, logger *zerolog.Logger) *Handler {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Handler{
		store:  s,
		prefix: tablePrefix,
		logger: l,
	}
}

// HandleRemoved processes DynamoDB stream events and deletes the children of
// every removed parent row. Children are deleted one by one, so a retried
// batch only repeats work that is already idempotent.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleRemoved(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error().
				Str("eventID", record.EventID).
				Err(err).
				Msg("failed to process record")
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "REMOVE" {
		return nil
	}
	name, ok := h.tableName(record.EventSourceArn)
	if !ok {
		return nil
	}
	rels := h.store.Registry().ChildrenOf(name)
	if len(rels) == 0 {
		return nil
	}

	image, err := ConvertImage(rels[0].Parent, record.Change.OldImage)
	if err != nil {
		return fmt.Errorf("%s: old image: %w", name, err)
	}

	for _, rel := range rels {
		parentID, ok := image[rel.ParentColumn]
		if !ok {
			h.logger.Warn().
				Str("table", name).
				Str("column", rel.ParentColumn).
				Msg("removed row has no parent id")
			continue
		}
		n, err := h.store.DeleteChildren(ctx, rel, parentID)
		if err != nil {
			return fmt.Errorf("%s: %w", rel.Child.Name, err)
		}
		h.logger.Info().
			Str("parent", name).
			Str("child", rel.Child.Name).
			Int("deleted", n).
			Msg("swept children")
	}
	return nil
}

// tableName extracts the logical table name from a stream ARN of the form
// arn:aws:dynamodb:region:account:table/<prefix><name>/stream/<label>.
func (h *Handler) tableName(arn string) (string, bool) {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return "", false
	}
	physical, _, _ := strings.Cut(rest, "/")
	if !strings.HasPrefix(physical, h.prefix) {
		return "", false
	}
	return strings.TrimPrefix(physical, h.prefix), true
}

// ConvertImage decodes the scalar columns of t present in a stream image.
// Attributes that are not columns of t, like the physical pk and sk, are
// ignored.
func ConvertImage(t *store.Table, image map[string]events.DynamoDBAttributeValue) (column.Columns, error) {
	out := column.Columns{}
	for name, av := range image {
		typ, ok := t.TypeOf(name)
		if !ok || av.IsNull() {
			continue
		}
		v, err := convertScalar(typ.Kind, av)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if v != nil {
			out[name] = v
		}
	}
	return out, nil
}

// convertScalar returns nil for collection kinds.
func convertScalar(kind column.Kind, av events.DynamoDBAttributeValue) (column.Value, error) {
	switch kind {
	case column.KindText, column.KindAscii:
		if av.DataType() != events.DataTypeString {
			return nil, fmt.Errorf("want a string attribute")
		}
		if kind == column.KindAscii {
			return column.Ascii(av.String()), nil
		}
		return column.Text(av.String()), nil
	case column.KindBlob:
		if av.DataType() != events.DataTypeBinary {
			return nil, fmt.Errorf("want a binary attribute")
		}
		return column.Blob(av.Binary()), nil
	case column.KindTinyInt, column.KindSmallInt, column.KindInt, column.KindBigInt:
		if av.DataType() != events.DataTypeNumber {
			return nil, fmt.Errorf("want a number attribute")
		}
		n, err := strconv.ParseInt(av.Number(), 10, 64)
		if err != nil {
			return nil, err
		}
		switch kind {
		case column.KindTinyInt:
			return column.TinyInt(n), nil
		case column.KindSmallInt:
			return column.SmallInt(n), nil
		case column.KindInt:
			return column.Int(n), nil
		}
		return column.BigInt(n), nil
	case column.KindFloat, column.KindDouble:
		if av.DataType() != events.DataTypeNumber {
			return nil, fmt.Errorf("want a number attribute")
		}
		f, err := strconv.ParseFloat(av.Number(), 64)
		if err != nil {
			return nil, err
		}
		if kind == column.KindFloat {
			return column.Float(f), nil
		}
		return column.Double(f), nil
	}
	return nil, nil
}
