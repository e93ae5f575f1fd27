package stream_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/model"
	"github.com/jacentio/folio/store"
	"github.com/jacentio/folio/store/memstore"
	"github.com/jacentio/folio/stream"
)

const prefix = "test_"

func collectionARN(table string) string {
	return "arn:aws:dynamodb:eu-west-1:123456789012:table/" + prefix + table + "/stream/2024-05-01T00:00:00.000"
}

func removed(table string, image map[string]events.DynamoDBAttributeValue) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventID:        xid.New().String(),
		EventName:      "REMOVE",
		EventSourceArn: collectionARN(table),
		Change:         events.DynamoDBStreamRecord{OldImage: image},
	}
}

func setup(t *testing.T) (*store.Store, *memstore.Session) {
	t.Helper()
	sess := memstore.New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := store.New(sess, store.DefaultConfig(),
		store.WithRegistry(model.Registry()),
		store.WithClock(func() time.Time { return now }))
	return s, sess
}

// orphaned leaves child links behind a collection row that is already gone.
func orphaned(t *testing.T, s *store.Store, n int) *model.Collection {
	t.Helper()
	ctx := context.Background()
	gid := xid.New()
	c := model.NewCollection(xid.NewWithTime(s.Now()))
	c.GID = gid
	require.NoError(t, c.Save(ctx, s))

	cids := make([]xid.ID, n)
	for i := range cids {
		cids[i] = xid.New()
	}
	_, err := c.AddChildren(ctx, s, gid, cids, model.ChildCreation)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, c))
	return c
}

func TestHandleRemovedSweepsChildren(t *testing.T) {
	s, sess := setup(t)
	ctx := context.Background()
	c := orphaned(t, s, 3)
	other := orphaned(t, s, 2)

	h := stream.NewHandler(s, prefix, nil)
	err := h.HandleRemoved(ctx, events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		removed("collection", map[string]events.DynamoDBAttributeValue{
			"pk":  events.NewStringAttribute("0000000000004a3d"),
			"sk":  events.NewStringAttribute("ignored"),
			"day": events.NewNumberAttribute("19844"),
			"id":  events.NewBinaryAttribute(c.ID.Bytes()),
		}),
	}})
	require.NoError(t, err)

	left, err := model.ListChildren(ctx, s, c.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 2, sess.Len("collection_children"))

	kept, err := model.ListChildren(ctx, s, other.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 2)
}

func TestHandleRemovedIgnoresOtherEvents(t *testing.T) {
	s, sess := setup(t)
	c := orphaned(t, s, 2)
	image := map[string]events.DynamoDBAttributeValue{"id": events.NewBinaryAttribute(c.ID.Bytes())}

	modify := removed("collection", image)
	modify.EventName = "MODIFY"
	noChildren := removed("bookmark", image)
	foreign := removed("collection", image)
	foreign.EventSourceArn = "arn:aws:dynamodb:eu-west-1:123456789012:table/prod_collection/stream/x"
	noID := removed("collection", map[string]events.DynamoDBAttributeValue{})

	h := stream.NewHandler(s, prefix, nil)
	err := h.HandleRemoved(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{modify, noChildren, foreign, noID},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Len("collection_children"))
}

func TestHandleRemovedRetriesOnListFailure(t *testing.T) {
	s, sess := setup(t)
	c := orphaned(t, s, 1)
	boom := errors.New("unavailable")
	sess.SetFault(func(stmt *store.Statement) error { return boom })

	h := stream.NewHandler(s, prefix, nil)
	err := h.HandleRemoved(context.Background(), events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		removed("collection", map[string]events.DynamoDBAttributeValue{"id": events.NewBinaryAttribute(c.ID.Bytes())}),
	}})
	assert.ErrorIs(t, err, boom)
}

func TestHandleRemovedRejectsMalformedImage(t *testing.T) {
	s, _ := setup(t)
	h := stream.NewHandler(s, prefix, nil)
	err := h.HandleRemoved(context.Background(), events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		removed("collection", map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("not-binary")}),
	}})
	assert.Error(t, err)
}

func TestConvertImage(t *testing.T) {
	id := xid.New()
	reg := model.Registry()
	table, ok := reg.Table("collection")
	require.True(t, ok)

	cols, err := stream.ConvertImage(table, map[string]events.DynamoDBAttributeValue{
		"pk":     events.NewStringAttribute("p"),
		"day":    events.NewNumberAttribute("19844"),
		"id":     events.NewBinaryAttribute(id.Bytes()),
		"status": events.NewNumberAttribute("-1"),
		"cover":  events.NewStringAttribute("c.png"),
		"price":  events.NewNullAttribute(),
	})
	require.NoError(t, err)
	assert.Equal(t, column.Columns{
		"day":    column.Int(19844),
		"id":     column.Blob(id.Bytes()),
		"status": column.TinyInt(-1),
		"cover":  column.Text("c.png"),
	}, cols)

	_, err = stream.ConvertImage(table, map[string]events.DynamoDBAttributeValue{"day": events.NewNumberAttribute("1.5")})
	assert.Error(t, err)
}
