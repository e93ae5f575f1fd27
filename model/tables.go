package model

import (
	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

var (
	blob     = column.Scalar(column.KindBlob)
	text     = column.Scalar(column.KindText)
	ascii    = column.Scalar(column.KindAscii)
	tinyint  = column.Scalar(column.KindTinyInt)
	smallint = column.Scalar(column.KindSmallInt)
	integer  = column.Scalar(column.KindInt)
	bigint   = column.Scalar(column.KindBigInt)
	double   = column.Scalar(column.KindDouble)
	textList = column.ListType(column.KindText)
)

var bookmarks = store.NewTable("bookmark", []string{"uid"}, []string{"id"}, true,
	store.Col("uid", blob),
	store.Col("id", blob),
	store.Col("kind", tinyint),
	store.Col("cid", blob),
	store.Col("gid", blob),
	store.Col("language", ascii),
	store.Col("version", smallint),
	store.Col("updated_at", bigint),
	store.Col("title", text),
	store.Col("labels", textList),
	store.Col("payload", blob),
)

var contents = store.NewTable("content", []string{"id"}, nil, false,
	store.Col("id", blob),
	store.Col("gid", blob),
	store.Col("cid", blob),
	store.Col("status", tinyint),
	store.Col("version", smallint),
	store.Col("language", ascii),
	store.Col("updated_at", bigint),
	store.Col("length", integer),
	store.Col("hash", blob),
	store.Col("content", blob),
)

// messageFields lists the fixed message columns; one blob column per
// supported language follows them in the table.
var messageFields = []string{
	"day", "id", "attach_to", "kind", "created_at", "updated_at",
	"context", "language", "languages", "version", "message",
}

var messages = func() *store.Table {
	cols := []store.ColumnDef{
		store.Col("day", integer),
		store.Col("id", blob),
		store.Col("attach_to", blob),
		store.Col("kind", ascii),
		store.Col("created_at", bigint),
		store.Col("updated_at", bigint),
		store.Col("context", text),
		store.Col("language", ascii),
		store.Col("languages", column.SetType(column.KindAscii)),
		store.Col("version", smallint),
		store.Col("message", blob),
	}
	for _, l := range Languages {
		cols = append(cols, store.Col(l, blob))
	}
	return store.NewTable("message", []string{"day"}, []string{"id"}, false, cols...)
}()

var collections = store.NewTable("collection", []string{"day"}, []string{"id"}, true,
	store.Col("day", integer),
	store.Col("id", blob),
	store.Col("gid", blob),
	store.Col("mid", blob),
	store.Col("status", tinyint),
	store.Col("rating", tinyint),
	store.Col("updated_at", bigint),
	store.Col("cover", text),
	store.Col("price", bigint),
	store.Col("creation_price", bigint),
)

var collectionChildren = store.NewTable("collection_children", []string{"id"}, []string{"cid"}, false,
	store.Col("id", blob),
	store.Col("cid", blob),
	store.Col("kind", tinyint),
	store.Col("ord", double),
)

var creations = store.NewTable("creation", []string{"gid"}, []string{"id"}, true,
	store.Col("gid", blob),
	store.Col("id", blob),
	store.Col("status", tinyint),
	store.Col("rating", tinyint),
	store.Col("version", smallint),
	store.Col("language", ascii),
	store.Col("creator", blob),
	store.Col("created_at", bigint),
	store.Col("updated_at", bigint),
	store.Col("active_languages", column.SetType(column.KindAscii)),
	store.Col("original_url", text),
	store.Col("genre", textList),
	store.Col("title", text),
	store.Col("description", text),
	store.Col("cover", text),
	store.Col("keywords", textList),
	store.Col("labels", textList),
	store.Col("authors", textList),
	store.Col("reviewers", column.ListType(column.KindBlob)),
	store.Col("summary", text),
	store.Col("content", blob),
	store.Col("license", text),
)

var drafts = store.NewTable("publication_draft", []string{"gid", "day"}, []string{"id"}, true,
	store.Col("gid", blob),
	store.Col("day", integer),
	store.Col("id", blob),
	store.Col("cid", blob),
	store.Col("language", ascii),
	store.Col("version", smallint),
	store.Col("status", tinyint),
	store.Col("creator", blob),
	store.Col("created_at", bigint),
	store.Col("updated_at", bigint),
	store.Col("model", ascii),
	store.Col("original_url", text),
	store.Col("genre", textList),
	store.Col("title", text),
	store.Col("description", text),
	store.Col("cover", text),
	store.Col("keywords", textList),
	store.Col("authors", textList),
	store.Col("summary", text),
	store.Col("content", blob),
	store.Col("license", text),
)

var deletedDrafts = drafts.Shadow("deleted_publication_draft")

var publications = store.NewTable("publication", []string{"gid"}, []string{"cid", "language", "version"}, true,
	store.Col("gid", blob),
	store.Col("cid", blob),
	store.Col("language", ascii),
	store.Col("version", smallint),
	store.Col("status", tinyint),
	store.Col("creator", blob),
	store.Col("created_at", bigint),
	store.Col("updated_at", bigint),
	store.Col("model", ascii),
	store.Col("original_url", text),
	store.Col("genre", textList),
	store.Col("title", text),
	store.Col("description", text),
	store.Col("cover", text),
	store.Col("keywords", textList),
	store.Col("authors", textList),
	store.Col("summary", text),
	store.Col("content", blob),
	store.Col("license", text),
)

var deletedPublications = publications.Shadow("deleted_publication")

func subscriptionTable(name string) *store.Table {
	return store.NewTable(name, []string{"uid"}, []string{"cid"}, true,
		store.Col("uid", blob),
		store.Col("cid", blob),
		store.Col("txn", blob),
		store.Col("updated_at", bigint),
		store.Col("expire_at", bigint),
	)
}

var (
	creationSubscriptions   = subscriptionTable("creation_subscription")
	collectionSubscriptions = subscriptionTable("collection_subscription")
)

// CollectionChildrenOf links a collection to its child-link rows.
var CollectionChildrenOf = store.Relationship{
	Parent:    collections,
	Child:     collectionChildren,
	ParentKey: "id",
}

// Registry returns a registry holding every table of the model, shadow
// tables included, and the collection cascade.
func Registry() *store.Registry {
	r := store.NewRegistry()
	r.Register(
		bookmarks,
		contents,
		messages,
		creations,
		drafts,
		deletedDrafts,
		publications,
		deletedPublications,
		creationSubscriptions,
		collectionSubscriptions,
	)
	r.Relate(CollectionChildrenOf)
	return r
}
