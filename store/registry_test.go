package store_test

import (
	"testing"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

var (
	folders = store.NewTable("folders", []string{"id"}, nil, false,
		store.Col("id", column.Scalar(column.KindBlob)))
	folderItems = store.NewTable("folder_items", []string{"id"}, []string{"cid"}, false,
		store.Col("id", column.Scalar(column.KindBlob)),
		store.Col("cid", column.Scalar(column.KindBlob)))
	folderTags = store.NewTable("folder_tags", []string{"fid"}, []string{"tag"}, false,
		store.Col("fid", column.Scalar(column.KindBlob)),
		store.Col("tag", column.Scalar(column.KindText)))
)

func TestRegistry_Relate(t *testing.T) {
	r := store.NewRegistry()
	r.Relate(store.Relationship{Parent: folders, Child: folderItems, ParentKey: "id"})

	rels := r.AllRelationships()
	if len(rels) != 1 {
		t.Fatalf("expected 1 relationship, got %d", len(rels))
	}
	if rels[0].ParentColumn != "id" {
		t.Errorf("expected default ParentColumn 'id', got %q", rels[0].ParentColumn)
	}

	// Both sides are registered as tables
	if _, ok := r.Table("folders"); !ok {
		t.Error("expected folders to be registered")
	}
	if _, ok := r.Table("folder_items"); !ok {
		t.Error("expected folder_items to be registered")
	}
}

func TestRegistry_ChildrenOf(t *testing.T) {
	r := store.NewRegistry()
	r.Relate(store.Relationship{Parent: folders, Child: folderItems, ParentKey: "id"})
	r.Relate(store.Relationship{Parent: folders, Child: folderTags, ParentKey: "fid"})

	children := r.ChildrenOf("folders")
	if len(children) != 2 {
		t.Fatalf("expected 2 children for folders, got %d", len(children))
	}
	if children[1].ParentKey != "fid" {
		t.Errorf("expected ParentKey 'fid', got %q", children[1].ParentKey)
	}

	if !r.HasChildren("folders") {
		t.Error("expected folders to have children")
	}
	if r.HasChildren("folder_items") {
		t.Error("expected folder_items to not have children")
	}
}

// --- Registry Edge Cases ---

func TestRegistry_Empty(t *testing.T) {
	r := store.NewRegistry()

	if len(r.AllRelationships()) != 0 {
		t.Error("expected no relationships")
	}
	if len(r.Tables()) != 0 {
		t.Error("expected no tables")
	}
	if r.HasChildren("") {
		t.Error("expected false for empty string parent")
	}
	if _, ok := r.Table("nonexistent"); ok {
		t.Error("expected lookup of unknown table to fail")
	}
}

func TestRegistry_TablesSorted(t *testing.T) {
	r := store.NewRegistry()
	r.Register(folderTags, folders, folderItems, folders)

	tables := r.Tables()
	want := []string{"folder_items", "folder_tags", "folders"}
	if len(tables) != len(want) {
		t.Fatalf("expected %d tables, got %d", len(want), len(tables))
	}
	for i, name := range want {
		if tables[i].Name != name {
			t.Errorf("tables[%d] = %q, want %q", i, tables[i].Name, name)
		}
	}
}
