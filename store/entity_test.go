package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

func TestProjection_Resolve(t *testing.T) {
	p := store.Projection{
		Table:    "doc",
		Fields:   []string{"gid", "id", "status", "title", "mid", "cover"},
		Required: []string{"gid", "id", "status"},
		Pseudo:   map[string][]string{"info": {"mid", "cover"}},
		Dynamic:  func(name string) bool { return name == "eng" },
	}

	tests := map[string]struct {
		requested []string
		want      []string
		wantField string
	}{
		"empty selects everything": {
			requested: nil,
			want:      []string{"gid", "id", "status", "title", "mid", "cover"},
		},
		"required fields are appended": {
			requested: []string{"title"},
			want:      []string{"title", "gid", "id", "status"},
		},
		"pseudo field expands": {
			requested: []string{"info", "title"},
			want:      []string{"mid", "cover", "title", "gid", "id", "status"},
		},
		"duplicates collapse": {
			requested: []string{"id", "title", "title"},
			want:      []string{"id", "title", "gid", "status"},
		},
		"dynamic columns accepted": {
			requested: []string{"eng"},
			want:      []string{"eng", "gid", "id", "status"},
		},
		"unknown field rejected": {
			requested: []string{"title", "titel"},
			wantField: "titel",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := p.Resolve(tc.requested)
			if tc.wantField != "" {
				var ife *store.InvalidFieldError
				require.ErrorAs(t, err, &ife)
				assert.Equal(t, tc.wantField, ife.Field)
				assert.Equal(t, 400, store.StatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSelection(t *testing.T) {
	var s store.Selection
	assert.Empty(t, s.Selected())
	s.Select([]string{"a", "b"})
	assert.True(t, s.Selects("a"))
	assert.False(t, s.Selects("c"))
}

type docField uint8

const (
	docTitle docField = iota
	docLabels
)

func (f docField) Column() string {
	return [...]string{"title", "labels"}[f]
}

func (f docField) Type() column.Type {
	return [...]column.Type{column.Scalar(column.KindText), column.SetType(column.KindText)}[f]
}

func TestChanges(t *testing.T) {
	ch := store.NewChanges[docField]()
	require.NoError(t, store.Put(ch, docTitle, column.String, "a"))
	require.NoError(t, store.Put(ch, docLabels, column.SetOf(column.String), []string{"x"}))
	require.NoError(t, store.Put(ch, docTitle, column.String, "b"))

	assert.Equal(t, 2, ch.Len())
	assert.Equal(t, []docField{docTitle, docLabels}, ch.Fields())
	set := ch.Assignments()
	require.Len(t, set, 2)
	assert.Equal(t, "title", set[0].Column)
	assert.Equal(t, column.Text("b"), set[0].Value)

	err := ch.PutValue(docTitle, column.Int(1))
	require.ErrorIs(t, err, column.ErrTypeMismatch)

	f, err := store.ParseField("doc", []docField{docTitle, docLabels}, "labels")
	require.NoError(t, err)
	assert.Equal(t, docLabels, f)

	_, err = store.ParseField("doc", []docField{docTitle, docLabels}, "status")
	require.ErrorIs(t, err, store.ErrInvalidField)
}

func TestChanges_ZeroValue(t *testing.T) {
	var ch store.Changes[docField]
	assert.Empty(t, ch.Assignments())

	require.NotPanics(t, func() {
		require.NoError(t, store.Put(&ch, docTitle, column.String, "a"))
	})
	assert.Equal(t, 1, ch.Len())
	assert.Equal(t, column.Text("a"), ch.Columns()["title"])
}
