package store

import (
	"context"
	"sort"

	"github.com/rs/xid"

	"github.com/jacentio/folio/internal/xday"
)

// Page is one page of a list. Next is nil at the end of the stream.
type Page[E any] struct {
	Items []E
	Next  *xid.ID
}

// NextToken returns the opaque token for the following page, or "" at the end.
func (p Page[E]) NextToken() string {
	if p.Next == nil {
		return ""
	}
	return PageToken(*p.Next)
}

// PageToken renders the last-seen id as a page token. Tokens are neither
// signed nor encrypted.
func PageToken(id xid.ID) string {
	return id.String()
}

// ParsePageToken parses a page token. An empty token means "first page".
func ParsePageToken(table, token string) (*xid.ID, error) {
	if token == "" {
		return nil, nil
	}
	id, err := xid.FromString(token)
	if err != nil {
		return nil, Invalid(table, "invalid page token %q", token)
	}
	return &id, nil
}

// PageSize clamps a requested page size to [1, MaxPageSize].
func (s *Store) PageSize(n int) int {
	if n < 1 {
		return 1
	}
	if n > s.config.MaxPageSize {
		return s.config.MaxPageSize
	}
	return n
}

// PageOf cuts a page from rows fetched with a LIMIT of size+1. The extra
// row only proves that another page exists.
func PageOf[E any](rows []E, size int, id func(E) xid.ID) Page[E] {
	if len(rows) <= size {
		return Page[E]{Items: rows}
	}
	items := rows[:size]
	next := id(items[size-1])
	return Page[E]{Items: items, Next: &next}
}

// DayFetch returns up to limit rows of one day bucket whose id sorts
// strictly before the bound.
type DayFetch[E any] func(ctx context.Context, day int32, before xid.ID, limit int) ([]E, error)

// ScanDays assembles one page by visiting day buckets newest to oldest,
// starting at the token's day or at today. It stops once a row beyond the
// page is seen, after Config.ScanDays buckets, or below Config.FloorDay.
// Items come back sorted by id, newest first.
func ScanDays[E any](ctx context.Context, s *Store, size int, token *xid.ID, fetch DayFetch[E], id func(E) xid.ID) (Page[E], error) {
	size = s.PageSize(size)
	day := xday.FromTime(s.Now())
	before := xday.MaxID
	if token != nil {
		day = xday.Day(*token)
		before = *token
	}

	want := size + 1
	var acc []E
	for scanned := 0; scanned < s.config.ScanDays && day >= s.config.FloorDay; scanned++ {
		rows, err := fetch(ctx, day, before, want-len(acc))
		if err != nil {
			return Page[E]{}, err
		}
		acc = append(acc, rows...)
		if len(acc) >= want {
			break
		}
		before = xday.ToID(day)
		day--
	}

	sort.SliceStable(acc, func(i, j int) bool {
		return id(acc[i]).Compare(id(acc[j])) > 0
	})
	return PageOf(acc, size, id), nil
}
