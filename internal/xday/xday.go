// Package xday derives coarse day buckets from time-ordered xids.
package xday

import (
	"encoding/binary"
	"time"

	"github.com/rs/xid"
)

// SecondsPerDay is the width of one bucket.
const SecondsPerDay = 86400

// MaxID sorts after every real id; used as the open upper bound of a scan.
var MaxID = xid.ID{255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255}

// Day returns the day bucket of id: the big-endian unix timestamp in its
// first four bytes divided by SecondsPerDay.
func Day(id xid.ID) int32 {
	return int32(binary.BigEndian.Uint32(id[0:4]) / SecondsPerDay)
}

// ToID returns the smallest id that falls in day. It is the exclusive
// upper bound of day-1.
func ToID(day int32) xid.ID {
	var id xid.ID
	binary.BigEndian.PutUint32(id[0:4], uint32(day)*SecondsPerDay)
	return id
}

// FromTime returns the day bucket containing t.
func FromTime(t time.Time) int32 {
	return int32(t.Unix() / SecondsPerDay)
}

// FromDate returns the day bucket of midnight UTC on the given date.
func FromDate(year int, month time.Month, day int) int32 {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}
