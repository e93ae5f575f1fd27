package store

import (
	"math"
	"time"
)

// Transitions maps each legal status to the statuses it may move to.
type Transitions map[int8][]int8

// Check validates a move from one status to another. It returns changed
// false with a nil error when from equals to, and a ValidationError for any
// move the table does not list.
func (t Transitions) Check(table string, from, to int8) (changed bool, err error) {
	if _, ok := t[to]; !ok {
		return false, Invalid(table, "status %d is out of range", to)
	}
	if from == to {
		return false, nil
	}
	for _, next := range t[from] {
		if next == to {
			return true, nil
		}
	}
	return false, Invalid(table, "status transition %d -> %d is not allowed", from, to)
}

// NextMillis returns a millisecond timestamp token that is strictly greater
// than prev, using now when the clock has moved on.
func NextMillis(prev int64, now time.Time) int64 {
	ms := now.UnixMilli()
	if ms <= prev {
		return prev + 1
	}
	return ms
}

// NextVersion increments a version counter, failing before it overflows.
func NextVersion(table string, v int16) (int16, error) {
	if v >= math.MaxInt16 {
		return v, Invalid(table, "version %d cannot be incremented", v)
	}
	return v + 1, nil
}

// CheckSize rejects payloads larger than limit bytes.
func CheckSize(table, field string, n, limit int) error {
	if n > limit {
		return Invalid(table, "%s is %d bytes, limit is %d", field, n, limit)
	}
	return nil
}
