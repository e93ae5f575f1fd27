package column

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is matched by every TypeMismatchError.
	ErrTypeMismatch = errors.New("folio: column type mismatch")

	// ErrEncoding is matched by every EncodingError.
	ErrEncoding = errors.New("folio: column encoding failed")

	// ErrMissing is returned by GetAs when the column is absent.
	ErrMissing = errors.New("folio: column not present")

	// ErrRowShape is returned by Columns.Fill when a row does not match the requested fields.
	ErrRowShape = errors.New("folio: row length does not match field list")
)

// TypeMismatchError reports a value whose variant differs from what a codec expects.
type TypeMismatchError struct {
	Column string
	Want   Kind
	Got    Kind
}

func (e *TypeMismatchError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("folio: column %q: want %s, got %s", e.Column, e.Want, e.Got)
	}
	return fmt.Sprintf("folio: column type mismatch: want %s, got %s", e.Want, e.Got)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// EncodingError reports a Go value that violates a codec invariant.
type EncodingError struct {
	Codec  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("folio: %s encoding: %s", e.Codec, e.Reason)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

func mismatch(want Kind, got Value) error {
	return &TypeMismatchError{Want: want, Got: KindOf(got)}
}

// withColumn attaches a column name to a TypeMismatchError.
func withColumn(err error, name string) error {
	var tm *TypeMismatchError
	if errors.As(err, &tm) && tm.Column == "" {
		return &TypeMismatchError{Column: name, Want: tm.Want, Got: tm.Got}
	}
	return err
}
