package lanecsv

import (
	"errors"
	"fmt"
)

var (
	// ErrBareQuote is returned when a quote appears inside an unquoted field.
	ErrBareQuote = errors.New("lanecsv: bare quote in non-quoted field")
	// ErrQuote is returned when a closing quote is followed by something other than a delimiter or newline.
	ErrQuote = errors.New("lanecsv: extraneous or missing quote in quoted field")
	// ErrUnterminatedQuote is returned when a quoted field is still open at the end of input.
	ErrUnterminatedQuote = errors.New("lanecsv: unterminated quoted field")
	// ErrTrailingEscape is returned when the input ends with an unescaped escape token.
	ErrTrailingEscape = errors.New("lanecsv: escape token at end of input")
	// ErrFieldCount is returned when a record contains an unexpected number of fields.
	ErrFieldCount = errors.New("lanecsv: wrong number of fields")
	// ErrRecordTooLarge is returned when a field or record exceeds the configured limits.
	ErrRecordTooLarge = errors.New("lanecsv: record too large")
	// ErrUnreachable reports that the unescape engine disagreed with the tokenizer's
	// field metadata. It indicates a bug, not malformed input.
	ErrUnreachable = errors.New("lanecsv: internal tokenizer desync")
)

// ParseError contains location information for structural CSV errors.
type ParseError struct {
	// Offset is the absolute token offset of the offending token.
	Offset int64
	Line   int
	Column int
	// Field is the zero-based index of the field within its record.
	Field int
	Err   error
}

// Error formats the parse error message with the stored position and Err values.
func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("lanecsv: parse error on line %d, column %d (offset %d, field %d): %v",
		e.Line, e.Column, e.Offset, e.Field, e.Err)
}

// Unwrap returns the underlying Err so ParseError participates in errors.Unwrap.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FieldCountError is returned together with a record whose width differs from FieldsPerRecord.
type FieldCountError struct {
	Expected int
	Actual   int
	Line     int
}

func (e *FieldCountError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("lanecsv: record on line %d: wrong number of fields: expected %d, got %d",
		e.Line, e.Expected, e.Actual)
}

func (e *FieldCountError) Unwrap() error {
	if e == nil {
		return nil
	}
	return ErrFieldCount
}

// RecordTooLargeError is returned when a field or record exceeds a size limit.
type RecordTooLargeError struct {
	Limit  int
	Line   int
	Offset int64
}

func (e *RecordTooLargeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("lanecsv: record on line %d (offset %d) exceeds limit of %d tokens",
		e.Line, e.Offset, e.Limit)
}

func (e *RecordTooLargeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return ErrRecordTooLarge
}

// Action is returned by an ErrorHandler to decide how the reader continues.
type Action uint8

const (
	// Abort faults the reader; every later read returns the same error.
	Abort Action = iota
	// Skip drops the offending record and resumes at the next record.
	Skip
)

// ErrorHandler decides what to do with a recoverable error. It receives a
// *ParseError, *FieldCountError or *RecordTooLargeError.
type ErrorHandler func(err error) Action

// errorKind names an error for logs and metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrFieldCount):
		return "field_count"
	case errors.Is(err, ErrRecordTooLarge):
		return "record_too_large"
	case errors.Is(err, ErrBareQuote):
		return "bare_quote"
	case errors.Is(err, ErrQuote):
		return "quote"
	case errors.Is(err, ErrUnterminatedQuote):
		return "unterminated_quote"
	case errors.Is(err, ErrTrailingEscape):
		return "trailing_escape"
	case errors.Is(err, ErrUnreachable):
		return "desync"
	}
	return "io"
}
