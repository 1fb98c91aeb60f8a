package lanecsv

import (
	"bufio"
	"errors"
	"io"
)

const defaultWriterBufferSize = 1 << 12

var (
	errNilWriter      = errors.New("lanecsv: writer is nil")
	errWriterNoTarget = errors.New("lanecsv: writer destination cannot be nil")
)

// Writer provides buffered CSV emission for a Dialect. Records it writes read
// back unchanged through a Reader with the same dialect.
type Writer struct {
	dst     *bufio.Writer
	dialect Dialect
	term    string

	// AlwaysQuote forces quoting for all fields when enabled.
	AlwaysQuote bool

	err error
}

// NewWriter creates a new Writer for the default dialect with LF line endings.
func NewWriter(w io.Writer) *Writer {
	return NewDialectWriter(w, DefaultDialect())
}

// NewDialectWriter creates a Writer that quotes and escapes fields for d and
// ends records with d's newline (LF for NewlineAuto).
func NewDialectWriter(w io.Writer, d Dialect) *Writer {
	if w == nil {
		panic(errWriterNoTarget.Error())
	}
	d = d.resolved()
	return &Writer{
		dst:     bufio.NewWriterSize(w, defaultWriterBufferSize),
		dialect: d,
		term:    d.terminator(),
	}
}

// Reset updates the underlying writer while preserving the configuration flags.
func (w *Writer) Reset(dst io.Writer) {
	if w == nil {
		panic(errNilWriter.Error())
	}
	if dst == nil {
		panic(errWriterNoTarget.Error())
	}
	if w.dst == nil {
		w.dst = bufio.NewWriterSize(dst, defaultWriterBufferSize)
	} else {
		w.dst.Reset(dst)
	}
	w.err = nil
}

// Write emits a single CSV record. The record is terminated with the dialect's newline sequence.
func (w *Writer) Write(record []string) error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}

	buf := w.dst.AvailableBuffer()
	for i := range record {
		if i > 0 {
			buf = append(buf, w.dialect.Delimiter)
		}
		buf = appendField(buf, record[i], w.dialect, w.AlwaysQuote)
	}
	buf = append(buf, w.term...)
	if _, err := w.dst.Write(buf); err != nil {
		w.err = err
		return err
	}
	return nil
}

// WriteAll writes multiple records, stopping at the first error.
func (w *Writer) WriteAll(records [][]string) error {
	if w == nil {
		return errNilWriter
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes pending buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}
	if err := w.dst.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Error reports the first error encountered by the writer.
func (w *Writer) Error() error {
	if w == nil {
		return errNilWriter
	}
	return w.err
}

// AppendEscaped appends field to dst, quoting and escaping it as d requires.
func AppendEscaped(dst []byte, field string, d Dialect) []byte {
	return appendField(dst, field, d.resolved(), false)
}

func appendField(dst []byte, field string, d Dialect, always bool) []byte {
	if !always && !fieldNeedsQuote(field, d) {
		return append(dst, field...)
	}
	dst = append(dst, d.Quote)
	unix := d.Escape != d.Quote
	start := 0
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c != d.Quote && !(unix && c == d.Escape) {
			continue
		}
		dst = append(dst, field[start:i]...)
		if unix {
			dst = append(dst, d.Escape, c)
		} else {
			dst = append(dst, d.Quote, d.Quote)
		}
		start = i + 1
	}
	dst = append(dst, field[start:]...)
	return append(dst, d.Quote)
}

func fieldNeedsQuote(field string, d Dialect) bool {
	if field == "" {
		return false
	}
	if d.Trimming&TrimLeading != 0 && field[0] == ' ' {
		return true
	}
	if d.Trimming&TrimTrailing != 0 && field[len(field)-1] == ' ' {
		return true
	}
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case d.Quote, d.Delimiter, d.Escape, '\n', '\r':
			return true
		}
	}
	return false
}
