// Package pgcopy streams records from a lanecsv Reader into PostgreSQL with
// the COPY protocol, without materialising the input.
package pgcopy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/oleg578/lanecsv"
)

// CopyFromer is satisfied by *pgx.Conn, pgx.Tx and *pgxpool.Pool.
type CopyFromer interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// ConvertFunc turns the text of column col into the value sent to the server.
type ConvertFunc func(col int, text string) (any, error)

// Source adapts a Reader to pgx.CopyFromSource. Each row is copied out of the
// reader's window before it is handed to pgx.
type Source struct {
	// NullEmpty sends empty unquoted fields as NULL.
	NullEmpty bool
	// Convert, when set, is applied to every non-NULL field.
	Convert ConvertFunc

	ctx    context.Context
	r      *lanecsv.Reader[byte]
	values []any
	rows   int64
	err    error
}

var _ pgx.CopyFromSource = (*Source)(nil)

// NewSource returns a Source reading from r. ctx bounds every read.
func NewSource(ctx context.Context, r *lanecsv.Reader[byte]) *Source {
	return &Source{ctx: ctx, r: r}
}

func (s *Source) Next() bool {
	if s.err != nil {
		return false
	}
	rec, err := s.r.ReadRecordContext(s.ctx)
	if errors.Is(err, io.EOF) {
		return false
	}
	if err != nil {
		s.err = err
		return false
	}
	n := rec.FieldCount()
	if cap(s.values) < n {
		s.values = make([]any, n)
	}
	s.values = s.values[:n]
	for i := 0; i < n; i++ {
		if s.NullEmpty && !rec.IsQuoted(i) && len(rec.Raw(i)) == 0 {
			s.values[i] = nil
			continue
		}
		text, err := rec.String(i)
		if err != nil {
			s.err = err
			return false
		}
		if s.Convert == nil {
			s.values[i] = text
			continue
		}
		v, err := s.Convert(i, text)
		if err != nil {
			s.err = fmt.Errorf("pgcopy: line %d column %d: %w", rec.Line(), i+1, err)
			return false
		}
		s.values[i] = v
	}
	s.rows++
	return true
}

func (s *Source) Values() ([]any, error) {
	return s.values, s.err
}

func (s *Source) Err() error {
	return s.err
}

// Rows returns the number of rows produced so far.
func (s *Source) Rows() int64 {
	return s.rows
}

// Copy loads every remaining record of r into table. When columns is nil the
// reader's header is used, which requires Options.HasHeader.
func Copy(ctx context.Context, db CopyFromer, table pgx.Identifier, columns []string, r *lanecsv.Reader[byte]) (int64, error) {
	src := NewSource(ctx, r)
	if columns == nil {
		// Reading the first record captures the header.
		if !src.Next() {
			if err := src.Err(); err != nil {
				return 0, err
			}
			return 0, nil
		}
		columns = r.Header()
		if columns == nil {
			return 0, errors.New("pgcopy: no column names: reader has no header")
		}
		return db.CopyFrom(ctx, table, columns, &primed{Source: src})
	}
	return db.CopyFrom(ctx, table, columns, src)
}

// primed replays a row that was read before the copy started.
type primed struct {
	*Source
	started bool
}

func (p *primed) Next() bool {
	if !p.started {
		p.started = true
		return true
	}
	return p.Source.Next()
}

// SplitIdentifier converts "schema.table" into a pgx.Identifier.
func SplitIdentifier(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
