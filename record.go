package lanecsv

// Record is a view of one record inside the reader's current window. It does
// not own its data: a Record, and every slice obtained from it, is valid only
// until the next read call on its Reader.
type Record[T Token] struct {
	r      *Reader[T]
	data   []T
	metas  []FieldMeta
	start  int
	line   int
	offset int64
}

// FieldCount returns the number of fields in the record.
func (rec Record[T]) FieldCount() int {
	return len(rec.metas)
}

// Line returns the 1-based line on which the record starts.
func (rec Record[T]) Line() int {
	return rec.line
}

// Offset returns the absolute token offset at which the record starts.
func (rec Record[T]) Offset() int64 {
	return rec.offset
}

// Meta returns the packed boundary of field i.
func (rec Record[T]) Meta(i int) FieldMeta {
	return rec.metas[i]
}

func (rec Record[T]) fieldStart(i int) int {
	if i == 0 {
		return rec.start
	}
	return rec.metas[i-1].NextStart()
}

// Raw returns field i exactly as it appears in the input, quotes and escapes
// included.
func (rec Record[T]) Raw(i int) []T {
	end := rec.metas[i].End()
	return rec.data[rec.fieldStart(i):end:end]
}

// IsQuoted reports whether field i is wrapped in quotes.
func (rec Record[T]) IsQuoted(i int) bool {
	return rec.metas[i].IsQuoted()
}

// NeedsUnescape reports whether the logical value of field i can differ from
// its raw span.
func (rec Record[T]) NeedsUnescape(i int) bool {
	return rec.metas[i].NeedsUnescape()
}

// Field returns the logical value of field i: trimmed, unquoted and
// unescaped. Fields without quotes or escapes are returned without copying;
// the rest are unescaped into a buffer owned by the reader.
func (rec Record[T]) Field(i int) ([]T, error) {
	m := rec.metas[i]
	u := &rec.r.unesc
	raw := u.trim(rec.Raw(i))
	if !m.NeedsUnescape() {
		return raw, nil
	}
	body, err := u.body(raw, m)
	if err != nil {
		return nil, rec.desync(i, err)
	}
	if !u.needsCopy(m) {
		return body, nil
	}
	mark := len(rec.r.scratch)
	out, err := u.unescape(rec.r.scratch, body, m)
	if err != nil {
		return nil, rec.desync(i, err)
	}
	rec.r.scratch = out
	return out[mark:len(out):len(out)], nil
}

// AppendField appends the logical value of field i to dst.
func (rec Record[T]) AppendField(dst []T, i int) ([]T, error) {
	m := rec.metas[i]
	u := &rec.r.unesc
	raw := u.trim(rec.Raw(i))
	if !m.NeedsUnescape() {
		return append(dst, raw...), nil
	}
	body, err := u.body(raw, m)
	if err != nil {
		return dst, rec.desync(i, err)
	}
	if !u.needsCopy(m) {
		return append(dst, body...), nil
	}
	out, err := u.unescape(dst, body, m)
	if err != nil {
		return dst, rec.desync(i, err)
	}
	return out, nil
}

// String returns field i as a newly allocated string, or an interned one
// when the reader was built with Options.Intern.
func (rec Record[T]) String(i int) (string, error) {
	f, err := rec.Field(i)
	if err != nil {
		return "", err
	}
	if in := rec.r.interner; in != nil {
		if b, ok := bytesView(f); ok {
			return in.Intern(b), nil
		}
	}
	return tokensToString(f), nil
}

// Strings copies every field into a new slice that outlives the record.
func (rec Record[T]) Strings() ([]string, error) {
	out := make([]string, len(rec.metas))
	for i := range out {
		s, err := rec.String(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ByName returns the logical value of the field under the header column name.
// It requires Options.HasHeader.
func (rec Record[T]) ByName(name string) ([]T, bool, error) {
	i := rec.r.FieldIndex(name)
	if i < 0 || i >= len(rec.metas) {
		return nil, false, nil
	}
	f, err := rec.Field(i)
	return f, err == nil, err
}

// tokens returns the number of tokens the record spans, terminator excluded.
func (rec Record[T]) tokens() int {
	if len(rec.metas) == 0 {
		return 0
	}
	return rec.metas[len(rec.metas)-1].End() - rec.start
}

// embeddedNewlines counts the newline tokens inside fields that contain quotes
// or escapes.
func (rec Record[T]) embeddedNewlines(nl T) int {
	n := 0
	for i, m := range rec.metas {
		if m.NeedsUnescape() {
			n += countToken(rec.Raw(i), nl)
		}
	}
	return n
}

func (rec Record[T]) desync(i int, err error) error {
	col := rec.fieldStart(i) - rec.start + 1
	return &ParseError{
		Offset: rec.offset + int64(col-1),
		Line:   rec.line,
		Column: col,
		Field:  i,
		Err:    err,
	}
}
