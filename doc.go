// # LaneCSV: A Lane-Scanning Streaming CSV Library for Go
//
// LaneCSV tokenizes CSV from a byte or UTF-16 stream 64 tokens at a time. It uses bitmasks for quotes, delimiters and newlines. Field boundaries are recorded in a flat arena of packed metadata words, so reading a record normally allocates nothing.
//
// # Features
//
// - Streaming reader over any io.Reader, an in-memory buffer, or UTF-16 code units (`Reader[T]` with `T` byte or uint16).
// - RFC 4180 quoting with doubled quotes, or a Unix dialect with a separate escape token.
// - Newline modes LF, CR, CRLF and Auto. Auto accepts any of them and reports the first one seen.
// - Zero-copy record views (`Record.Raw`) with lazily unescaped logical values (`Record.Field`).
// - Precise diagnostics via `ParseError`, `FieldCountError` and `RecordTooLargeError`, with skip or abort policies.
// - Optional interning, pooled buffers, Prometheus metrics (`metrics`) and a PostgreSQL COPY adapter (`pgcopy`).
// - Buffered writer using the same dialect, for round trips.
//
// # Getting Started
//
//	r := lanecsv.NewReader(file)
//	defer r.Close()
//	for {
//		rec, err := r.ReadRecord()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		name, _ := rec.String(0)
//		_ = name
//	}
//
// A record view is valid until the next read call; use `Record.Strings` to keep it.
package lanecsv
