package lanecsv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	defaultBufferSize    = 1 << 16
	defaultMaxBufferSize = 1 << 28
	defaultMetaCapacity  = 1 << 10
	maxEmptyReads        = 100
)

var errNilSource = errors.New("lanecsv: reader source cannot be nil")

// Options configures a Reader. The zero value reads RFC 4180 input.
type Options struct {
	Dialect Dialect
	// FieldsPerRecord expects each record to contain this many fields. Zero
	// captures the width of the first record; a negative value disables the check.
	FieldsPerRecord int
	// ReuseRecord lets Read return a slice and strings that share storage with
	// the previous call.
	ReuseRecord bool
	// HasHeader consumes the first record as column names; see Reader.Header.
	HasHeader bool
	// SkipBlankLines drops records that consist of a single empty unquoted field.
	SkipBlankLines bool
	// SkipBOM drops a leading byte order mark.
	SkipBOM bool
	// Transcode decodes byte input by its byte order mark, turning UTF-16 into UTF-8.
	Transcode bool
	// Intern deduplicates short field strings returned by Record.String and Read.
	Intern bool

	// BufferSize is the initial window size in tokens.
	BufferSize int
	// MaxBufferSize caps window growth; a record that does not fit fails with
	// *RecordTooLargeError.
	MaxBufferSize int
	// Concurrency limits the streams ReadEach reads at once. Zero means no limit.
	Concurrency int

	Lane     Lane
	Pool     *BufferPool
	OnError  ErrorHandler
	Logger   *slog.Logger
	Observer Observer
}

func (o Options) withDefaults() (Options, error) {
	if err := o.Dialect.Validate(); err != nil {
		return o, err
	}
	o.Dialect = o.Dialect.resolved()
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	if o.MaxBufferSize <= 0 {
		o.MaxBufferSize = defaultMaxBufferSize
	}
	o.MaxBufferSize = min(max(o.MaxBufferSize, o.BufferSize), maxWindowTokens)
	o.BufferSize = min(o.BufferSize, o.MaxBufferSize)
	if o.Pool == nil {
		o.Pool = DefaultPool
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	return o, nil
}

type readerState uint8

const (
	stateIdle readerState = iota
	stateScanning
	stateHasRecord
	stateAwaiting
	stateFaulted
	stateDone
)

func (s readerState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateScanning:
		return "scanning"
	case stateHasRecord:
		return "has-record"
	case stateAwaiting:
		return "awaiting-input"
	case stateFaulted:
		return "faulted"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("readerState(%d)", s)
}

// Reader assembles records from a Source. It is not safe for concurrent use.
type Reader[T Token] struct {
	// FieldsPerRecord expects each record to contain this many fields. Zero captures the width of the first record.
	FieldsPerRecord int
	// ReuseRecord indicates whether Read should reuse the backing array of the returned slice.
	ReuseRecord bool

	src      Source[T]
	opts     Options
	tok      tokenizer[T]
	arena    metaArena
	unesc    unescaper[T]
	interner *Interner
	logger   *slog.Logger
	observer Observer
	nl       T

	window    []T
	final     bool
	state     readerState
	err       error
	pending   *tokenError
	oversized int
	loggedNL  bool

	line      int
	scratch   []T
	header    []string
	headerIdx map[string]int

	record  []string
	dataBuf []byte
	bounds  []int
}

// NewReader creates a Reader with the default dialect that consumes CSV data
// from r, panicking if r is nil.
func NewReader(r io.Reader) *Reader[byte] {
	rd, err := NewReaderOptions(r, Options{})
	if err != nil {
		panic(err.Error())
	}
	return rd
}

// NewReaderOptions creates a byte Reader over r.
func NewReaderOptions(r io.Reader, opts Options) (*Reader[byte], error) {
	if r == nil {
		return nil, errNilSource
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if opts.Transcode {
		r = transcodeUTF8(r)
	}
	return newReader[byte](newStreamSource[byte](byteChunks{r: r}, opts), opts), nil
}

// NewBytesReader creates a Reader over an in-memory input without copying it.
func NewBytesReader(data []byte, opts Options) (*Reader[byte], error) {
	return NewTokenReader(data, opts)
}

// NewTokenReader creates a Reader over in-memory tokens without copying them.
func NewTokenReader[T Token](data []T, opts Options) (*Reader[T], error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return newReader[T](newMemorySource[T](data, opts.SkipBOM), opts), nil
}

// NewUTF16Reader creates a Reader of UTF-16 code units decoded from r. A nil
// order detects the byte order from a leading BOM, which is consumed, and
// falls back to little endian.
func NewUTF16Reader(r io.Reader, order binary.ByteOrder, opts Options) (*Reader[uint16], error) {
	if r == nil {
		return nil, errNilSource
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if order == nil {
		if order, r, err = detectUTF16Order(r); err != nil {
			return nil, err
		}
	}
	chunks := &utf16Chunks{r: r, order: order, pool: opts.Pool}
	return newReader[uint16](newStreamSource[uint16](chunks, opts), opts), nil
}

// NewChunkReader creates a Reader over a custom token stream.
func NewChunkReader[T Token](src ChunkReader[T], opts Options) (*Reader[T], error) {
	if src == nil {
		return nil, errNilSource
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return newReader[T](newStreamSource[T](src, opts), opts), nil
}

// NewSourceReader creates a Reader over a custom Source.
func NewSourceReader[T Token](src Source[T], opts Options) (*Reader[T], error) {
	if src == nil {
		return nil, errNilSource
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return newReader[T](src, opts), nil
}

func newReader[T Token](src Source[T], opts Options) *Reader[T] {
	r := &Reader[T]{
		FieldsPerRecord: opts.FieldsPerRecord,
		ReuseRecord:     opts.ReuseRecord,
		src:             src,
		opts:            opts,
		tok:             newTokenizer[T](opts.Dialect, opts.Lane),
		arena:           newMetaArena(opts.Pool, defaultMetaCapacity),
		unesc:           newUnescaper[T](opts.Dialect, opts.Lane),
		logger:          opts.Logger,
		observer:        opts.Observer,
		nl:              '\n',
		line:            1,
		scratch:         rentTokens[T](opts.Pool, 256)[:0],
		record:          make([]string, 0, 16),
		dataBuf:         make([]byte, 0, 512),
		bounds:          make([]int, 0, 32),
	}
	if opts.Dialect.Newline == NewlineCR {
		r.nl = '\r'
	}
	if opts.Intern {
		r.interner = NewInterner(0, 0)
	}
	if ss, ok := src.(*streamSource[T]); ok {
		ss.onGrow = r.grown
	}
	return r
}

// ReadRecord returns the next record as a view into the reader's window.
// It returns io.EOF when the input is exhausted.
func (r *Reader[T]) ReadRecord() (Record[T], error) {
	return r.ReadRecordContext(context.Background())
}

// ReadRecordContext is ReadRecord with a context that is checked before each
// read from the underlying stream.
//
// A record whose width differs from FieldsPerRecord is returned together with
// a *FieldCountError and the reader stays usable. Structural errors and
// oversized records stop the reader unless Options.OnError chooses Skip.
func (r *Reader[T]) ReadRecordContext(ctx context.Context) (Record[T], error) {
	if r == nil || r.src == nil {
		return Record[T]{}, io.EOF
	}
	r.scratch = r.scratch[:0]
	for {
		switch r.state {
		case stateFaulted:
			return Record[T]{}, r.err
		case stateDone:
			return Record[T]{}, io.EOF
		}
		r.state = stateScanning

		if start, metas, ok := r.arena.pop(); ok {
			rec, skip, err := r.accept(start, metas)
			if skip {
				continue
			}
			if err != nil && !errors.Is(err, ErrFieldCount) {
				return Record[T]{}, err
			}
			r.state = stateHasRecord
			r.observer.RecordRead(rec.FieldCount(), rec.tokens())
			return rec, err
		}

		if te := r.pending; te != nil {
			r.pending = nil
			err := r.parseError(te)
			if r.decide(err) == Skip {
				r.arena.dropPending()
				r.tok.resync(te.off)
				r.skipped(err)
				continue
			}
			return Record[T]{}, r.fault(err)
		}
		if limit := r.oversized; limit > 0 {
			r.oversized = 0
			err := &RecordTooLargeError{Limit: limit, Line: r.line, Offset: r.src.Offset() + int64(r.arena.start)}
			if r.decide(err) == Skip {
				r.arena.dropPending()
				r.tok.skipRecord()
				r.skipped(err)
				continue
			}
			return Record[T]{}, r.fault(err)
		}
		if r.final && r.tok.done {
			r.state = stateDone
			return Record[T]{}, io.EOF
		}
		if err := r.fill(ctx); err != nil {
			return Record[T]{}, err
		}
	}
}

// accept turns popped metas into a record and applies the record checks.
// skip reports that the record was dropped.
func (r *Reader[T]) accept(start int, metas []FieldMeta) (rec Record[T], skip bool, err error) {
	rec = Record[T]{
		r:      r,
		data:   r.window,
		metas:  metas,
		start:  start,
		line:   r.line,
		offset: r.src.Offset() + int64(start),
	}
	r.line += 1 + rec.embeddedNewlines(r.nl)

	if limit := r.tooLarge(rec); limit > 0 {
		err := &RecordTooLargeError{Limit: limit, Line: rec.line, Offset: rec.offset}
		if r.decide(err) == Skip {
			r.skipped(err)
			return rec, true, nil
		}
		return rec, false, r.fault(err)
	}
	if r.opts.SkipBlankLines && len(metas) == 1 && metas[0].End() == start && !metas[0].IsQuoted() {
		return rec, true, nil
	}

	n := len(metas)
	switch {
	case r.FieldsPerRecord == 0:
		r.FieldsPerRecord = n
	case r.FieldsPerRecord > 0 && n != r.FieldsPerRecord:
		err = &FieldCountError{Expected: r.FieldsPerRecord, Actual: n, Line: rec.line}
		if r.decide(err) == Skip {
			r.skipped(err)
			return rec, true, nil
		}
	}

	if r.opts.HasHeader && r.header == nil {
		header, herr := rec.Strings()
		if herr != nil {
			return rec, false, r.fault(herr)
		}
		r.header = header
		r.headerIdx = make(map[string]int, len(header))
		for i, name := range header {
			if _, dup := r.headerIdx[name]; !dup {
				r.headerIdx[name] = i
			}
		}
		return rec, true, nil
	}
	return rec, false, err
}

// tooLarge returns the violated limit of rec, or zero.
func (r *Reader[T]) tooLarge(rec Record[T]) int {
	d := r.opts.Dialect
	if d.MaxRecordLength > 0 && rec.tokens() > d.MaxRecordLength {
		return d.MaxRecordLength
	}
	if d.MaxFieldLength > 0 {
		for i, m := range rec.metas {
			if m.End()-rec.fieldStart(i) > d.MaxFieldLength {
				return d.MaxFieldLength
			}
		}
	}
	return 0
}

// fill retires consumed tokens, reads the next window and tokenizes it.
func (r *Reader[T]) fill(ctx context.Context) error {
	r.state = stateAwaiting
	consumed := r.arena.start
	if r.tok.skipping() {
		consumed = r.tok.pos
	}
	if consumed > 0 {
		r.src.Advance(consumed)
		r.arena.shift(consumed)
		r.tok.shift(consumed)
		r.window = r.window[consumed:]
	}

	window, final, err := r.src.Read(ctx)
	if err != nil {
		switch {
		case errors.Is(err, errBufferFull):
			tooLarge := &RecordTooLargeError{Limit: r.opts.MaxBufferSize, Line: r.line, Offset: r.src.Offset()}
			if r.decide(tooLarge) == Skip {
				r.arena.dropPending()
				r.tok.skipRecord()
				r.skipped(tooLarge)
				return nil
			}
			return r.fault(tooLarge)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		}
		return r.fault(err)
	}
	r.window, r.final = window, final
	r.observer.Refill(len(window), final)
	r.logger.Debug("lanecsv: window refilled", "tokens", len(window), "final", final, "offset", r.src.Offset())

	if te := r.tok.tokenize(window, final, &r.arena); te != nil {
		r.pending = te
	}
	if r.tok.sawEOL && !r.loggedNL {
		r.loggedNL = true
		r.logger.Debug("lanecsv: newline detected", "newline", r.tok.detected)
	}
	if !final && r.pending == nil && !r.tok.skipping() {
		r.oversized = r.pendingTooLarge()
	}
	return nil
}

// pendingTooLarge checks the incomplete record at the end of the window.
func (r *Reader[T]) pendingTooLarge() int {
	d := r.opts.Dialect
	if d.MaxFieldLength > 0 && len(r.window)-r.tok.fieldStart > d.MaxFieldLength {
		return d.MaxFieldLength
	}
	if d.MaxRecordLength > 0 {
		tail := r.arena.start
		for i := len(r.arena.metas) - 1; i >= r.arena.head; i-- {
			if m := r.arena.metas[i]; m.IsEOL() {
				tail = m.NextStart()
				break
			}
		}
		if len(r.window)-tail > d.MaxRecordLength {
			return d.MaxRecordLength
		}
	}
	return 0
}

// parseError locates a tokenizer error in the current window.
func (r *Reader[T]) parseError(te *tokenError) *ParseError {
	from := min(max(r.arena.start, 0), len(r.window))
	to := min(max(te.off, from), len(r.window))
	seg := r.window[from:to]
	line := r.line
	col := to - from + 1
	for i := len(seg) - 1; i >= 0; i-- {
		if seg[i] == r.nl {
			col = len(seg) - i
			break
		}
	}
	line += countToken(seg, r.nl)
	return &ParseError{
		Offset: r.src.Offset() + int64(te.off),
		Line:   line,
		Column: col,
		Field:  r.arena.pending(),
		Err:    te.err,
	}
}

func (r *Reader[T]) decide(err error) Action {
	if r.opts.OnError == nil {
		return Abort
	}
	return r.opts.OnError(err)
}

func (r *Reader[T]) skipped(err error) {
	kind := errorKind(err)
	r.logger.Warn("lanecsv: skipping record", "kind", kind, "error", err)
	r.observer.RecordSkipped(kind)
}

func (r *Reader[T]) fault(err error) error {
	r.state = stateFaulted
	r.err = err
	kind := errorKind(err)
	r.logger.Error("lanecsv: reader faulted", "kind", kind, "error", err)
	r.observer.Fault(kind)
	return err
}

func (r *Reader[T]) grown(size int) {
	r.logger.Debug("lanecsv: window grown", "tokens", size)
	r.observer.BufferGrown(size)
}

// Read parses the next record and returns its fields as strings, which may
// reuse internal storage when ReuseRecord is true. io.EOF signals that no more
// records remain. A width mismatch returns the record with a *FieldCountError.
func (r *Reader[T]) Read() (record []string, err error) {
	rec, err := r.ReadRecord()
	if err != nil && !errors.Is(err, ErrFieldCount) {
		return nil, err
	}
	record, berr := r.buildRecord(rec)
	if berr != nil {
		return nil, berr
	}
	return record, err
}

// ReadAll exhausts the reader, repeatedly calling Read to collect records until io.EOF
// and returning the accumulated records slice plus the first non-EOF error encountered.
func (r *Reader[T]) ReadAll() (records [][]string, err error) {
	for {
		record, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		if r.ReuseRecord {
			// reused fields are views of one buffer that the next Read overwrites
			owned := make([]string, len(record))
			for i, f := range record {
				owned[i] = strings.Clone(f)
			}
			record = owned
		}
		records = append(records, record)
	}
}

// buildRecord materialises the logical fields of rec, respecting ReuseRecord.
func (r *Reader[T]) buildRecord(rec Record[T]) ([]string, error) {
	n := rec.FieldCount()
	r.dataBuf = r.dataBuf[:0]
	r.bounds = r.bounds[:0]
	for i := 0; i < n; i++ {
		f, err := rec.Field(i)
		if err != nil {
			return nil, err
		}
		r.bounds = append(r.bounds, len(r.dataBuf))
		r.dataBuf = appendUTF8(r.dataBuf, f)
	}
	r.bounds = append(r.bounds, len(r.dataBuf))

	var recordStr string
	if r.ReuseRecord {
		// Zero-copy string construction so fields can share a single backing buffer.
		recordStr = unsafeString(r.dataBuf)
		if cap(r.record) < n {
			r.record = make([]string, n)
		}
		r.record = r.record[:n]
	} else {
		r.record = make([]string, n)
		if r.interner != nil {
			for i := range r.record {
				r.record[i] = r.interner.Intern(r.dataBuf[r.bounds[i]:r.bounds[i+1]])
			}
			return r.record, nil
		}
		recordStr = string(r.dataBuf)
	}
	for i := range r.record {
		r.record[i] = recordStr[r.bounds[i]:r.bounds[i+1]]
	}
	return r.record, nil
}

// Header returns the column names captured with Options.HasHeader.
func (r *Reader[T]) Header() []string {
	return r.header
}

// FieldIndex returns the position of a header column, or -1.
func (r *Reader[T]) FieldIndex(name string) int {
	if i, ok := r.headerIdx[name]; ok {
		return i
	}
	return -1
}

// Newline returns the configured newline mode, or the kind of the first
// newline seen when the mode is NewlineAuto. It stays NewlineAuto until one is found.
func (r *Reader[T]) Newline() Newline {
	return r.tok.detected
}

// Dialect returns the resolved dialect the reader was built with.
func (r *Reader[T]) Dialect() Dialect {
	return r.opts.Dialect
}

// Line returns the line on which the next record starts.
func (r *Reader[T]) Line() int {
	return r.line
}

// Close releases pooled buffers. The reader returns io.EOF afterwards.
func (r *Reader[T]) Close() error {
	if r == nil || r.src == nil {
		return nil
	}
	r.arena.release()
	returnTokens(r.opts.Pool, r.scratch)
	r.scratch = nil
	r.window = nil
	err := r.src.Close()
	r.src = nil
	r.state = stateDone
	return err
}
