package lanecsv

import (
	"context"
	"errors"
	"io"
)

// errBufferFull is returned by a Source whose window cannot grow any further.
var errBufferFull = errors.New("lanecsv: buffer full")

// Source supplies windows of tokens to a Reader.
//
// Read returns every token not yet retired by Advance followed by newly read
// data; final reports that the stream is exhausted and the window holds all
// remaining tokens. A window stays valid until the next Read.
type Source[T Token] interface {
	Read(ctx context.Context) (window []T, final bool, err error)
	// Advance retires the first n tokens of the last window.
	Advance(n int)
	// Offset returns the absolute stream offset of the window's first token.
	Offset() int64
	Close() error
}

// ChunkReader reads tokens of a stream into dst, like io.Reader does for bytes.
type ChunkReader[T Token] interface {
	ReadChunk(dst []T) (int, error)
}

type byteChunks struct {
	r io.Reader
}

func (c byteChunks) ReadChunk(dst []byte) (int, error) {
	return c.r.Read(dst)
}

// streamSource buffers a ChunkReader, growing its window by doubling until
// a record fits or the maximum size is reached.
type streamSource[T Token] struct {
	src  ChunkReader[T]
	pool *BufferPool
	buf  []T

	start, end int
	base       int64
	max        int

	eof        bool
	err        error
	skipBOM    bool
	checkedBOM bool
	onGrow     func(size int)
}

func newStreamSource[T Token](src ChunkReader[T], opts Options) *streamSource[T] {
	buf := rentTokens[T](opts.Pool, opts.BufferSize)
	return &streamSource[T]{
		src:        src,
		pool:       opts.Pool,
		buf:        buf[:cap(buf)],
		max:        opts.MaxBufferSize,
		skipBOM:    opts.SkipBOM,
		checkedBOM: !opts.SkipBOM,
	}
}

func (s *streamSource[T]) Read(ctx context.Context) ([]T, bool, error) {
	if s.buf == nil {
		return nil, true, nil
	}
	if s.eof {
		return s.buf[s.start:s.end], true, nil
	}
	if s.err != nil {
		err := s.err
		s.err = nil
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := s.makeRoom(); err != nil {
		return nil, false, err
	}

	for empty := 0; ; {
		n, err := s.src.ReadChunk(s.buf[s.end:])
		s.end += n
		switch {
		case errors.Is(err, io.EOF):
			s.eof = true
			s.stripBOM()
			return s.buf[s.start:s.end], true, nil
		case err != nil:
			if n == 0 {
				return nil, false, err
			}
			// hand out what arrived; report the error on the next call
			s.err = err
		case n == 0:
			if empty++; empty >= maxEmptyReads {
				return nil, false, io.ErrNoProgress
			}
			continue
		}
		if !s.stripBOM() && s.err == nil {
			if err := s.makeRoom(); err != nil {
				return nil, false, err
			}
			continue
		}
		return s.buf[s.start:s.end], false, nil
	}
}

// makeRoom compacts unread tokens to the front and grows the buffer when the
// free tail is smaller than a useful read.
func (s *streamSource[T]) makeRoom() error {
	minRead := len(s.buf) / 4
	if len(s.buf)-s.end >= minRead && s.end < len(s.buf) {
		return nil
	}
	if s.start > 0 {
		n := copy(s.buf, s.buf[s.start:s.end])
		s.base += int64(s.start)
		s.start, s.end = 0, n
		if len(s.buf)-s.end >= minRead {
			return nil
		}
	}
	size := 2 * len(s.buf)
	if size > s.max {
		size = s.max
	}
	if size <= len(s.buf) {
		if s.end < len(s.buf) {
			return nil
		}
		return errBufferFull
	}
	grown := rentTokens[T](s.pool, size)
	grown = grown[:cap(grown)]
	n := copy(grown, s.buf[s.start:s.end])
	returnTokens(s.pool, s.buf)
	s.base += int64(s.start)
	s.buf, s.start, s.end = grown, 0, n
	if s.onGrow != nil {
		s.onGrow(len(grown))
	}
	return nil
}

// stripBOM drops a leading byte order mark once enough tokens are buffered to
// decide. It reports whether the decision has been made.
func (s *streamSource[T]) stripBOM() bool {
	if s.checkedBOM {
		return true
	}
	n, decided := bomLen(s.buf[s.start:s.end], s.eof)
	if !decided {
		return false
	}
	s.checkedBOM = true
	s.start += n
	return true
}

func (s *streamSource[T]) Advance(n int) {
	s.start += n
	if s.start > s.end {
		s.start = s.end
	}
}

func (s *streamSource[T]) Offset() int64 {
	return s.base + int64(s.start)
}

func (s *streamSource[T]) Close() error {
	if s.buf != nil {
		returnTokens(s.pool, s.buf)
		s.buf = nil
	}
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// memorySource serves a complete in-memory input without copying it.
type memorySource[T Token] struct {
	data  []T
	start int
}

func newMemorySource[T Token](data []T, skipBOM bool) *memorySource[T] {
	s := &memorySource[T]{data: data}
	if skipBOM {
		s.start, _ = bomLen(data, true)
	}
	return s
}

func (s *memorySource[T]) Read(ctx context.Context) ([]T, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return s.data[s.start:], true, nil
}

func (s *memorySource[T]) Advance(n int) {
	s.start = min(s.start+n, len(s.data))
}

func (s *memorySource[T]) Offset() int64 {
	return int64(s.start)
}

func (s *memorySource[T]) Close() error {
	s.data = nil
	s.start = 0
	return nil
}

// bomLen reports the length of a byte order mark at the start of w. decided
// is false while w is a strict prefix of a BOM and more input may follow.
func bomLen[T Token](w []T, eof bool) (n int, decided bool) {
	switch v := any(w).(type) {
	case []byte:
		bom := [3]byte{0xEF, 0xBB, 0xBF}
		for i := range bom {
			if i == len(v) {
				return 0, eof
			}
			if v[i] != bom[i] {
				return 0, true
			}
		}
		return len(bom), true
	case []uint16:
		if len(v) == 0 {
			return 0, eof
		}
		if v[0] == 0xFEFF {
			return 1, true
		}
	}
	return 0, true
}
