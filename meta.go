package lanecsv

// FieldMeta describes one field boundary packed into a single word:
//
//	bits  0-31  end offset of the field within the window
//	bits 32-57  special count: quotes (RFC 4180) or escapes (Unix)
//	bits 58-59  terminator length: 0 end of data, 1 delimiter or newline, 2 CRLF
//	bit  61     field starts with a quote
//	bit  62     field needs unescaping
//	bit  63     field ends the record
type FieldMeta uint64

const (
	metaEndMask     = 1<<32 - 1
	metaCountShift  = 32
	metaCountMask   = 1<<26 - 1
	metaTermShift   = 58
	metaQuotedBit   = FieldMeta(1) << 61
	metaUnescapeBit = FieldMeta(1) << 62
	metaEOLBit      = FieldMeta(1) << 63

	// maxWindowTokens is the largest window whose offsets fit in a FieldMeta.
	maxWindowTokens = 1 << 31
)

func newFieldMeta(end int, count uint32, term int, quoted, unescape, eol bool) FieldMeta {
	if count > metaCountMask {
		count = metaCountMask
	}
	m := FieldMeta(uint32(end)) | FieldMeta(count)<<metaCountShift | FieldMeta(term&3)<<metaTermShift
	if quoted {
		m |= metaQuotedBit
	}
	if unescape {
		m |= metaUnescapeBit
	}
	if eol {
		m |= metaEOLBit
	}
	return m
}

// End returns the offset just past the field's last token.
func (m FieldMeta) End() int { return int(m & metaEndMask) }

// Count returns the number of quotes (RFC 4180) or escapes (Unix) in the field.
func (m FieldMeta) Count() int { return int(m >> metaCountShift & metaCountMask) }

// TerminatorLen returns the length of the token run that ended the field.
func (m FieldMeta) TerminatorLen() int { return int(m >> metaTermShift & 3) }

// NextStart returns the offset where the following field begins.
func (m FieldMeta) NextStart() int { return m.End() + m.TerminatorLen() }

// IsQuoted reports whether the field's first significant token is a quote.
func (m FieldMeta) IsQuoted() bool { return m&metaQuotedBit != 0 }

// NeedsUnescape reports whether the raw field differs from its logical value.
func (m FieldMeta) NeedsUnescape() bool { return m&metaUnescapeBit != 0 }

// IsEOL reports whether the field is the last one of its record.
func (m FieldMeta) IsEOL() bool { return m&metaEOLBit != 0 }

// shift moves the end offset back by n tokens.
func (m FieldMeta) shift(n int) FieldMeta {
	return m&^metaEndMask | FieldMeta(uint32(m.End()-n))
}

// metaArena is the flat list of field boundaries for the current window.
// Records are runs of metas ending with an EOL entry.
type metaArena struct {
	metas []FieldMeta
	pool  *BufferPool
	// head is the first meta not yet handed out.
	head int
	// scan is where the search for the next EOL resumes.
	scan int
	// start is the window offset of the field described by metas[head].
	start int
}

func newMetaArena(pool *BufferPool, size int) metaArena {
	return metaArena{metas: pool.rentMetas(size)[:0], pool: pool}
}

func (a *metaArena) push(m FieldMeta) {
	if len(a.metas) == cap(a.metas) {
		grown := a.pool.rentMetas(2 * cap(a.metas))[:len(a.metas)]
		copy(grown, a.metas)
		a.pool.returnMetas(a.metas)
		a.metas = grown
	}
	a.metas = append(a.metas, m)
}

// pop returns the next complete record and its start offset.
func (a *metaArena) pop() (start int, metas []FieldMeta, ok bool) {
	for ; a.scan < len(a.metas); a.scan++ {
		if !a.metas[a.scan].IsEOL() {
			continue
		}
		metas = a.metas[a.head : a.scan+1]
		start = a.start
		a.start = a.metas[a.scan].NextStart()
		a.scan++
		a.head = a.scan
		return start, metas, true
	}
	return 0, nil, false
}

// pending returns the number of fields of the incomplete record.
func (a *metaArena) pending() int { return len(a.metas) - a.head }

// dropPending discards the fields of the incomplete record.
func (a *metaArena) dropPending() {
	a.metas = a.metas[:a.head]
	a.scan = a.head
}

// restart drops the pending fields and moves the next record start to off.
func (a *metaArena) restart(off int) {
	a.dropPending()
	a.start = off
}

// shift compacts unconsumed metas to the front and rebases them after the
// window dropped its first n tokens.
func (a *metaArena) shift(n int) {
	rest := a.metas[a.head:]
	for i, m := range rest {
		a.metas[i] = m.shift(n)
	}
	a.metas = a.metas[:len(rest)]
	a.scan -= a.head
	a.head = 0
	a.start -= n
	if a.start < 0 {
		a.start = 0
	}
}

func (a *metaArena) release() {
	if a.metas != nil {
		a.pool.returnMetas(a.metas)
		a.metas = nil
	}
	a.head, a.scan, a.start = 0, 0, 0
}
