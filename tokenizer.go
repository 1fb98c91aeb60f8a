package lanecsv

import "math/bits"

// noOffset marks an unset window offset. It survives shifting without ever
// matching a real position.
const noOffset = -1 << 40

// tokenError is a structural error at a window offset.
type tokenError struct {
	off int
	err error
}

// tokenizer turns windows into FieldMeta entries. It never looks behind pos,
// so it can resume on a longer window of the same stream after any split;
// everything it needs from earlier tokens is carried in its fields.
type tokenizer[T Token] struct {
	scan     laneScanner[T]
	quote    T
	delim    T
	nl       T // sole newline token when !multi
	multi    bool
	unix     bool
	lazy     bool
	trimLead bool
	trimTail bool

	pos        int
	fieldStart int
	quotes     uint32 // quotes of the current field before pos
	escapes    uint32 // effective escapes of the current field before pos
	inQuote    bool
	escCarry   bool // token at pos is escaped
	skipLF     bool // token at pos is the LF of a CRLF already emitted
	closeCheck bool // the quote at closeAt still needs a valid successor
	closeAt    int
	openAt     int
	lastClose  int
	recordOpen bool

	detected Newline
	sawEOL   bool

	seek    bool // skipping to the next raw newline after an error
	discard bool // dropping fields until the next record
	done    bool
}

func newTokenizer[T Token](d Dialect, lane Lane) tokenizer[T] {
	d = d.resolved()
	t := tokenizer[T]{
		scan:      newLaneScanner[T](d, lane),
		quote:     T(d.Quote),
		delim:     T(d.Delimiter),
		multi:     d.Newline.multi(),
		unix:      d.Escape != d.Quote,
		lazy:      d.LazyQuotes,
		trimLead:  d.Trimming&TrimLeading != 0,
		trimTail:  d.Trimming&TrimTrailing != 0,
		closeAt:   noOffset,
		openAt:    noOffset,
		lastClose: noOffset,
		detected:  d.Newline,
	}
	switch d.Newline {
	case NewlineLF:
		t.nl = '\n'
	case NewlineCR:
		t.nl = '\r'
	}
	return t
}

// tokenize scans data from the resume position and appends field boundaries
// to out. final reports that no more data will follow. Boundaries found
// before a structural error are still appended.
func (t *tokenizer[T]) tokenize(data []T, final bool, out *metaArena) *tokenError {
	if t.done {
		return nil
	}
	limit := len(data)
	if !final && t.multi && limit > t.pos && data[limit-1] == '\r' {
		// a trailing CR may be the first half of a CRLF
		limit--
	}
	for t.pos < limit {
		if t.seek {
			if !t.seekNewline(data, limit, out) {
				break
			}
			continue
		}
		if t.closeCheck {
			if err := t.resolveClose(data, final); err != nil {
				return err
			}
			if t.pos >= limit {
				break
			}
		}
		if err := t.block(data, min(64, limit-t.pos), final, out); err != nil {
			return err
		}
	}
	if !final {
		return nil
	}
	return t.finish(data, out)
}

func (t *tokenizer[T]) finish(data []T, out *metaArena) *tokenError {
	end := len(data)
	switch {
	case t.seek:
		t.done = true
		out.restart(end)
		return nil
	case t.inQuote:
		return &tokenError{off: t.openAt, err: ErrUnterminatedQuote}
	case t.escCarry:
		return &tokenError{off: end - 1, err: ErrTrailingEscape}
	}
	t.closeCheck = false
	if t.fieldStart < end || t.recordOpen {
		t.emit(data, out, end, 0, true, t.quotes, t.escapes)
		t.quotes, t.escapes = 0, 0
	}
	t.done = true
	return nil
}

// block scans n tokens at pos.
func (t *tokenizer[T]) block(data []T, n int, final bool, out *metaArena) *tokenError {
	pos := t.pos
	m := t.scan.masks(data[pos : pos+n])
	valid := lowBits(n)
	lastBit := uint64(1) << uint(n-1)

	escCarryOut := false
	if t.unix {
		var escaped uint64
		escaped, escCarryOut = escapedMask(m.esc, t.escCarry, n)
		m.esc &^= escaped
		m.quote &^= escaped
		m.delim &^= escaped
		m.cr &^= escaped
		m.lf &^= escaped
	}

	var nl, pairs, terms uint64
	if t.multi {
		if t.skipLF {
			m.lf &^= 1
		}
		pairs = m.cr & (m.lf >> 1)
		if m.cr&lastBit != 0 && pos+n < len(data) && data[pos+n] == '\n' {
			pairs |= lastBit
		}
		nl = (m.cr | m.lf) &^ (pairs << 1)
		terms = m.delim | m.cr | m.lf
	} else {
		if t.nl == '\n' {
			nl = m.lf
		} else {
			nl = m.cr
		}
		terms = m.delim | nl
	}

	q := m.quote
	inside := quoteMask(q, t.inQuote) & valid
	delim := m.delim &^ inside
	nl &^= inside
	pairs &^= inside

	cut := n
	restart := -1
	restartInside := false
	pendingClose := false
	var fault *tokenError
	if q != 0 {
		open := q & inside
		closing := q &^ inside & valid
		starts := delim<<1 | (nl&^pairs)<<1 | pairs<<2
		if fs := t.fieldStart - pos; fs >= 0 && fs < 64 {
			starts |= 1 << uint(fs)
		}
		allowed := starts
		follow := terms >> 1
		if !t.unix {
			allowed |= closing << 1
			if t.lastClose == pos-1 {
				allowed |= 1
			}
			follow |= q >> 1
		}
		badOpen := open &^ allowed
		badClose := closing &^ follow &^ lastBit
		if closing&lastBit != 0 {
			switch next := pos + n; {
			case next < len(data):
				if !t.follows(data[next]) {
					badClose |= lastBit
				}
			case !final:
				pendingClose = true
				t.closeAt = pos + n - 1
			}
		}
		if badOpen != 0 && t.trimLead {
			badOpen = t.leadingSpaceOpens(data, pos, badOpen, starts)
		}
		if badClose != 0 && t.trimTail {
			var pend bool
			badClose, pend = t.trailingSpaceCloses(data, pos, badClose, final)
			pendingClose = pendingClose || pend
		}
		if bad := badOpen | badClose; bad != 0 {
			b := bits.TrailingZeros64(bad)
			cut = b
			isClose := badClose&(1<<uint(b)) != 0
			if t.lazy {
				restart, restartInside = b, isClose
			} else if isClose {
				fault = &tokenError{off: pos + b + 1, err: ErrQuote}
			} else {
				fault = &tokenError{off: pos + b, err: ErrBareQuote}
			}
		}
		region := lowBits(cut)
		// a quote right after a closing one reopens the same field
		reopen := closing << 1
		if t.lastClose == pos-1 {
			reopen |= 1
		}
		if c := closing & region; c != 0 {
			t.lastClose = pos + 63 - bits.LeadingZeros64(c)
		}
		if o := open &^ reopen & region; o != 0 {
			t.openAt = pos + 63 - bits.LeadingZeros64(o)
		}
	}

	esc := m.esc & valid
	structural := (delim | nl) & lowBits(cut)
	for s := structural; s != 0; s &= s - 1 {
		b := bits.TrailingZeros64(s)
		through := throughBit(b)
		fq := t.quotes + uint32(bits.OnesCount64(q&through))
		fe := t.escapes + uint32(bits.OnesCount64(esc&through))
		q &^= through
		esc &^= through
		t.quotes, t.escapes = 0, 0
		bit := uint64(1) << uint(b)
		term := 1
		if pairs&bit != 0 {
			term = 2
		}
		t.emit(data, out, pos+b, term, nl&bit != 0, fq, fe)
	}

	switch {
	case fault != nil:
		t.pos = pos + cut
		return fault
	case restart >= 0:
		through := throughBit(restart)
		t.quotes += uint32(bits.OnesCount64(q & through))
		t.escapes += uint32(bits.OnesCount64(esc & through))
		t.pos = pos + restart + 1
		t.inQuote = restartInside
		t.escCarry = false
		t.skipLF = false
		t.closeCheck = false
		t.lastClose = noOffset
		return nil
	}
	t.quotes += uint32(bits.OnesCount64(q))
	t.escapes += uint32(bits.OnesCount64(esc))
	t.inQuote = inside&lastBit != 0
	t.escCarry = escCarryOut
	t.skipLF = pairs&lastBit != 0
	t.closeCheck = pendingClose
	t.pos = pos + n
	return nil
}

// emit appends the boundary of the field that ends at end.
func (t *tokenizer[T]) emit(data []T, out *metaArena, end, term int, eol bool, quotes, escapes uint32) {
	start := t.fieldStart
	t.fieldStart = end + term
	if t.discard {
		if eol {
			t.discard = false
			t.recordOpen = false
			out.restart(t.fieldStart)
		}
		return
	}
	count, unescape := quotes, quotes > 0
	if t.unix {
		count, unescape = escapes, escapes > 0 || quotes > 0
	}
	quoted := quotes > 0 && t.startsWithQuote(data, start, end)
	out.push(newFieldMeta(end, count, term, quoted, unescape, eol))
	t.recordOpen = !eol
	if eol && term > 0 && !t.sawEOL {
		t.sawEOL = true
		if t.multi {
			switch {
			case term == 2:
				t.detected = NewlineCRLF
			case data[end] == '\n':
				t.detected = NewlineLF
			default:
				t.detected = NewlineCR
			}
		}
	}
}

func (t *tokenizer[T]) startsWithQuote(data []T, start, end int) bool {
	if start < 0 {
		return false
	}
	i := start
	if t.trimLead {
		for i < end && isSpace(data[i]) {
			i++
		}
	}
	return i < end && data[i] == t.quote
}

// follows reports whether c may come right after a closing quote.
func (t *tokenizer[T]) follows(c T) bool {
	switch {
	case c == t.delim:
		return true
	case !t.unix && c == t.quote:
		return true
	case t.multi:
		return c == '\r' || c == '\n'
	}
	return c == t.nl
}

// leadingSpaceOpens clears the opening quotes in bad that only have spaces
// between them and their field start.
func (t *tokenizer[T]) leadingSpaceOpens(data []T, pos int, bad, starts uint64) uint64 {
	for b := bad; b != 0; b &= b - 1 {
		p := bits.TrailingZeros64(b)
		fs := t.fieldStart
		if st := starts & throughBit(p); st != 0 {
			fs = pos + 63 - bits.LeadingZeros64(st)
		}
		if fs < 0 || fs > pos+p {
			continue
		}
		if allSpaces(data[fs : pos+p]) {
			bad &^= 1 << uint(p)
		}
	}
	return bad
}

// trailingSpaceCloses clears the closing quotes in bad that are followed by
// spaces and then a terminator. pending reports a space run that reached the
// end of a non-final window.
func (t *tokenizer[T]) trailingSpaceCloses(data []T, pos int, bad uint64, final bool) (uint64, bool) {
	pending := false
	for b := bad; b != 0; b &= b - 1 {
		p := bits.TrailingZeros64(b)
		i := pos + p + 1
		for i < len(data) && isSpace(data[i]) {
			i++
		}
		switch {
		case i == len(data):
			if !final {
				pending = true
				t.closeAt = pos + p
			}
		case !t.follows(data[i]):
			continue
		}
		bad &^= 1 << uint(p)
	}
	return bad, pending
}

// resolveClose validates the successor of a closing quote that ended the
// previous window.
func (t *tokenizer[T]) resolveClose(data []T, final bool) *tokenError {
	for i := t.pos; i < len(data); i++ {
		c := data[i]
		if t.trimTail && isSpace(c) {
			continue
		}
		t.closeCheck = false
		if t.follows(c) {
			return nil
		}
		if t.lazy {
			// the quote was literal; rescan after it, still inside
			t.pos = t.closeAt + 1
			t.inQuote = true
			t.escCarry = false
			t.skipLF = false
			t.lastClose = noOffset
			return nil
		}
		return &tokenError{off: t.closeAt + 1, err: ErrQuote}
	}
	if final {
		t.closeCheck = false
		return nil
	}
	// only spaces so far; consume them so the check survives the next window
	t.pos = len(data)
	return nil
}

// seekNewline skips to just past the next newline, ignoring quotes. It
// reports whether one was found before limit.
func (t *tokenizer[T]) seekNewline(data []T, limit int, out *metaArena) bool {
	for i := t.pos; i < limit; i++ {
		c := data[i]
		isNL := c == '\n' || c == '\r'
		if !t.multi {
			isNL = c == t.nl
		}
		if !isNL {
			continue
		}
		next := i + 1
		if t.multi && c == '\r' && next < len(data) && data[next] == '\n' {
			next++
		}
		t.reset(next)
		out.restart(next)
		return true
	}
	t.pos = limit
	return false
}

// resync drops the current record and resumes after the next newline at or
// after off.
func (t *tokenizer[T]) resync(off int) {
	t.reset(off)
	t.seek = true
}

// skipRecord keeps tracking quotes but drops fields until the record ends.
func (t *tokenizer[T]) skipRecord() {
	t.discard = true
}

func (t *tokenizer[T]) reset(pos int) {
	t.pos = pos
	t.fieldStart = pos
	t.quotes, t.escapes = 0, 0
	t.inQuote = false
	t.escCarry = false
	t.skipLF = false
	t.closeCheck = false
	t.closeAt = noOffset
	t.openAt = noOffset
	t.lastClose = noOffset
	t.recordOpen = false
	t.seek = false
	t.discard = false
}

// skipping reports whether scanned data up to pos can be released.
func (t *tokenizer[T]) skipping() bool {
	return t.seek || t.discard
}

// shift rebases every carried offset after the window dropped n tokens.
func (t *tokenizer[T]) shift(n int) {
	t.pos -= n
	t.fieldStart -= n
	t.closeAt -= n
	t.openAt -= n
	t.lastClose -= n
}

func allSpaces[T Token](s []T) bool {
	for _, c := range s {
		if !isSpace(c) {
			return false
		}
	}
	return true
}
