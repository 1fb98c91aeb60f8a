package lanecsv

import "math/bits"

// unescaper turns raw field spans into logical values.
type unescaper[T Token] struct {
	scan     laneScanner[T]
	quote    T
	esc      T
	unix     bool
	lazy     bool
	trimLead bool
	trimTail bool
}

func newUnescaper[T Token](d Dialect, lane Lane) unescaper[T] {
	d = d.resolved()
	return unescaper[T]{
		scan:     newLaneScanner[T](d, lane),
		quote:    T(d.Quote),
		esc:      T(d.Escape),
		unix:     d.Escape != d.Quote,
		lazy:     d.LazyQuotes,
		trimLead: d.Trimming&TrimLeading != 0,
		trimTail: d.Trimming&TrimTrailing != 0,
	}
}

// trim strips the configured ASCII spaces from the edges of s.
func (u *unescaper[T]) trim(s []T) []T {
	if u.trimLead {
		for len(s) > 0 && isSpace(s[0]) {
			s = s[1:]
		}
	}
	if u.trimTail {
		for len(s) > 0 && isSpace(s[len(s)-1]) {
			if u.unix && u.escapedRun(s[:len(s)-1]) {
				break
			}
			s = s[:len(s)-1]
		}
	}
	return s
}

// escapedRun reports whether s ends in an odd run of escape tokens, which
// escapes whatever follows s.
func (u *unescaper[T]) escapedRun(s []T) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == u.esc; i-- {
		n++
	}
	return n%2 == 1
}

// body strips the wrapping quotes of a quoted field.
func (u *unescaper[T]) body(raw []T, m FieldMeta) ([]T, error) {
	if !m.IsQuoted() {
		return raw, nil
	}
	if len(raw) < 2 || raw[0] != u.quote || raw[len(raw)-1] != u.quote {
		return nil, ErrUnreachable
	}
	return raw[1 : len(raw)-1], nil
}

// needsCopy reports whether the body of a field differs from its logical value.
func (u *unescaper[T]) needsCopy(m FieldMeta) bool {
	if u.unix {
		return m.Count() > 0
	}
	return m.IsQuoted() && m.Count() > 2
}

// unescape appends the logical value of body to dst. The count of special
// tokens found must agree with the field metadata.
func (u *unescaper[T]) unescape(dst, body []T, m FieldMeta) ([]T, error) {
	if u.unix {
		return u.unescapeEscapes(dst, body, m.Count())
	}
	return u.unescapeQuotes(dst, body, m.Count()-2)
}

// unescapeQuotes collapses doubled quotes. Lone quotes are kept in lazy mode.
func (u *unescaper[T]) unescapeQuotes(dst, src []T, want int) ([]T, error) {
	seen, run := 0, 0
	for base := 0; base < len(src); base += 64 {
		blk := src[base:min(base+64, len(src))]
		for m := u.scan.eq(blk, u.quote); m != 0; m &= m - 1 {
			p := base + bits.TrailingZeros64(m)
			if p < run {
				continue
			}
			dst = append(dst, src[run:p]...)
			switch {
			case p+1 < len(src) && src[p+1] == u.quote:
				dst = append(dst, u.quote)
				run = p + 2
				seen += 2
			case u.lazy:
				dst = append(dst, u.quote)
				run = p + 1
				seen++
			default:
				return dst, ErrUnreachable
			}
		}
	}
	dst = append(dst, src[run:]...)
	if seen != want {
		return dst, ErrUnreachable
	}
	return dst, nil
}

// unescapeEscapes drops each escape token and keeps the token after it.
func (u *unescaper[T]) unescapeEscapes(dst, src []T, want int) ([]T, error) {
	seen, run := 0, 0
	for base := 0; base < len(src); base += 64 {
		blk := src[base:min(base+64, len(src))]
		for m := u.scan.eq(blk, u.esc); m != 0; m &= m - 1 {
			p := base + bits.TrailingZeros64(m)
			if p < run {
				continue
			}
			if p+1 >= len(src) {
				return dst, ErrUnreachable
			}
			dst = append(dst, src[run:p]...)
			dst = append(dst, src[p+1])
			run = p + 2
			seen++
		}
	}
	dst = append(dst, src[run:]...)
	if seen != want {
		return dst, ErrUnreachable
	}
	return dst, nil
}
