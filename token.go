package lanecsv

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"
	"unsafe"
)

// Token is the unit the reader scans: UTF-8 bytes or UTF-16 code units.
type Token interface {
	byte | uint16
}

// tokensToString copies s into a new string, decoding UTF-16 when needed.
func tokensToString[T Token](s []T) string {
	if len(s) == 0 {
		return ""
	}
	switch v := any(s).(type) {
	case []byte:
		return string(v)
	case []uint16:
		return string(utf16.Decode(v))
	}
	return ""
}

// appendUTF8 appends s to dst as UTF-8.
func appendUTF8[T Token](dst []byte, s []T) []byte {
	switch v := any(s).(type) {
	case []byte:
		return append(dst, v...)
	case []uint16:
		for i := 0; i < len(v); i++ {
			r := rune(v[i])
			if utf16.IsSurrogate(r) && i+1 < len(v) {
				if dec := utf16.DecodeRune(r, rune(v[i+1])); dec != utf8.RuneError {
					r = dec
					i++
				}
			}
			dst = utf8.AppendRune(dst, r)
		}
	}
	return dst
}

// bytesView returns s as a []byte without copying when T is byte.
func bytesView[T Token](s []T) ([]byte, bool) {
	b, ok := any(s).([]byte)
	return b, ok
}

// unsafeString aliases b as a string. b must not be modified while the string is live.
func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// countToken reports how many times c occurs in s.
func countToken[T Token](s []T, c T) int {
	if b, ok := bytesView(s); ok {
		return bytes.Count(b, []byte{byte(c)})
	}
	n := 0
	for _, v := range s {
		if v == c {
			n++
		}
	}
	return n
}

func isSpace[T Token](c T) bool {
	return c == ' '
}
