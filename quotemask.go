package lanecsv

import "math/bits"

// prefixXOR returns a mask whose bit i is the XOR of bits 0..i of m. Applied to
// a quote mask it marks every token that lies after an odd number of quotes.
func prefixXOR(m uint64) uint64 {
	m ^= m << 1
	m ^= m << 2
	m ^= m << 4
	m ^= m << 8
	m ^= m << 16
	m ^= m << 32
	return m
}

// clmulPrefixXOR computes the same mask as prefixXOR as the low half of a
// carry-less multiplication of m by all ones. It costs one step per set bit.
func clmulPrefixXOR(m uint64) uint64 {
	var r uint64
	for m != 0 {
		r ^= ^uint64(0) << uint(bits.TrailingZeros64(m))
		m &= m - 1
	}
	return r
}

// quoteMask returns the tokens inside quotes for a block whose quote bits are q,
// given whether the block starts inside a quoted region. Opening quotes are
// inside the mask, closing quotes are not.
func quoteMask(q uint64, inside bool) uint64 {
	var m uint64
	if bits.OnesCount64(q) <= 4 {
		m = clmulPrefixXOR(q)
	} else {
		m = prefixXOR(q)
	}
	if inside {
		m = ^m
	}
	return m
}

// escapedMask returns the positions of a block of n tokens that follow an
// unescaped escape token. carry reports that position 0 is escaped by the
// previous block; carryOut reports the same for the block that follows.
func escapedMask(esc uint64, carry bool, n int) (escaped uint64, carryOut bool) {
	if carry {
		escaped = 1
	}
	for e := esc; e != 0; e &= e - 1 {
		p := bits.TrailingZeros64(e)
		bit := uint64(1) << uint(p)
		if escaped&bit != 0 {
			continue
		}
		if p == n-1 {
			carryOut = true
			continue
		}
		escaped |= bit << 1
	}
	return escaped, carryOut
}

// lowBits returns a mask of the n lowest bits.
func lowBits(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(n) - 1
}

// throughBit returns a mask of bits 0..b inclusive.
func throughBit(b int) uint64 {
	return ^uint64(0) >> uint(63-b)
}
