package lanecsv

import "encoding/binary"

const (
	swarOnes   = 0x0101010101010101
	swarLow7   = 0x7f7f7f7f7f7f7f7f
	swarGather = 0x0002040810204081
	swarCR     = swarOnes * '\r'
	swarLF     = swarOnes * '\n'
)

// broadcast copies c into every byte of a word.
func broadcast(c byte) uint64 {
	return swarOnes * uint64(c)
}

// zeroBytes sets the high bit of each byte of x that is zero and clears
// everything else. The result is exact for every byte, not just the first.
func zeroBytes(x uint64) uint64 {
	y := (x & swarLow7) + swarLow7
	return ^(y | x | swarLow7)
}

// movemask packs the high bit of each byte into the low eight bits.
func movemask(x uint64) uint64 {
	return (x * swarGather) >> 56
}

func scanSWAR(blk []byte, wq, wd, we uint64, unix bool) (m blockMasks) {
	_ = blk[63]
	for w := 0; w < 8; w++ {
		v := binary.LittleEndian.Uint64(blk[w*8:])
		sh := uint(w * 8)
		m.quote |= movemask(zeroBytes(v^wq)) << sh
		m.delim |= movemask(zeroBytes(v^wd)) << sh
		m.cr |= movemask(zeroBytes(v^swarCR)) << sh
		m.lf |= movemask(zeroBytes(v^swarLF)) << sh
		if unix {
			m.esc |= movemask(zeroBytes(v^we)) << sh
		}
	}
	return m
}

func eqSWAR(blk []byte, wc uint64) uint64 {
	_ = blk[63]
	var m uint64
	for w := 0; w < 8; w++ {
		v := binary.LittleEndian.Uint64(blk[w*8:])
		m |= movemask(zeroBytes(v^wc)) << uint(w*8)
	}
	return m
}
