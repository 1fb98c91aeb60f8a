package lanecsv

func scanScalar[T Token](blk []T, quote, delim, esc T, unix bool) (m blockMasks) {
	for i, c := range blk {
		bit := uint64(1) << uint(i)
		switch {
		case c == quote:
			m.quote |= bit
		case c == delim:
			m.delim |= bit
		case c == '\n':
			m.lf |= bit
		case c == '\r':
			m.cr |= bit
		case unix && c == esc:
			m.esc |= bit
		}
	}
	return m
}

func eqScalar[T Token](blk []T, c T) uint64 {
	var m uint64
	for i, v := range blk {
		if v == c {
			m |= 1 << uint(i)
		}
	}
	return m
}
