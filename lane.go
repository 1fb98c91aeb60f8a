package lanecsv

import (
	"fmt"
	"math/bits"
	"runtime"

	"golang.org/x/sys/cpu"
)

// Lane selects how a 64-token block is turned into bitmasks.
type Lane uint8

const (
	// LaneAuto picks the widest lane the CPU handles well.
	LaneAuto Lane = iota
	// LaneScalar compares one token at a time.
	LaneScalar
	// LaneSWAR compares eight bytes per 64-bit word. It applies to byte tokens only.
	LaneSWAR
)

func (l Lane) String() string {
	switch l {
	case LaneAuto:
		return "auto"
	case LaneScalar:
		return "scalar"
	case LaneSWAR:
		return "swar"
	}
	return fmt.Sprintf("Lane(%d)", l)
}

// DetectLane reports the lane LaneAuto resolves to on this machine.
func DetectLane() Lane {
	if bits.UintSize != 64 {
		return LaneScalar
	}
	switch runtime.GOARCH {
	case "amd64":
		if cpu.X86.HasPOPCNT {
			return LaneSWAR
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			return LaneSWAR
		}
	case "ppc64le", "s390x", "riscv64", "loong64":
		return LaneSWAR
	}
	return LaneScalar
}

// blockMasks holds one bit per token of a block for each structural class.
type blockMasks struct {
	quote uint64
	delim uint64
	cr    uint64
	lf    uint64
	esc   uint64
}

// laneScanner produces block masks for a dialect.
type laneScanner[T Token] struct {
	quote, delim, esc T
	unix              bool
	swar              bool
	// broadcast words for the SWAR lane
	wq, wd, we uint64
}

func newLaneScanner[T Token](d Dialect, lane Lane) laneScanner[T] {
	d = d.resolved()
	s := laneScanner[T]{
		quote: T(d.Quote),
		delim: T(d.Delimiter),
		esc:   T(d.Escape),
		unix:  d.Escape != d.Quote,
		wq:    broadcast(d.Quote),
		wd:    broadcast(d.Delimiter),
		we:    broadcast(d.Escape),
	}
	if lane == LaneAuto {
		lane = DetectLane()
	}
	var zero T
	if _, isByte := any(zero).(byte); isByte && lane == LaneSWAR {
		s.swar = true
	}
	return s
}

// masks scans blk, which holds at most 64 tokens.
func (s *laneScanner[T]) masks(blk []T) blockMasks {
	if s.swar && len(blk) == 64 {
		b, _ := bytesView(blk)
		return scanSWAR(b, s.wq, s.wd, s.we, s.unix)
	}
	return scanScalar(blk, s.quote, s.delim, s.esc, s.unix)
}

// eq returns the positions in blk equal to c.
func (s *laneScanner[T]) eq(blk []T, c T) uint64 {
	if s.swar && len(blk) == 64 {
		b, _ := bytesView(blk)
		return eqSWAR(b, broadcast(byte(c)))
	}
	return eqScalar(blk, c)
}
