package lanecsv

import "github.com/zeebo/xxh3"

const (
	defaultInternSlots  = 1 << 12
	defaultInternMaxLen = 64
)

// Interner deduplicates short field strings through a direct-mapped table
// keyed by xxh3. A colliding value replaces the slot's previous string. It is
// not safe for concurrent use.
type Interner struct {
	slots  []string
	mask   uint64
	maxLen int

	hits, misses uint64
}

// NewInterner returns an interner with at least slots entries that caches
// values up to maxLen bytes. Non-positive arguments select defaults.
func NewInterner(slots, maxLen int) *Interner {
	if slots <= 0 {
		slots = defaultInternSlots
	}
	if maxLen <= 0 {
		maxLen = defaultInternMaxLen
	}
	size := 1
	for size < slots {
		size <<= 1
	}
	return &Interner{slots: make([]string, size), mask: uint64(size - 1), maxLen: maxLen}
}

// Intern returns a string equal to b, reusing an earlier allocation when the
// same value was seen recently.
func (in *Interner) Intern(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if len(b) > in.maxLen {
		in.misses++
		return string(b)
	}
	slot := &in.slots[xxh3.Hash(b)&in.mask]
	if *slot == string(b) {
		in.hits++
		return *slot
	}
	in.misses++
	*slot = string(b)
	return *slot
}

// Stats returns how many lookups were served from the table and how many allocated.
func (in *Interner) Stats() (hits, misses uint64) {
	return in.hits, in.misses
}
