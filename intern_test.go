package lanecsv

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestInterner(t *testing.T) {
	t.Parallel()

	in := NewInterner(3, 4)
	assert.Len(t, in.slots, 4)

	a := in.Intern([]byte("abc"))
	b := in.Intern([]byte("abc"))
	assert.Equal(t, "abc", b)
	assert.Equal(t, unsafe.StringData(a), unsafe.StringData(b))
	assert.Equal(t, "", in.Intern(nil))
	assert.Equal(t, "toolong", in.Intern([]byte("toolong")))

	hits, misses := in.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestInternerDefaults(t *testing.T) {
	t.Parallel()

	in := NewInterner(0, 0)
	assert.Len(t, in.slots, defaultInternSlots)
	assert.Equal(t, defaultInternMaxLen, in.maxLen)

	// colliding or changed values replace the slot
	for _, s := range []string{"x", "y", "x"} {
		assert.Equal(t, s, in.Intern([]byte(s)))
	}
	hits, misses := in.Stats()
	assert.Equal(t, uint64(3), hits+misses)
}
