package blast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowOverlappingCopy(t *testing.T) {
	w := newWindow(16)
	w.put('a')
	w.put('b')

	n := w.copy(2, 7)
	assert.Equal(t, 7, n)
	assert.Equal(t, "ababababa", string(w.staged()))
}

func TestWindowCopyBoundedByCapacity(t *testing.T) {
	w := newWindow(8)
	for _, c := range []byte("abcdef") {
		w.put(c)
	}

	n := w.copy(1, 10)
	assert.Equal(t, 2, n)
	assert.True(t, w.full())
	assert.Equal(t, "abcdefff", string(w.staged()))
}

func TestWindowCopyWrapsIntoPreviousFill(t *testing.T) {
	w := newWindow(8)
	for _, c := range []byte("01234567") {
		w.put(c)
	}

	p := make([]byte, 8)
	assert.Equal(t, 8, w.read(p))
	assert.True(t, w.empty())
	w.reset()

	w.put('8')

	// 4 back from "8" is "5"; the first step stops at the end of the
	// previous fill, the rest continues from the current one
	n := w.copy(4, 5)
	assert.Equal(t, 3, n)
	assert.Equal(t, "8567", string(w.staged()))

	n = w.copy(4, 2)
	assert.Equal(t, 2, n)
	assert.Equal(t, "856785", string(w.staged()))
}
