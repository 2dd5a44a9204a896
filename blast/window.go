package blast

// window is both the sliding dictionary and the staging buffer handed to
// the consumer. It is only reset once fully drained, and the bytes of the
// previous fill stay in place past the write position, so a back-reference
// longer than the current fill wraps to the tail of the buffer.
type window struct {
	buf []byte
	n   int // write position: bytes staged in this fill
	pos int // consume position
}

func newWindow(size int) *window {
	return &window{buf: make([]byte, size)}
}

func (w *window) full() bool {
	return w.n == len(w.buf)
}

func (w *window) empty() bool {
	return w.pos == w.n
}

func (w *window) buffered() int {
	return w.n - w.pos
}

func (w *window) reset() {
	w.n, w.pos = 0, 0
}

func (w *window) put(b byte) {
	w.buf[w.n] = b
	w.n++
}

// copy appends up to length bytes starting dist bytes back and returns the
// number copied. The count is bounded by the room left in the buffer and,
// for wrapped references, by the end of the previous fill. Bytes go one at
// a time: a distance shorter than the length repeats the last dist bytes.
func (w *window) copy(dist, length int) int {
	from := w.n - dist
	n := len(w.buf)
	if w.n < dist {
		from += n
		n = dist
	}

	n -= w.n
	if n > length {
		n = length
	}

	for i := 0; i < n; i++ {
		w.buf[w.n] = w.buf[from]
		w.n++
		from++
	}

	return n
}

func (w *window) read(p []byte) int {
	n := copy(p, w.buf[w.pos:w.n])
	w.pos += n

	return n
}

// staged returns the undelivered bytes without consuming them.
func (w *window) staged() []byte {
	return w.buf[w.pos:w.n]
}
