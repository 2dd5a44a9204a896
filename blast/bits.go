package blast

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// bitReader serves bit groups from a byte source. Bits are stored in bytes
// from the least significant bit to the most significant bit, so bits are
// dropped from the bottom of buf and new bytes are appended to the top.
type bitReader struct {
	r   io.ByteReader
	buf uint32 // bit buffer
	cnt uint   // number of bits in buf, always < 8 between calls
}

func newBitReader(r io.Reader) *bitReader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}

	return &bitReader{r: br}
}

func (br *bitReader) readByte() (uint32, error) {
	c, err := br.r.ReadByte()
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, ErrInputExhausted
		}

		return 0, errors.Wrap(err, "unable to read compressed input")
	}

	return uint32(c), nil
}

// bits returns the next need bits (need <= 16). bits(0) returns 0 without
// touching the source.
func (br *bitReader) bits(need uint) (uint32, error) {
	val := br.buf
	for br.cnt < need {
		c, err := br.readByte()
		if err != nil {
			return 0, err
		}

		val |= c << br.cnt
		br.cnt += 8
	}

	br.buf = val >> need
	br.cnt -= need

	return val & (1<<need - 1), nil
}

// decode reads one symbol of h. Codes are stored bit-reversed and inverted
// relative to the canonical ordering, so each bit is inverted and appended
// at the bottom of code, which then compares as a plain integer against the
// first code of each length.
func (br *bitReader) decode(h *huffman) (int, error) {
	code := 0  // bits being decoded
	first := 0 // first code of length l
	index := 0 // index of first code of length l in h.symbol

	for l := 1; l <= maxCodeLen; l++ {
		bit, err := br.bits(1)
		if err != nil {
			return 0, err
		}

		code |= int(bit ^ 1)
		count := int(h.count[l])
		if code < first+count {
			return int(h.symbol[index+(code-first)]), nil
		}

		index += count
		first += count
		first <<= 1
		code <<= 1
	}

	return 0, ErrCorrupt
}
