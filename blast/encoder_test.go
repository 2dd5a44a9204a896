package blast

import "github.com/dselans/undbc/internal/testutil"

func encode(data []byte, coded bool, dict uint) []byte {
	return testutil.Encode(data, coded, dict)
}

// prefixCodes maps each symbol of h to its canonical code and length.
type prefixCodes struct {
	code []uint32
	len  []uint
}

func newPrefixCodes(h *huffman) *prefixCodes {
	pc := &prefixCodes{
		code: make([]uint32, len(h.symbol)),
		len:  make([]uint, len(h.symbol)),
	}

	first, index := 0, 0
	for l := 1; l <= maxCodeLen; l++ {
		count := int(h.count[l])
		for k := 0; k < count; k++ {
			sym := h.symbol[index+k]
			pc.code[sym] = uint32(first + k)
			pc.len[sym] = uint(l)
		}

		index += count
		first = (first + count) << 1
	}

	return pc
}

// streamBits returns the code of sym as it appears in the stream, read
// LSB-first: most significant code bit first, inverted.
func (pc *prefixCodes) streamBits(sym int) (uint32, uint) {
	var v uint32

	l := pc.len[sym]
	for i := uint(0); i < l; i++ {
		bit := (pc.code[sym]>>(l-1-i))&1 ^ 1
		v |= bit << i
	}

	return v, l
}
