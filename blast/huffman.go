package blast

import "fmt"

const maxCodeLen = 13 // maximum code length

// huffman holds canonical decoding tables. count[1..maxCodeLen] is the
// number of symbols of each length; symbol holds the symbols in canonical
// order (by length, then by original index).
type huffman struct {
	count  [maxCodeLen + 1]int16
	symbol []int16
}

// construct expands rep, where each byte packs a repeat count (high four
// bits + 1) and a code length (low four bits), and builds h from the result.
//
// The return value is zero for a complete code, negative for an
// over-subscribed code and positive for an incomplete code. A complete code
// always resolves to a symbol; an incomplete one may fail in decode for codes
// past the end of the lengths. Over-subscribed tables must not be used.
func construct(h *huffman, rep []byte) int {
	var length []int16 // code length of each symbol

	for _, r := range rep {
		n := int(r>>4) + 1
		l := int16(r & 15)
		for ; n > 0; n-- {
			length = append(length, l)
		}
	}

	h.symbol = make([]int16, len(length))
	for l := range h.count {
		h.count[l] = 0
	}

	for _, l := range length {
		h.count[l]++
	}

	// no codes: complete, but decode will fail
	if int(h.count[0]) == len(length) {
		return 0
	}

	left := 1 // one possible code of zero length
	for l := 1; l <= maxCodeLen; l++ {
		left <<= 1
		left -= int(h.count[l])
		if left < 0 {
			return left
		}
	}

	var offs [maxCodeLen + 1]int16
	for l := 1; l < maxCodeLen; l++ {
		offs[l+1] = offs[l] + h.count[l]
	}

	for sym, l := range length {
		if l != 0 {
			h.symbol[offs[l]] = int16(sym)
			offs[l]++
		}
	}

	return left
}

// mustHuffman builds one of the fixed tables. The fixed tables are part of
// the format, so an over-subscribed one is a programming error.
func mustHuffman(rep []byte) *huffman {
	h := &huffman{}
	if status := construct(h, rep); status < 0 {
		panic(fmt.Sprintf("blast: over-subscribed fixed code table (status %d)", status))
	}

	return h
}
