package blast

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dselans/undbc/internal/testutil"
)

func TestFixedTablesComplete(t *testing.T) {
	tests := []struct {
		name    string
		rep     []byte
		symbols int
	}{
		{"literal", litLengths, 256},
		{"length", lenLengths, 16},
		{"distance", distLengths, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &huffman{}
			assert.Equal(t, 0, construct(h, tt.rep))
			assert.Len(t, h.symbol, tt.symbols)
			assert.Zero(t, h.count[0])
		})
	}
}

func TestConstructStatus(t *testing.T) {
	h := &huffman{}

	// three codes of length one
	assert.Negative(t, construct(h, []byte{0x21}))

	// a single code of length one
	assert.Positive(t, construct(h, []byte{0x01}))

	// no codes at all
	assert.Zero(t, construct(h, []byte{0x30}))
	assert.Equal(t, int16(4), h.count[0])
}

func TestConstructOrderWithinLength(t *testing.T) {
	h := &huffman{}
	require.Positive(t, construct(h, []byte{0x03, 0x02, 0x03, 0x02}))

	assert.Equal(t, []int16{1, 3, 0, 2}, h.symbol)
}

func TestMustHuffmanPanics(t *testing.T) {
	assert.Panics(t, func() { mustHuffman([]byte{0x21}) })
}

// The implode side of the format publishes its codes as LSB-first bit
// patterns; the canonical codes derived from the decoding tables must agree.
func TestCodesMatchImplodeTables(t *testing.T) {
	lit := newPrefixCodes(litCode)
	for sym := range testutil.LitBits {
		v, l := lit.streamBits(sym)
		assert.Equal(t, testutil.LitBits[sym], l, "literal code %d", sym)
		assert.Equal(t, testutil.LitCodes[sym], v, "literal code %d", sym)
	}

	// implode indexes by length - 2, where lengths 2 and 3 are symbols 1 and 0
	length := newPrefixCodes(lenCode)
	for i := range testutil.LenBits {
		sym := i
		if i < 2 {
			sym = 1 - i
		}

		v, l := length.streamBits(sym)
		assert.Equal(t, testutil.LenBits[i], l, "length code %d", sym)
		assert.Equal(t, testutil.LenCodes[i], v, "length code %d", sym)
	}

	dist := newPrefixCodes(distCode)
	for sym := range testutil.DistBits {
		v, l := dist.streamBits(sym)
		assert.Equal(t, testutil.DistBits[sym], l, "distance code %d", sym)
		assert.Equal(t, testutil.DistCodes[sym], v, "distance code %d", sym)
	}
}

func TestDecodeEmptyTable(t *testing.T) {
	h := &huffman{}
	require.Zero(t, construct(h, []byte{0x00}))

	br := newBitReader(bytes.NewReader([]byte{0x00, 0x00}))
	_, err := br.decode(h)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, CodeCorrupt, CodeOf(err))
}

func TestDecodeIncompleteTable(t *testing.T) {
	h := &huffman{}
	require.Positive(t, construct(h, []byte{0x01}))

	// the only code is a single 0 bit in natural order, stored inverted
	br := newBitReader(bytes.NewReader([]byte{0x01}))
	sym, err := br.decode(h)
	require.NoError(t, err)
	assert.Equal(t, 0, sym)

	br = newBitReader(bytes.NewReader([]byte{0x00, 0x00}))
	_, err = br.decode(h)
	assert.ErrorIs(t, err, ErrCorrupt)
}
