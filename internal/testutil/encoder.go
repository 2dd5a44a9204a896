// Package testutil builds PKWare DCL streams and DBC files for tests.
package testutil

import (
	"encoding/binary"
	"fmt"
)

// BitWriter packs values LSB-first.
type BitWriter struct {
	buf []byte
	acc uint64
	n   uint
}

// WriteBits appends the low width bits of v.
func (w *BitWriter) WriteBits(v uint32, width uint) {
	w.acc |= uint64(v&(1<<width-1)) << w.n
	w.n += width

	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.n -= 8
	}
}

// Bytes flushes a partial byte and returns everything written so far.
func (w *BitWriter) Bytes() []byte {
	if w.n > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc, w.n = 0, 0
	}

	return w.buf
}

const (
	EndLength = 519
	MaxMatch  = 518
	MaxDist   = 4096

	maxChain  = 64
	maxLen2Di = 256
)

// Encoder emits a stream symbol by symbol. Callers are responsible for
// only referring back to bytes they have already emitted.
type Encoder struct {
	w     BitWriter
	coded bool
	dict  uint
}

// NewEncoder writes the two header bytes. dict is the distance exponent,
// 4 to 6 for a valid stream.
func NewEncoder(coded bool, dict uint) *Encoder {
	e := &Encoder{coded: coded, dict: dict}

	lit := uint32(0)
	if coded {
		lit = 1
	}

	e.w.WriteBits(lit, 8)
	e.w.WriteBits(uint32(dict), 8)

	return e
}

func (e *Encoder) Literal(b byte) {
	e.w.WriteBits(0, 1)

	if e.coded {
		e.w.WriteBits(LitCodes[b], LitBits[b])
		return
	}

	e.w.WriteBits(uint32(b), 8)
}

func (e *Encoder) length(length int) {
	for i := len(lenBase) - 1; i >= 0; i-- {
		if length < lenBase[i] {
			continue
		}

		if length-lenBase[i] >= 1<<lenExtraBits[i] {
			panic(fmt.Sprintf("testutil: length %d out of range", length))
		}

		e.w.WriteBits(1, 1)
		e.w.WriteBits(LenCodes[i], LenBits[i])
		e.w.WriteBits(uint32(length-lenBase[i]), lenExtraBits[i])

		return
	}

	panic(fmt.Sprintf("testutil: length %d out of range", length))
}

// Match copies length bytes starting dist bytes back.
func (e *Encoder) Match(length, dist int) {
	e.length(length)

	width := e.dict
	if length == 2 {
		width = 2
	}

	d := uint32(dist - 1)
	hi := d >> width
	e.w.WriteBits(DistCodes[hi], DistBits[hi])
	e.w.WriteBits(d, width)
}

// End writes the end code and returns the finished stream.
func (e *Encoder) End() []byte {
	e.length(EndLength)
	return e.w.Bytes()
}

// Encode compresses data with a greedy match search.
func Encode(data []byte, coded bool, dict uint) []byte {
	e := NewEncoder(coded, dict)
	maxDist := 64 << dict
	chains := make(map[uint32][]int)

	key := func(i int) uint32 {
		return uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16
	}

	insert := func(i int) {
		if i+2 < len(data) {
			k := key(i)
			chains[k] = append(chains[k], i)
		}
	}

	for i := 0; i < len(data); {
		bestLen, bestDist := 0, 0

		if i+2 < len(data) {
			cands := chains[key(i)]
			for c, tried := len(cands)-1, 0; c >= 0 && tried < maxChain; c, tried = c-1, tried+1 {
				j := cands[c]
				if i-j > maxDist {
					break
				}

				l := 0
				for i+l < len(data) && l < MaxMatch && data[j+l] == data[i+l] {
					l++
				}

				if l > bestLen {
					bestLen, bestDist = l, i-j
				}
			}
		}

		if bestLen < 3 && i+1 < len(data) {
			bestLen = 0
			for j := i - 1; j >= 0 && i-j <= maxLen2Di; j-- {
				if data[j] == data[i] && data[j+1] == data[i+1] {
					bestLen, bestDist = 2, i-j
					break
				}
			}
		}

		if bestLen >= 2 {
			e.Match(bestLen, bestDist)
			for k := 0; k < bestLen; k++ {
				insert(i + k)
			}

			i += bestLen

			continue
		}

		e.Literal(data[i])
		insert(i)
		i++
	}

	return e.End()
}

// DBFHeader returns a header of length bytes declaring numRecords records of
// recordLength bytes, last updated on 2023-07-14. length must be at least 12.
func DBFHeader(length int, numRecords uint32, recordLength uint16) []byte {
	h := make([]byte, length)
	h[0] = 0x03
	h[1], h[2], h[3] = 123, 7, 14
	binary.LittleEndian.PutUint32(h[4:8], numRecords)
	binary.LittleEndian.PutUint16(h[8:10], uint16(length))
	binary.LittleEndian.PutUint16(h[10:12], recordLength)

	for i := 12; i < length; i++ {
		h[i] = byte(i)
	}

	return h
}

// DBC lays out a DBC file: header, a four byte trailer, then the stream.
func DBC(header, stream []byte) []byte {
	out := make([]byte, 0, len(header)+4+len(stream))
	out = append(out, header...)
	out = append(out, 0xde, 0xad, 0xbe, 0xef)

	return append(out, stream...)
}

// Records returns numRecords deterministic records of recordLength bytes,
// compressible like real table data.
func Records(numRecords, recordLength int) []byte {
	out := make([]byte, 0, numRecords*recordLength)
	for r := 0; r < numRecords; r++ {
		rec := []byte(fmt.Sprintf(" %08d%-20s%6d.%02d", r, fmt.Sprintf("NAME-%d", r%37), r*7%1000, r%100))
		for len(rec) < recordLength {
			rec = append(rec, ' ')
		}

		out = append(out, rec[:recordLength]...)
	}

	return out
}
