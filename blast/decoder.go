package blast

import "github.com/pkg/errors"

// Header holds the two leading bytes of a stream.
type Header struct {
	Encoded  bool // literals are Huffman coded
	DictBits uint // log2(dictionary size) - 6, in 4..6
}

// DictSize returns the dictionary size in bytes.
func (h Header) DictSize() int {
	return 1 << (h.DictBits + 6)
}

// decoder keeps the decompression state between window fills.
//
// Format notes:
//
//   - A bit preceding each literal or length/distance pair tells which comes
//     next, 0 for a literal, 1 for a pair.
//   - Literals are either Huffman coded or eight raw bits. Length and
//     distance extra bits are raw, no bit reversal is needed.
//   - A pair copies length bytes from distance bytes back. Overlapped copies,
//     where the length is greater than the distance, are allowed.
type decoder struct {
	br  *bitReader
	hdr *Header

	first    bool // check distances against output until the window fills once
	produced int  // bytes produced while first is set

	copyLen  int // bytes of the pending copy
	copyDist int // distance of the pending copy

	done bool
	err  error
}

func newDecoder(br *bitReader) *decoder {
	return &decoder{br: br, first: true}
}

func (d *decoder) readHeader() error {
	lit, err := d.br.bits(8)
	if err != nil {
		return err
	}

	if lit > 1 {
		return errors.Wrapf(ErrLiteralFlag, "got %d", lit)
	}

	dict, err := d.br.bits(8)
	if err != nil {
		return err
	}

	if dict < minDict || dict > maxDict {
		return errors.Wrapf(ErrDictSize, "got %d", dict)
	}

	d.hdr = &Header{Encoded: lit != 0, DictBits: uint(dict)}

	return nil
}

// fill decodes into w until it is full or the end code is reached, and
// reports whether more data may follow. Errors are sticky.
func (d *decoder) fill(w *window) (bool, error) {
	for !d.done && d.err == nil && !w.full() {
		if err := d.step(w); err != nil {
			d.err = err
		}
	}

	return !d.done, d.err
}

// step decodes a single literal or pair, or resumes a pending copy.
func (d *decoder) step(w *window) error {
	if d.hdr == nil {
		if err := d.readHeader(); err != nil {
			return err
		}
	}

	if d.copyLen > 0 {
		d.copyPending(w)
		return nil
	}

	flag, err := d.br.bits(1)
	if err != nil {
		return err
	}

	if flag == 0 {
		return d.literal(w)
	}

	sym, err := d.br.decode(lenCode)
	if err != nil {
		return err
	}

	extra, err := d.br.bits(lengthExtra[sym])
	if err != nil {
		return err
	}

	length := lengthBase[sym] + int(extra)
	if length == endLength {
		d.done = true
		return nil
	}

	width := d.hdr.DictBits
	if length == 2 {
		width = 2
	}

	sym, err = d.br.decode(distCode)
	if err != nil {
		return err
	}

	low, err := d.br.bits(width)
	if err != nil {
		return err
	}

	dist := sym<<width + int(low) + 1
	if d.first && dist > d.produced {
		return errors.Wrapf(ErrDistanceTooFar, "distance %d with %d bytes of output", dist, d.produced)
	}

	d.copyLen, d.copyDist = length, dist
	d.copyPending(w)

	return nil
}

func (d *decoder) literal(w *window) error {
	var (
		sym int
		err error
	)

	if d.hdr.Encoded {
		sym, err = d.br.decode(litCode)
	} else {
		var raw uint32
		raw, err = d.br.bits(8)
		sym = int(raw)
	}

	if err != nil {
		return err
	}

	w.put(byte(sym))
	d.advance(w, 1)

	return nil
}

func (d *decoder) copyPending(w *window) {
	n := w.copy(d.copyDist, d.copyLen)
	d.copyLen -= n
	d.advance(w, n)
}

func (d *decoder) advance(w *window, n int) {
	if !d.first {
		return
	}

	d.produced += n
	if w.full() {
		d.first = false
	}
}
