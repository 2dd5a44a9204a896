/*
Package blast decompresses data in the PKWare Data Compression Library (DCL)
format, the output of its implode() function, as its explode() does.

	r := blast.NewReader(f)
	defer r.Close()
	io.Copy(os.Stdout, r)

The stream starts with two header bytes: 0 or 1 for uncoded or coded
literals, then 4, 5 or 6, the base-2 logarithm of the dictionary size minus
six. A combination of literals and length/distance pairs follows, terminated
by an end code. The well known example stream

	00 04 82 24 25 8f 80 7f

decompresses to "AIAIAIAIAIAIA".
*/
package blast

import (
	"io"

	"github.com/pkg/errors"
)

// Reader is an io.Reader that decompresses a DCL stream. Output is staged
// in a window that doubles as the dictionary; each window is decoded when
// the previous one has been fully read.
type Reader struct {
	src    io.Reader
	dec    *decoder
	win    *window
	more   bool
	err    error
	closed bool
}

// NewReader returns a Reader with a DefaultWindowSize window. The header is
// read on the first call to Read.
func NewReader(r io.Reader) *Reader {
	z, _ := NewReaderSize(r, DefaultWindowSize)
	return z
}

// NewReaderSize returns a Reader with a window of size bytes, which must be
// at least MinWindowSize. The size only changes how much output is staged
// at a time, never the output itself.
func NewReaderSize(r io.Reader, size int) (*Reader, error) {
	if size < MinWindowSize {
		return nil, ErrWindowSize
	}

	return &Reader{
		src:  r,
		dec:  newDecoder(newBitReader(r)),
		win:  newWindow(size),
		more: true,
	}, nil
}

// Read decompresses into p. Bytes decoded before a format error are
// returned first; the error follows on the next call.
func (z *Reader) Read(p []byte) (int, error) {
	if z.closed {
		return 0, ErrClosed
	}

	if len(p) == 0 {
		return 0, nil
	}

	if z.win.empty() {
		if z.err != nil {
			return 0, z.err
		}

		if !z.more {
			return 0, io.EOF
		}

		z.win.reset()
		z.more, z.err = z.dec.fill(z.win)
		if z.win.empty() {
			if z.err != nil {
				return 0, z.err
			}

			return 0, io.EOF
		}
	}

	return z.win.read(p), nil
}

// WriteTo writes all remaining output to w, one window at a time. Write
// failures are reported as ErrSinkRejected.
func (z *Reader) WriteTo(w io.Writer) (int64, error) {
	if z.closed {
		return 0, ErrClosed
	}

	var total int64

	for {
		if !z.win.empty() {
			n, err := w.Write(z.win.staged())
			z.win.pos += n
			total += int64(n)

			if err != nil {
				return total, newError(CodeOutput, err)
			}

			if !z.win.empty() {
				return total, newError(CodeOutput, io.ErrShortWrite)
			}
		}

		if z.err != nil {
			return total, z.err
		}

		if !z.more {
			return total, nil
		}

		z.win.reset()
		z.more, z.err = z.dec.fill(z.win)
	}
}

// Buffered returns the number of decoded bytes not yet read.
func (z *Reader) Buffered() int {
	return z.win.buffered()
}

// Header returns the stream header, or nil before it has been read.
func (z *Reader) Header() *Header {
	if z.dec.hdr == nil {
		return nil
	}

	h := *z.dec.hdr

	return &h
}

// Close closes the underlying reader when it is an io.Closer. Later reads
// return ErrClosed.
func (z *Reader) Close() error {
	if z.closed {
		return nil
	}

	z.closed = true

	if c, ok := z.src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return errors.Wrap(err, "unable to close source")
		}
	}

	return nil
}

// Decompress decodes the whole stream from r into w and returns the number
// of bytes written. Format errors and write failures wrap an *Error, so
// CodeOf gives the blast() result code.
func Decompress(w io.Writer, r io.Reader) (int64, error) {
	z, err := NewReaderSize(r, MinWindowSize)
	if err != nil {
		return 0, err
	}

	return z.WriteTo(w)
}
