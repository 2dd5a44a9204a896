// Package dbc reads DBC files: xBase (DBF) tables whose header is stored
// as-is and whose records are compressed with the PKWare DCL implode
// format. Reading a DBC file yields the original DBF file.
//
// Header problems are reported as ErrHeaderTruncated or ErrHeaderLength;
// problems in the compressed records carry a blast.Code.
package dbc

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/dselans/undbc/blast"
)

// Reader yields the verbatim header followed by the decompressed records.
type Reader struct {
	hdr *Header
	z   *blast.Reader
	r   io.Reader
}

// NewReader reads the header from r and returns a Reader for the rest.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, blast.DefaultWindowSize)
}

// NewReaderSize is NewReader with a decompression window of size bytes.
func NewReaderSize(r io.Reader, size int) (*Reader, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	z, err := blast.NewReaderSize(r, size)
	if err != nil {
		return nil, err
	}

	return &Reader{
		hdr: hdr,
		z:   z,
		r:   io.MultiReader(bytes.NewReader(hdr.Raw), z),
	}, nil
}

func (d *Reader) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

// Header returns the parsed header.
func (d *Reader) Header() *Header {
	return d.hdr
}

// Close closes the underlying reader when it is an io.Closer.
func (d *Reader) Close() error {
	return d.z.Close()
}

// Stream is a Reader whose records are decompressed in a background
// goroutine, see blast.Stream.
type Stream struct {
	hdr *Header
	s   *blast.Stream
	r   io.Reader
}

// NewStream reads the header from r and starts decompressing the rest.
// The caller must Close the Stream.
func NewStream(ctx context.Context, r io.Reader, windowSize, depth int) (*Stream, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	s, err := blast.NewStream(ctx, r, windowSize, depth)
	if err != nil {
		return nil, errors.Wrap(err, "unable to start decompression")
	}

	return &Stream{
		hdr: hdr,
		s:   s,
		r:   io.MultiReader(bytes.NewReader(hdr.Raw), s),
	}, nil
}

func (d *Stream) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

// Header returns the parsed header.
func (d *Stream) Header() *Header {
	return d.hdr
}

// Close stops decompression and closes the underlying reader when it is an
// io.Closer.
func (d *Stream) Close() error {
	return d.s.Close()
}

// Convert writes the DBF file stored in the DBC file r to w. It returns the
// header and the number of bytes written.
func Convert(w io.Writer, r io.Reader) (*Header, int64, error) {
	d, err := NewReaderSize(r, blast.MinWindowSize)
	if err != nil {
		return nil, 0, err
	}

	n, err := w.Write(d.hdr.Raw)
	if err != nil {
		return d.hdr, int64(n), &blast.Error{Code: blast.CodeOutput, Err: errors.Wrap(err, "unable to write header")}
	}

	m, err := d.z.WriteTo(w)

	return d.hdr, int64(n) + m, err
}
