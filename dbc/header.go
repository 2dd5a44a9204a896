package dbc

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"
)

const (
	prefixSize  = 10 // bytes read before the header length is known
	trailerSize = 4  // skipped after the header
)

var (
	// ErrHeaderTruncated is returned when the file ends inside the header or
	// the trailer that follows it.
	ErrHeaderTruncated = errors.New("dbc: wrong header format, premature end of file")
	// ErrHeaderLength is returned when the declared header length is shorter
	// than the fixed prefix.
	ErrHeaderLength = errors.New("dbc: invalid header length")
)

var le = binary.LittleEndian

// Header is the xBase table header stored uncompressed at the start of a
// DBC file. Raw holds it verbatim; it is the first part of the converted
// output.
type Header struct {
	Raw []byte

	Version      byte
	LastUpdate   time.Time
	NumRecords   uint32
	Length       int
	RecordLength uint16
}

// ReadHeader reads the header and skips the trailer, leaving r at the start
// of the compressed payload.
func ReadHeader(r io.Reader) (*Header, error) {
	prefix := make([]byte, prefixSize)
	if n, err := io.ReadFull(r, prefix); err != nil {
		return nil, truncated(err, "read %d of %d prefix bytes", n, prefixSize)
	}

	length := int(le.Uint16(prefix[8:10]))
	if length < prefixSize {
		return nil, errors.Wrapf(ErrHeaderLength, "header length %d is shorter than %d", length, prefixSize)
	}

	raw := make([]byte, length)
	copy(raw, prefix)

	if n, err := io.ReadFull(r, raw[prefixSize:]); err != nil {
		return nil, truncated(err, "read %d of %d header bytes", prefixSize+n, length)
	}

	if n, err := io.CopyN(io.Discard, r, trailerSize); err != nil {
		return nil, truncated(err, "skipped %d of %d trailer bytes", n, trailerSize)
	}

	return parseHeader(raw), nil
}

func parseHeader(raw []byte) *Header {
	h := &Header{
		Raw:        raw,
		Version:    raw[0],
		LastUpdate: time.Date(1900+int(raw[1]), time.Month(raw[2]), int(raw[3]), 0, 0, 0, 0, time.UTC),
		NumRecords: le.Uint32(raw[4:8]),
		Length:     len(raw),
	}

	if len(raw) >= 12 {
		h.RecordLength = le.Uint16(raw[10:12])
	}

	return h
}

func truncated(err error, format string, args ...interface{}) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrHeaderTruncated, format, args...)
	}

	return errors.Wrap(err, "unable to read header")
}
