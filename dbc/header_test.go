package dbc

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dselans/undbc/internal/testutil"
)

func TestReadHeader(t *testing.T) {
	raw := testutil.DBFHeader(97, 1234, 56)
	payload := []byte{0x00, 0x04}
	r := bytes.NewReader(testutil.DBC(raw, payload))

	h, err := ReadHeader(r)
	require.NoError(t, err)

	assert.Equal(t, raw, h.Raw)
	assert.Equal(t, byte(0x03), h.Version)
	assert.Equal(t, time.Date(2023, time.July, 14, 0, 0, 0, 0, time.UTC), h.LastUpdate)
	assert.Equal(t, uint32(1234), h.NumRecords)
	assert.Equal(t, 97, h.Length)
	assert.Equal(t, uint16(56), h.RecordLength)

	// positioned at the payload
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, rest)
}

func TestReadHeaderMinimalLength(t *testing.T) {
	raw := []byte{0x03, 0x7b, 0x01, 0x02, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x00}

	h, err := ReadHeader(bytes.NewReader(testutil.DBC(raw, nil)))
	require.NoError(t, err)
	assert.Equal(t, 10, h.Length)
	assert.Zero(t, h.RecordLength)
}

func TestReadHeaderErrors(t *testing.T) {
	full := testutil.DBC(testutil.DBFHeader(32, 1, 10), nil)

	short := testutil.DBFHeader(32, 1, 10)
	short[8], short[9] = 0x09, 0x00

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrHeaderTruncated},
		{"inside prefix", full[:9], ErrHeaderTruncated},
		{"inside header", full[:20], ErrHeaderTruncated},
		{"inside trailer", full[:34], ErrHeaderTruncated},
		{"length below prefix", short, ErrHeaderLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(bytes.NewReader(tt.in))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// header and trailer present, payload empty
	_, err := ReadHeader(bytes.NewReader(full))
	assert.NoError(t, err)
}
