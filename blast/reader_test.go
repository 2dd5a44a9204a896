package blast

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dselans/undbc/internal/testutil"
)

var canonical = []byte{0x00, 0x04, 0x82, 0x24, 0x25, 0x8f, 0x80, 0x7f}

func lipsum(n int) []byte {
	words := []string{"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit", "\n"}
	rng := rand.New(rand.NewSource(1))

	var b bytes.Buffer
	for b.Len() < n {
		b.WriteString(words[rng.Intn(len(words))])
		b.WriteByte(' ')
	}

	return b.Bytes()[:n]
}

func noise(n int) []byte {
	rng := rand.New(rand.NewSource(2))
	b := make([]byte, n)
	rng.Read(b)

	return b
}

func decodeAll(t *testing.T, stream []byte, size int) ([]byte, error) {
	t.Helper()

	z, err := NewReaderSize(bytes.NewReader(stream), size)
	require.NoError(t, err)

	return io.ReadAll(z)
}

func TestCanonicalExample(t *testing.T) {
	z := NewReader(bytes.NewReader(canonical))
	assert.Nil(t, z.Header())

	out, err := io.ReadAll(z)
	require.NoError(t, err)
	assert.Equal(t, "AIAIAIAIAIAIA", string(out))

	require.NotNil(t, z.Header())
	assert.Equal(t, Header{Encoded: false, DictBits: 4}, *z.Header())
	assert.Equal(t, 1024, z.Header().DictSize())
}

func TestHeaderErrors(t *testing.T) {
	tests := []struct {
		descr  string
		stream []byte
		err    error
		code   Code
	}{
		{"empty", []byte{}, ErrInputExhausted, CodeInput},
		{"no dictionary byte", []byte{0x00}, ErrInputExhausted, CodeInput},
		{"literal flag 2", []byte{0x02, 0x04, 0x00}, ErrLiteralFlag, CodeLiteralFlag},
		{"literal flag 255", []byte{0xff, 0x04, 0x00}, ErrLiteralFlag, CodeLiteralFlag},
		{"dictionary 3", []byte{0x00, 0x03, 0x00}, ErrDictSize, CodeDictSize},
		{"dictionary 7", []byte{0x01, 0x07, 0x00}, ErrDictSize, CodeDictSize},
	}

	for _, tt := range tests {
		t.Run(tt.descr, func(t *testing.T) {
			out, err := decodeAll(t, tt.stream, DefaultWindowSize)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.code, CodeOf(err))
			assert.Empty(t, out)
		})
	}
}

func TestDistanceTooFarBack(t *testing.T) {
	e := testutil.NewEncoder(false, 4)
	e.Literal('A')
	e.Match(3, 2)

	out, err := decodeAll(t, e.End(), DefaultWindowSize)
	assert.ErrorIs(t, err, ErrDistanceTooFar)
	assert.Equal(t, CodeDistanceTooFar, CodeOf(err))
	assert.Equal(t, "A", string(out))

	e = testutil.NewEncoder(false, 4)
	e.Literal('A')
	e.Literal('B')
	e.Match(3, 2)

	out, err = decodeAll(t, e.End(), DefaultWindowSize)
	require.NoError(t, err)
	assert.Equal(t, "ABABA", string(out))
}

func TestEndCodeIgnoresTrailingBytes(t *testing.T) {
	stream := append(append([]byte{}, canonical...), 0xff, 0x00, 0xff)

	out, err := decodeAll(t, stream, DefaultWindowSize)
	require.NoError(t, err)
	assert.Equal(t, "AIAIAIAIAIAIA", string(out))
}

func TestRoundTrip(t *testing.T) {
	payloads := []struct {
		descr string
		raw   []byte
	}{
		{"empty", []byte{}},
		{"single byte", []byte("a")},
		{"run", bytes.Repeat([]byte("x"), 10000)},
		{"text", lipsum(40000)},
		{"noise", noise(5000)},
		{"pairs", bytes.Repeat([]byte("ab"), 700)},
	}

	for _, p := range payloads {
		for _, coded := range []bool{false, true} {
			for dict := uint(4); dict <= 6; dict++ {
				stream := encode(p.raw, coded, dict)

				out, err := decodeAll(t, stream, DefaultWindowSize)
				require.NoError(t, err, "%s coded=%v dict=%d", p.descr, coded, dict)
				assert.True(t, bytes.Equal(p.raw, out), "%s coded=%v dict=%d: got %d bytes, want %d", p.descr, coded, dict, len(out), len(p.raw))
			}
		}
	}
}

func TestWindowSizeDoesNotChangeOutput(t *testing.T) {
	raw := lipsum(70000)
	stream := encode(raw, true, 6)

	for _, size := range []int{MinWindowSize, 5000, DefaultWindowSize, 65536} {
		out, err := decodeAll(t, stream, size)
		require.NoError(t, err, "window %d", size)
		assert.True(t, bytes.Equal(raw, out), "window %d", size)
	}
}

func TestWindowTooSmall(t *testing.T) {
	_, err := NewReaderSize(bytes.NewReader(canonical), MinWindowSize-1)
	assert.Equal(t, ErrWindowSize, err)
}

func TestTruncatedInput(t *testing.T) {
	stream := encode(lipsum(3000), false, 5)

	for cut := 0; cut < len(stream); cut++ {
		_, err := decodeAll(t, stream[:cut], MinWindowSize)
		require.ErrorIs(t, err, ErrInputExhausted, "cut at %d of %d", cut, len(stream))
	}
}

func TestPartialOutputBeforeError(t *testing.T) {
	raw := lipsum(2000)
	stream := encode(raw, false, 6)

	z := NewReader(bytes.NewReader(stream[:len(stream)/2]))

	out, err := io.ReadAll(z)
	assert.ErrorIs(t, err, ErrInputExhausted)
	assert.NotEmpty(t, out)
	assert.Equal(t, raw[:len(out)], out)

	// errors are sticky
	_, err = z.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrInputExhausted)
}

func TestBuffered(t *testing.T) {
	z := NewReader(bytes.NewReader(canonical))
	assert.Zero(t, z.Buffered())

	p := make([]byte, 3)
	n, err := z.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 10, z.Buffered())
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestCloseClosesSource(t *testing.T) {
	src := &closeRecorder{Reader: bytes.NewReader(canonical)}
	z := NewReader(src)

	require.NoError(t, z.Close())
	assert.True(t, src.closed)

	_, err := z.Read(make([]byte, 1))
	assert.Equal(t, ErrClosed, err)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestDecompress(t *testing.T) {
	raw := lipsum(20000)

	var b bytes.Buffer
	n, err := Decompress(&b, bytes.NewReader(encode(raw, true, 5)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), n)
	assert.True(t, bytes.Equal(raw, b.Bytes()))
	assert.Equal(t, CodeOK, CodeOf(err))
}

func TestDecompressSinkRejected(t *testing.T) {
	_, err := Decompress(failingWriter{}, bytes.NewReader(canonical))
	assert.ErrorIs(t, err, ErrSinkRejected)
	assert.Equal(t, CodeOutput, CodeOf(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestDecompressFormatError(t *testing.T) {
	var b bytes.Buffer
	_, err := Decompress(&b, bytes.NewReader([]byte{0x00, 0x09}))
	assert.Equal(t, CodeDictSize, CodeOf(err))
}

func TestCodeOfForeignError(t *testing.T) {
	assert.Equal(t, CodeInput, CodeOf(errors.New("connection reset")))
	assert.Equal(t, CodeOK, CodeOf(nil))
}
