package blast

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream(t *testing.T) {
	raw := lipsum(50000)
	stream := encode(raw, false, 6)

	for _, depth := range []int{1, DefaultStreamDepth} {
		s, err := NewStream(context.Background(), bytes.NewReader(stream), MinWindowSize, depth)
		require.NoError(t, err)

		out, err := io.ReadAll(s)
		require.NoError(t, err, "depth %d", depth)
		assert.True(t, bytes.Equal(raw, out), "depth %d", depth)
		require.NoError(t, s.Close())
	}
}

func TestStreamError(t *testing.T) {
	raw := lipsum(20000)
	stream := encode(raw, false, 6)

	s, err := NewStream(context.Background(), bytes.NewReader(stream[:len(stream)-10]), MinWindowSize, 2)
	require.NoError(t, err)
	defer s.Close()

	out, err := io.ReadAll(s)
	assert.ErrorIs(t, err, ErrInputExhausted)
	assert.Equal(t, raw[:len(out)], out)
}

func TestStreamCloseStopsProducer(t *testing.T) {
	raw := bytes.Repeat([]byte("0123456789"), 100000)
	src := &closeRecorder{Reader: bytes.NewReader(encode(raw, false, 6))}

	s, err := NewStream(context.Background(), src, MinWindowSize, 1)
	require.NoError(t, err)

	p := make([]byte, 100)
	_, err = io.ReadFull(s, p)
	require.NoError(t, err)

	closed := make(chan error, 1)
	go func() {
		closed <- s.Close()
	}()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for producer to exit")
	}

	assert.True(t, src.closed)

	_, err = s.Read(p)
	assert.Equal(t, ErrClosed, err)
}

func TestStreamContextCancel(t *testing.T) {
	raw := bytes.Repeat([]byte("abcdefgh"), 100000)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := NewStream(ctx, bytes.NewReader(encode(raw, false, 6)), MinWindowSize, 1)
	require.NoError(t, err)
	defer s.Close()

	cancel()

	_, err = io.ReadAll(s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStreamBadArguments(t *testing.T) {
	_, err := NewStream(context.Background(), bytes.NewReader(canonical), MinWindowSize-1, 1)
	assert.Equal(t, ErrWindowSize, err)

	_, err = NewStream(context.Background(), bytes.NewReader(canonical), MinWindowSize, 0)
	assert.Error(t, err)
}
