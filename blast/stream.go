package blast

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultStreamDepth = 4
	MaxStreamDepth     = 64
)

// Stream decompresses in a producer goroutine and hands each full window to
// the consumer through a channel holding at most depth windows. The
// producer blocks while the channel is full, so memory stays bounded no
// matter how slowly the consumer reads.
type Stream struct {
	src    io.Reader
	chunks chan []byte
	cancel context.CancelFunc
	done   chan struct{}
	log    *logrus.Entry

	cur    []byte
	err    error // set by the producer before chunks is closed
	closed bool
}

// NewStream starts decoding r. Cancelling ctx or calling Close stops the
// producer.
func NewStream(ctx context.Context, r io.Reader, windowSize, depth int) (*Stream, error) {
	z, err := NewReaderSize(r, windowSize)
	if err != nil {
		return nil, err
	}

	if depth < 1 || depth > MaxStreamDepth {
		return nil, errors.Errorf("blast: stream depth must be between 1 and %d", MaxStreamDepth)
	}

	ctx, cancel := context.WithCancel(ctx)

	s := &Stream{
		src:    r,
		chunks: make(chan []byte, depth),
		cancel: cancel,
		done:   make(chan struct{}),
		log:    logrus.WithField("pkg", "blast"),
	}

	go s.produce(ctx, z)

	return s, nil
}

func (s *Stream) produce(ctx context.Context, z *Reader) {
	llog := s.log.WithFields(logrus.Fields{
		"method": "produce",
	})

	llog.Debug("start")
	defer llog.Debug("exit")

	defer close(s.done)
	defer close(s.chunks)

	var numChunks int

MAIN:
	for {
		if err := ctx.Err(); err != nil {
			llog.Debug("received shutdown signal")
			s.err = err
			break MAIN
		}

		more, err := z.dec.fill(z.win)

		if !z.win.empty() {
			chunk := make([]byte, z.win.buffered())
			z.win.read(chunk)

			select {
			case <-ctx.Done():
				llog.Debug("received shutdown signal")
				s.err = ctx.Err()
				break MAIN
			case s.chunks <- chunk:
				numChunks++
			}
		}

		if err != nil {
			s.err = err
			break MAIN
		}

		if !more {
			break MAIN
		}

		z.win.reset()
	}

	llog.Debugf("produced '%d' chunks", numChunks)
}

// Read returns decompressed bytes in stream order. After the last chunk it
// returns the producer's error, or io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}

	for len(s.cur) == 0 {
		chunk, ok := <-s.chunks
		if !ok {
			if s.err != nil {
				return 0, s.err
			}

			return 0, io.EOF
		}

		s.cur = chunk
	}

	n := copy(p, s.cur)
	s.cur = s.cur[n:]

	return n, nil
}

// Close stops the producer, closes the source when it is an io.Closer and
// waits for the producer to exit.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	s.cancel()

	var err error
	if c, ok := s.src.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			err = errors.Wrap(cerr, "unable to close source")
		}
	}

	<-s.done

	return err
}
