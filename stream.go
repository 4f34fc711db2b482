package aokv

import (
	"context"
	"io"
	"sync"
)

// ChunkStream is the pull-based byte sink fed by a Writer. Producers
// enqueue whole blocks without blocking; a single consumer drains them
// with Next or WriteTo. Backpressure is the consumer's pull rate:
// callers that want it should interleave writes with pulls.
//
// Exactly one consumer is supported. There is a single waker slot, so
// the behavior with concurrent pullers is undefined.
type ChunkStream struct {
	mu     sync.Mutex
	chunks [][]byte
	wake   chan struct{}
	ended  bool
}

// push enqueues one chunk and wakes a suspended consumer, if any.
func (s *ChunkStream) push(p []byte) {
	s.mu.Lock()
	s.chunks = append(s.chunks, p)
	s.signal()
	s.mu.Unlock()
}

// end marks the end of the stream after all queued chunks.
func (s *ChunkStream) end() {
	s.mu.Lock()
	s.ended = true
	s.signal()
	s.mu.Unlock()
}

func (s *ChunkStream) signal() {
	if s.wake != nil {
		close(s.wake)
		s.wake = nil
	}
}

// Next delivers the next chunk, suspending until a producer enqueues
// one. It returns io.EOF once the stream has ended and every chunk
// has been delivered, or the context error if ctx is done first.
func (s *ChunkStream) Next(ctx context.Context) ([]byte, error) {
	for {
		s.mu.Lock()
		if len(s.chunks) != 0 {
			p := s.chunks[0]
			s.chunks = s.chunks[1:]
			s.mu.Unlock()
			return p, nil
		}
		if s.ended {
			s.mu.Unlock()
			return nil, io.EOF
		}
		wake := make(chan struct{})
		s.wake = wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// WriteTo drains the stream into w until the stream ends, returning
// the number of bytes copied. It implements io.WriterTo.
func (s *ChunkStream) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for {
		p, err := s.Next(context.Background())
		if err == io.EOF {
			return written, nil
		} else if err != nil {
			return written, err
		}

		n, err := w.Write(p)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
}
