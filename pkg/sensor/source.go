// Package sensor provides accelerometer sample feeds. Every feed implements
// Source, so the daemon and tests consume them the same way.
package sensor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/treadgrade/treadgrade/pkg/orientation"
)

// Source is a push feed of accelerometer samples. Next blocks until a
// sample is available, ctx is done, or the feed ends with io.EOF.
type Source interface {
	Next(ctx context.Context) (orientation.Sample, error)
	Close() error
}

// Clock returns a monotonic reading in milliseconds.
type Clock func() int64

// MonotonicClock returns a Clock counting from the moment it was created.
func MonotonicClock() Clock {
	start := time.Now()
	return func() int64 {
		return time.Since(start).Milliseconds()
	}
}

// SliceSource replays a fixed list of samples, then returns io.EOF.
type SliceSource struct {
	mu      sync.Mutex
	samples []orientation.Sample
	closed  bool
}

func NewSliceSource(samples ...orientation.Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

func (s *SliceSource) Next(ctx context.Context) (orientation.Sample, error) {
	if err := ctx.Err(); err != nil {
		return orientation.Sample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.samples) == 0 {
		return orientation.Sample{}, io.EOF
	}
	next := s.samples[0]
	s.samples = s.samples[1:]
	return next, nil
}

func (s *SliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
