package sensor

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/treadgrade/treadgrade/pkg/orientation"
)

func TestSliceSource(t *testing.T) {
	ctx := context.Background()
	src := NewSliceSource(
		orientation.Sample{Z: 9.8, Timestamp: 0},
		orientation.Sample{Z: 9.8, Timestamp: 100},
	)

	for _, want := range []int64{0, 100} {
		got, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got.Timestamp != want {
			t.Fatalf("Timestamp = %d, want %d", got.Timestamp, want)
		}
	}
	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSliceSourceHonorsContextAndClose(t *testing.T) {
	src := NewSliceSource(orientation.Sample{Z: 9.8})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	_ = src.Close()
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after Close, got %v", err)
	}
}

func TestMonotonicClock(t *testing.T) {
	clock := MonotonicClock()
	a := clock()
	b := clock()
	if a < 0 || b < a {
		t.Fatalf("clock went backwards: %d then %d", a, b)
	}
}
