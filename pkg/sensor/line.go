package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/orientation"
)

// LineSource reads samples from a text stream, one per line, as
// "x,y,z" or "x,y,z,ts". Missing timestamps are taken from the clock.
// Lines that do not parse are logged and skipped.
type LineSource struct {
	r     io.ReadCloser
	clock Clock

	samples chan orientation.Sample
	done    chan struct{}
	err     error

	startOnce sync.Once
	closeOnce sync.Once
}

func NewLineSource(r io.ReadCloser, clock Clock) *LineSource {
	if clock == nil {
		clock = MonotonicClock()
	}
	return &LineSource{
		r:       r,
		clock:   clock,
		samples: make(chan orientation.Sample, 64),
		done:    make(chan struct{}),
	}
}

func (s *LineSource) Next(ctx context.Context) (orientation.Sample, error) {
	s.startOnce.Do(func() { go s.read() })

	select {
	case <-ctx.Done():
		return orientation.Sample{}, ctx.Err()
	case sample, ok := <-s.samples:
		if !ok {
			return orientation.Sample{}, s.err
		}
		return sample, nil
	}
}

func (s *LineSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.r.Close()
	})
	return err
}

func (s *LineSource) read() {
	defer close(s.samples)

	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sample, err := ParseLine(line)
		if err != nil {
			logrus.WithError(err).WithField("line", line).Debug("skipping malformed sample")
			continue
		}
		if sample.Timestamp == 0 {
			sample.Timestamp = s.clock()
		}
		select {
		case s.samples <- sample:
		case <-s.done:
			s.err = io.EOF
			return
		}
	}

	s.err = io.EOF
	if err := scanner.Err(); err != nil {
		select {
		case <-s.done:
		default:
			s.err = fmt.Errorf("read samples: %w", err)
		}
	}
}

// ParseLine parses "x,y,z" or "x,y,z,ts". Fields may also be separated by
// whitespace.
func ParseLine(line string) (orientation.Sample, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 && len(fields) != 4 {
		return orientation.Sample{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(fields))
	}

	var axes [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return orientation.Sample{}, fmt.Errorf("axis %d: %w", i, err)
		}
		axes[i] = v
	}

	sample := orientation.Sample{X: axes[0], Y: axes[1], Z: axes[2]}
	if len(fields) == 4 {
		ts, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return orientation.Sample{}, fmt.Errorf("timestamp: %w", err)
		}
		sample.Timestamp = ts
	}
	return sample, nil
}
