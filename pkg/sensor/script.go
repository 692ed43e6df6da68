package sensor

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/treadgrade/treadgrade/pkg/orientation"
)

// Script is a recorded accelerometer session.
//
// YAML schema (v1):
//
//	version: 1
//	loop: false
//	samples:
//	  - t: 0s
//	    x: 0
//	    y: 0
//	    z: 9.81
//	  - t: 250ms
//	    x: -0.49
//	    y: 0
//	    z: 9.79
//
// Sample times must be non-decreasing.
type Script struct {
	Version int           `yaml:"version"`
	Loop    bool          `yaml:"loop"`
	Samples []ScriptFrame `yaml:"samples"`
}

// ScriptFrame is a time-stamped reading, relative to the start of the script.
type ScriptFrame struct {
	T time.Duration `yaml:"t"`
	X float64       `yaml:"x"`
	Y float64       `yaml:"y"`
	Z float64       `yaml:"z"`
}

// LoadScript reads and validates a YAML script from path.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, pkgerrors.Wrapf(err, "failed to read script %s", path)
	}
	return ParseScriptYAML(b)
}

// ParseScriptYAML unmarshals and validates a YAML script.
func ParseScriptYAML(b []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Script{}, pkgerrors.Wrap(err, "failed to unmarshal script")
	}
	if s.Version != 1 {
		return Script{}, fmt.Errorf("unsupported script version %d", s.Version)
	}
	if len(s.Samples) == 0 {
		return Script{}, fmt.Errorf("script has no samples")
	}
	if !sort.SliceIsSorted(s.Samples, func(i, j int) bool { return s.Samples[i].T < s.Samples[j].T }) {
		return Script{}, fmt.Errorf("script samples must be sorted by t")
	}
	for i, f := range s.Samples {
		if f.T < 0 {
			return Script{}, fmt.Errorf("sample %d has negative t %s", i, f.T)
		}
	}
	return s, nil
}

// Duration is the time of the last sample.
func (s Script) Duration() time.Duration {
	if len(s.Samples) == 0 {
		return 0
	}
	return s.Samples[len(s.Samples)-1].T
}

// ScriptSource replays a Script. With Realtime set, samples are delivered
// at their scripted offsets; otherwise they are delivered back to back with
// their scripted timestamps. Timestamps are offsets from the clock reading
// taken when the source is created, so a reopened script continues the
// timeline of the previous one.
type ScriptSource struct {
	script   Script
	realtime bool
	base     int64

	start  time.Time
	index  int
	pass   int
	closed bool

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScriptSource replays script. A nil clock starts the timeline at 0.
func NewScriptSource(script Script, realtime bool, clock Clock) *ScriptSource {
	s := &ScriptSource{
		script:   script,
		realtime: realtime,
		sleep:    sleepContext,
	}
	if clock != nil {
		s.base = clock()
	}
	return s
}

func (s *ScriptSource) Next(ctx context.Context) (orientation.Sample, error) {
	if s.closed {
		return orientation.Sample{}, io.EOF
	}
	if s.index >= len(s.script.Samples) {
		if !s.script.Loop {
			return orientation.Sample{}, io.EOF
		}
		s.index = 0
		s.pass++
	}

	f := s.script.Samples[s.index]
	// Leave one period between passes so timestamps keep increasing.
	offset := f.T + time.Duration(s.pass)*(s.script.Duration()+s.period())

	if s.realtime {
		if s.start.IsZero() {
			s.start = time.Now()
		}
		if err := s.sleep(ctx, time.Until(s.start.Add(offset))); err != nil {
			return orientation.Sample{}, err
		}
	} else if err := ctx.Err(); err != nil {
		return orientation.Sample{}, err
	}

	s.index++
	return orientation.Sample{X: f.X, Y: f.Y, Z: f.Z, Timestamp: s.base + offset.Milliseconds()}, nil
}

func (s *ScriptSource) Close() error {
	s.closed = true
	return nil
}

func (s *ScriptSource) period() time.Duration {
	n := len(s.script.Samples)
	if n < 2 {
		return time.Second
	}
	if p := s.script.Samples[n-1].T - s.script.Samples[n-2].T; p > 0 {
		return p
	}
	return time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
