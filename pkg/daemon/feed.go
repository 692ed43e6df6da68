package daemon

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/orientation"
	"github.com/treadgrade/treadgrade/pkg/sensor"
	"github.com/treadgrade/treadgrade/pkg/types"
)

const (
	feedRecordCount = 256
	feedRateWindow  = 2 * time.Second
)

// sourceOpener opens the configured source. A nil source with a nil error
// means no sensor is configured.
type sourceOpener func() (sensor.Source, error)

type sampleSink func(orientation.Sample)

// sensorFeed pumps samples from a source into a sink on its own goroutine.
// It is stopped while the app is in the background and restarted on return.
type sensorFeed struct {
	open     sourceOpener
	sink     sampleSink
	recorder *TimeSeriesRecorder
	samples  atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr string
}

func newSensorFeed(open sourceOpener, sink sampleSink) *sensorFeed {
	return &sensorFeed{
		open:     open,
		sink:     sink,
		recorder: NewTimeSeriesRecorder(feedRecordCount),
	}
}

// Start subscribes to the source. Calling Start on a running feed is a
// no-op.
func (f *sensorFeed) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		return nil
	}

	src, err := f.open()
	if err != nil {
		f.lastErr = err.Error()
		return err
	}
	if src == nil {
		logrus.Debug("no sensor source configured")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done
	f.lastErr = ""

	go f.run(ctx, cancel, src, done)
	logrus.Info("sample feed started")

	return nil
}

// Stop unsubscribes from the source and waits for the pump to exit.
func (f *sensorFeed) Stop() {
	if f == nil {
		return
	}

	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	f.recorder.ClearRecords()
	logrus.Info("sample feed stopped")
}

func (f *sensorFeed) Running() bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

func (f *sensorFeed) Status() types.FeedStatus {
	if f == nil {
		return types.FeedStatus{}
	}

	f.mu.Lock()
	st := types.FeedStatus{
		Running:   f.cancel != nil,
		LastError: f.lastErr,
	}
	f.mu.Unlock()

	st.Samples = f.samples.Load()
	st.LastSample = f.recorder.Last()
	st.SamplesPerSecond = f.recorder.RateIn(feedRateWindow, time.Now())
	return st
}

func (f *sensorFeed) run(ctx context.Context, cancel context.CancelFunc, src sensor.Source, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := src.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close sensor source")
		}
	}()

	for {
		s, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			if errors.Is(err, io.EOF) {
				logrus.Info("sensor source exhausted")
			} else {
				logrus.WithError(err).Error("sensor source failed")
			}
			f.exited(done, err)
			cancel()
			return
		}

		f.sink(s)
		f.samples.Add(1)
		f.recorder.AddRecordNow()
	}
}

// exited clears the running state when the pump stops on its own.
func (f *sensorFeed) exited(done chan struct{}, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done != done {
		return
	}
	f.cancel, f.done = nil, nil
	if !errors.Is(err, io.EOF) {
		f.lastErr = err.Error()
	}
}
