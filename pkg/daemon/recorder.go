package daemon

import (
	"sync"
	"time"
)

// TimeSeriesRecorder records the arrival times of the last N samples.
type TimeSeriesRecorder struct {
	MaxRecordCount int
	Records        []time.Time
	mu             *sync.Mutex
}

// NewTimeSeriesRecorder returns a new TimeSeriesRecorder.
func NewTimeSeriesRecorder(maxRecordCount int) *TimeSeriesRecorder {
	return &TimeSeriesRecorder{
		MaxRecordCount: maxRecordCount,
		Records:        make([]time.Time, 0),
		mu:             &sync.Mutex{},
	}
}

// AddRecordNow adds a new record with the current time.
func (r *TimeSeriesRecorder) AddRecordNow() {
	r.AddRecord(time.Now())
}

// AddRecord adds a new record.
func (r *TimeSeriesRecorder) AddRecord(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading.
	t = t.Round(0)

	if len(r.Records) >= r.MaxRecordCount {
		r.Records = r.Records[1:]
	}
	r.Records = append(r.Records, t)
}

// ClearRecords clears all records.
func (r *TimeSeriesRecorder) ClearRecords() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Records = make([]time.Time, 0)
}

// Last returns the most recent record, or the zero time.
func (r *TimeSeriesRecorder) Last() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Records) == 0 {
		return time.Time{}
	}
	return r.Records[len(r.Records)-1]
}

// RateIn returns the number of records per second that arrived within the
// last duration, measured at now.
func (r *TimeSeriesRecorder) RateIn(last time.Duration, now time.Time) float64 {
	if last <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i := len(r.Records) - 1; i >= 0; i-- {
		if now.Sub(r.Records[i]) > last {
			break
		}
		count++
	}

	return float64(count) / last.Seconds()
}
