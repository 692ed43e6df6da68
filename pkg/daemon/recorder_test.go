package daemon

import (
	"testing"
	"time"
)

func TestTimeSeriesRecorder_RateIn(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		records []time.Duration // offsets before now
		last    time.Duration
		want    float64
	}{
		{
			name: "no records",
			last: time.Second,
			want: 0,
		},
		{
			name:    "all records in window",
			records: []time.Duration{900 * time.Millisecond, 600 * time.Millisecond, 300 * time.Millisecond, 0},
			last:    time.Second,
			want:    4,
		},
		{
			name:    "old records are ignored",
			records: []time.Duration{5 * time.Second, 4 * time.Second, 1500 * time.Millisecond, 500 * time.Millisecond},
			last:    2 * time.Second,
			want:    1,
		},
		{
			name:    "stale feed",
			records: []time.Duration{30 * time.Second, 20 * time.Second},
			last:    5 * time.Second,
			want:    0,
		},
		{
			name:    "zero window",
			records: []time.Duration{0},
			last:    0,
			want:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTimeSeriesRecorder(10)
			for _, off := range tt.records {
				r.AddRecord(now.Add(-off))
			}
			if got := r.RateIn(tt.last, now); got != tt.want {
				t.Errorf("RateIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeSeriesRecorder_MaxRecordCount(t *testing.T) {
	r := NewTimeSeriesRecorder(3)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r.AddRecord(base.Add(time.Duration(i) * time.Second))
	}

	records := r.Records
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if !records[0].Equal(base.Add(2 * time.Second)) {
		t.Errorf("oldest record = %v, want %v", records[0], base.Add(2*time.Second))
	}
	if !r.Last().Equal(base.Add(4 * time.Second)) {
		t.Errorf("Last() = %v, want %v", r.Last(), base.Add(4*time.Second))
	}

	r.ClearRecords()
	if !r.Last().IsZero() {
		t.Errorf("expected zero Last() after clear, got %v", r.Last())
	}
}
