package types

import "time"

// FeedStatus describes the accelerometer feed of the daemon.
// This struct is shared between the daemon and client packages.
type FeedStatus struct {
	Source           string    `json:"source"`
	Running          bool      `json:"running"`
	Samples          uint64    `json:"samples"`
	SamplesPerSecond float64   `json:"samplesPerSecond"`
	LastSample       time.Time `json:"lastSample,omitempty"`
	LastError        string    `json:"lastError,omitempty"`
}

// RecalibrationStatus describes the periodic recalibration reminder.
type RecalibrationStatus struct {
	Schedule string    `json:"schedule"`
	Running  bool      `json:"running"`
	NextRun  time.Time `json:"nextRun,omitempty"`
}
