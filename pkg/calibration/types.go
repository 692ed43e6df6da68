package calibration

import "github.com/treadgrade/treadgrade/pkg/orientation"

// Phase defines phases of the incline calibration.
type Phase string

const (
	// PhaseOff means manual grade entry. The sensor is ignored.
	PhaseOff Phase = "Off"
	// PhaseAwaiting means sensor mode is on but the grade is not trusted
	// until the user confirms the device is level.
	PhaseAwaiting Phase = "AwaitingCalibration"
	// PhaseCalibrated means the sensor-derived grade is trusted.
	PhaseCalibrated Phase = "Calibrated"
)

// EventKind defines what happened.
type EventKind string

const (
	EventToggleSensorMode   EventKind = "ToggleSensorMode"
	EventSetSensorMode      EventKind = "SetSensorMode"
	EventConfirmCalibration EventKind = "ConfirmCalibration"
	EventSample             EventKind = "Sample"
	EventOrientationChange  EventKind = "OrientationChange"
	// EventExpire invalidates a calibration that has been trusted for too
	// long. It is raised by the recalibration schedule.
	EventExpire EventKind = "Expire"
)

// Event is a single input to the machine. Enabled is only read for
// EventSetSensorMode and Sample only for EventSample.
type Event struct {
	Kind    EventKind          `json:"kind"`
	Enabled bool               `json:"enabled,omitempty"`
	Sample  orientation.Sample `json:"sample,omitempty"`
}

// State holds the calibration state of a session.
type State struct {
	SensorMode      bool `json:"sensorMode"`
	Calibrated      bool `json:"calibrated"`
	ShowCalibration bool `json:"showCalibration"`
	FallDetected    bool `json:"fallDetected"`

	// Pitches are in radians.
	CalibrationPitch float64 `json:"calibrationPitch"`
	LatestPitch      float64 `json:"latestPitch"`

	// Baseline for jolt detection.
	LastAccelMagnitude float64 `json:"lastAccelMagnitude"`
	LastAccelTimestamp int64   `json:"lastAccelTimestamp"`
}

// Phase derives the machine phase from the flags.
func (s State) Phase() Phase {
	switch {
	case !s.SensorMode:
		return PhaseOff
	case s.Calibrated:
		return PhaseCalibrated
	default:
		return PhaseAwaiting
	}
}

// Valid reports whether the flag invariants hold.
func (s State) Valid() bool {
	if s.Calibrated && !s.SensorMode {
		return false
	}
	if s.SensorMode && !s.Calibrated && !s.ShowCalibration {
		return false
	}
	return true
}
