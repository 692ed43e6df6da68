package calibration

import (
	"math"

	"github.com/treadgrade/treadgrade/pkg/incline"
	"github.com/treadgrade/treadgrade/pkg/orientation"
)

const (
	DefaultJoltThreshold  = 8.0 // m/s²
	DefaultDebounceMillis = 500
)

// Machine holds the tunables of the calibration state machine. The zero
// value is not useful; use NewMachine.
type Machine struct {
	// JoltThreshold is the change in acceleration magnitude, in m/s²,
	// above which a calibrated device is considered knocked over.
	JoltThreshold float64
	// DebounceMillis is the minimum distance between two jolt evaluations.
	DebounceMillis int64
	// MaxGrade bounds the sensor grade in percent.
	MaxGrade float64
}

// NewMachine returns a Machine with the default tunables.
func NewMachine() Machine {
	return Machine{
		JoltThreshold:  DefaultJoltThreshold,
		DebounceMillis: DefaultDebounceMillis,
		MaxGrade:       incline.MaxGrade,
	}
}

// Reduce applies ev to st and returns the next state. It never mutates st.
func (m Machine) Reduce(st State, ev Event) State {
	switch ev.Kind {
	case EventToggleSensorMode:
		if st.SensorMode {
			return turnOff(st)
		}
		return turnOn(st)
	case EventSetSensorMode:
		if ev.Enabled == st.SensorMode {
			return st
		}
		if ev.Enabled {
			return turnOn(st)
		}
		return turnOff(st)
	case EventConfirmCalibration:
		if st.Phase() != PhaseAwaiting {
			return st
		}
		st.CalibrationPitch = st.LatestPitch
		st.Calibrated = true
		st.ShowCalibration = false
		st.FallDetected = false
		return st
	case EventOrientationChange, EventExpire:
		if st.Phase() != PhaseCalibrated {
			return st
		}
		return invalidate(st)
	case EventSample:
		return m.sample(st, ev.Sample)
	}
	return st
}

func (m Machine) sample(st State, s orientation.Sample) State {
	st.LatestPitch = s.Pitch()
	mag := s.Magnitude()

	if st.Phase() != PhaseCalibrated {
		// Keep the baseline fresh so the first evaluation after calibrating
		// compares against a real reading.
		st.LastAccelMagnitude = mag
		st.LastAccelTimestamp = s.Timestamp
		return st
	}

	if s.Timestamp-st.LastAccelTimestamp <= m.DebounceMillis {
		return st
	}

	jolt := math.Abs(mag-st.LastAccelMagnitude) > m.JoltThreshold
	st.LastAccelMagnitude = mag
	st.LastAccelTimestamp = s.Timestamp
	if jolt {
		st = invalidate(st)
		st.FallDetected = true
	}
	return st
}

// Grade returns the sensor-derived grade in percent. ok is false unless st
// is calibrated.
func (m Machine) Grade(st State) (grade float64, ok bool) {
	if st.Phase() != PhaseCalibrated {
		return 0, false
	}
	return incline.GradeFromPitch(st.LatestPitch-st.CalibrationPitch, m.MaxGrade), true
}

// Restore prepares a state carried over from a previous run. A calibration
// is never trusted across restarts.
func Restore(st State) State {
	if !st.SensorMode {
		return turnOff(st)
	}
	st.Calibrated = false
	st.ShowCalibration = true
	return st
}

func turnOn(st State) State {
	st.SensorMode = true
	st.Calibrated = false
	st.ShowCalibration = true
	return st
}

func turnOff(st State) State {
	st.SensorMode = false
	st.Calibrated = false
	st.ShowCalibration = false
	st.FallDetected = false
	return st
}

func invalidate(st State) State {
	st.Calibrated = false
	st.ShowCalibration = true
	return st
}
