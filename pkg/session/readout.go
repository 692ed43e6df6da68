package session

import (
	"github.com/treadgrade/treadgrade/pkg/calibration"
	"github.com/treadgrade/treadgrade/pkg/incline"
)

// Sensor status labels.
const (
	StatusOn                  = "ON"
	StatusCalibrationRequired = "CALIBRATION REQUIRED"
	StatusOff                 = "OFF"
)

// Grade sources.
const (
	GradeSourceManual = "manual"
	GradeSourceSensor = "sensor"
)

// Calibration banner texts.
const (
	BannerCalibrate = "Place the device flat on the treadmill deck with the belt level, then confirm calibration."
	BannerFall      = "Movement detected. Place the device back on the treadmill deck and recalibrate."
)

// Readout is everything a display needs to render the session.
type Readout struct {
	Speed        float64           `json:"speed"`
	SpeedUnit    string            `json:"speedUnit"`
	Grade        float64           `json:"grade"`
	GradeSource  string            `json:"gradeSource"`
	ManualGrade  float64           `json:"manualGrade"`
	FlatSpeed    float64           `json:"flatSpeed"`
	Pace         float64           `json:"pace"`
	FlatPace     float64           `json:"flatPace"`
	SensorStatus string            `json:"sensorStatus"`
	Banner       string            `json:"banner,omitempty"`
	Phase        calibration.Phase `json:"phase"`
	FallDetected bool              `json:"fallDetected"`
	Foreground   bool              `json:"foreground"`
}

// View holds the non-calibration inputs of a Readout.
type View struct {
	Speed       float64
	ManualGrade float64
	SpeedUnit   string
	Foreground  bool
}

// NewReadout projects a calibration state and the user's inputs into a
// Readout. It has no side effects.
func NewReadout(m calibration.Machine, st calibration.State, v View) Readout {
	r := Readout{
		Speed:        v.Speed,
		SpeedUnit:    v.SpeedUnit,
		Grade:        v.ManualGrade,
		GradeSource:  GradeSourceManual,
		ManualGrade:  v.ManualGrade,
		SensorStatus: StatusOff,
		Phase:        st.Phase(),
		FallDetected: st.FallDetected,
		Foreground:   v.Foreground,
	}

	if grade, ok := m.Grade(st); ok {
		r.Grade = grade
		r.GradeSource = GradeSourceSensor
	}

	switch r.Phase {
	case calibration.PhaseCalibrated:
		r.SensorStatus = StatusOn
	case calibration.PhaseAwaiting:
		r.SensorStatus = StatusCalibrationRequired
	}

	if st.ShowCalibration {
		r.Banner = BannerCalibrate
		if st.FallDetected {
			r.Banner = BannerFall
		}
	}

	r.FlatSpeed = incline.FlatSpeed(r.Speed, r.Grade)
	r.Pace = incline.Pace(r.Speed)
	r.FlatPace = incline.Pace(r.FlatSpeed)
	return r
}
