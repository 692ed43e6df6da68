package types

import "github.com/treadgrade/treadgrade/pkg/calibration"

// Conversion is the result of converting an incline workout to its flat
// equivalent.
type Conversion struct {
	Speed     float64 `json:"speed"`
	Grade     float64 `json:"grade"`
	FlatSpeed float64 `json:"flatSpeed"`
	Pace      float64 `json:"pace"`
	FlatPace  float64 `json:"flatPace"`
}

// CalibrationInfo is the raw calibration state plus its derived phase.
type CalibrationInfo struct {
	Phase calibration.Phase `json:"phase"`
	calibration.State
}
