// Package incline holds the treadmill arithmetic: converting an incline and
// belt speed into the equivalent speed on flat ground, and turning a pitch
// angle into a grade.
package incline

import "math"

const (
	// MaxGrade bounds every grade, in percent, in both directions.
	MaxGrade = 30.0
	// SpeedStep is the increment used by the speed up/down controls.
	SpeedStep = 0.1
	// GradeStep is the increment used by the grade up/down controls.
	GradeStep = 0.5

	// effortFactor is the extra effort per unit of grade.
	effortFactor = 1.8
)

// FlatSpeed returns the flat-ground speed that takes the same effort as
// running at speed on the given grade (percent). Grade is not clamped here.
func FlatSpeed(speed, grade float64) float64 {
	return speed / (1 + (grade/100)*effortFactor)
}

// GradeFromPitch converts a pitch relative to level, in radians, into a
// grade in percent clamped to [-limit, limit].
func GradeFromPitch(relativePitch, limit float64) float64 {
	return ClampGrade(math.Tan(relativePitch)*100, limit)
}

// ClampGrade clamps grade to [-limit, limit].
func ClampGrade(grade, limit float64) float64 {
	if grade > limit {
		return limit
	}
	if grade < -limit {
		return -limit
	}
	return grade
}

// ClampSpeed keeps a speed from going negative.
func ClampSpeed(speed float64) float64 {
	if speed < 0 {
		return 0
	}
	return speed
}

// Round rounds v to the given number of decimal places. Stepping by 0.1
// accumulates float error, so stepped values are rounded after every step.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Pace returns minutes per unit of distance for a speed in units per hour.
// A stopped belt has no pace and returns 0.
func Pace(speed float64) float64 {
	if speed <= 0 {
		return 0
	}
	return 60 / speed
}
