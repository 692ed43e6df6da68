package orientation

import "math"

// Sample is a single accelerometer reading in m/s².
type Sample struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	// Timestamp is a monotonic reading in milliseconds.
	Timestamp int64 `json:"ts" yaml:"ts"`
}

// Pitch returns the tilt about the lateral axis in radians, assuming the
// device lies flat on the deck when level.
func Pitch(ax, ay, az float64) float64 {
	return math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
}

// Magnitude returns the length of the acceleration vector.
func Magnitude(ax, ay, az float64) float64 {
	return math.Sqrt(ax*ax + ay*ay + az*az)
}

func (s Sample) Pitch() float64 {
	return Pitch(s.X, s.Y, s.Z)
}

func (s Sample) Magnitude() float64 {
	return Magnitude(s.X, s.Y, s.Z)
}

// Degrees converts a pitch in radians to degrees, for logs and displays.
func Degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
