// Package gaze turns webcam facial landmarks into a smoothed on-screen
// gaze point and publishes it to UI consumers.
package gaze

// Sample is one computed gaze point in screen pixels.
// Immutable; produced once per successful detection cycle.
type Sample struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence float64 `json:"confidence"`
	Fixated    bool    `json:"fixated"`
}

// Point is a normalized coordinate in [0,1]. It carries the exponential
// smoothing accumulator between detection ticks.
type Point struct {
	X, Y float64
}

// CenterPoint is the smoothing state at session start.
func CenterPoint() Point {
	return Point{X: 0.5, Y: 0.5}
}
