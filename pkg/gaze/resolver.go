package gaze

import (
	"math"

	"github.com/Exiv-ai/exiv-gaze/pkg/gaze/detection"
)

const (
	// zeroDivisionEpsilon is below any plausible normalized eye width;
	// a denominator this small means closed or degenerate eye geometry.
	zeroDivisionEpsilon = 0.0001

	// fixationThreshold is the normalized distance from screen center
	// inside which the gaze counts as fixated.
	fixationThreshold = 0.08

	// faceConfidence is reported whenever a face is found. The engine
	// exposes no continuous confidence signal, so this stays binary
	// against the 0 reported for no-face ticks.
	faceConfidence = 0.85
)

// Resolver converts one frame's raw landmarks into a smoothed screen-space
// gaze sample. Pure computation: it never fails, it degrades to neutral
// values instead.
type Resolver struct {
	ScreenWidth  int
	ScreenHeight int
}

// NewResolver creates a resolver targeting the given screen dimensions.
func NewResolver(screenWidth, screenHeight int) *Resolver {
	return &Resolver{ScreenWidth: screenWidth, ScreenHeight: screenHeight}
}

// Resolve computes a gaze sample from raw landmarks.
// prev is the smoothing accumulator from the previous tick; alpha the
// exponential smoothing factor. Returns ok=false when the landmark set is
// too small to contain iris points — the caller treats that as "no face".
func (r *Resolver) Resolve(landmarks []detection.Landmark, prev Point, alpha float64) (Sample, Point, bool) {
	if len(landmarks) < detection.MinLandmarksForIris {
		return Sample{}, prev, false
	}

	rightX := safeRatio(
		landmarks[detection.RightIrisCenter].X-landmarks[detection.RightEyeOuter].X,
		landmarks[detection.RightEyeInner].X-landmarks[detection.RightEyeOuter].X)
	leftX := safeRatio(
		landmarks[detection.LeftIrisCenter].X-landmarks[detection.LeftEyeOuter].X,
		landmarks[detection.LeftEyeInner].X-landmarks[detection.LeftEyeOuter].X)
	rightY := safeRatio(
		landmarks[detection.RightIrisCenter].Y-landmarks[detection.RightEyeTop].Y,
		landmarks[detection.RightEyeBottom].Y-landmarks[detection.RightEyeTop].Y)
	leftY := safeRatio(
		landmarks[detection.LeftIrisCenter].Y-landmarks[detection.LeftEyeTop].Y,
		landmarks[detection.LeftEyeBottom].Y-landmarks[detection.LeftEyeTop].Y)

	// The left eye's X ratio runs opposite to the right eye's — flip to align
	rawX := (rightX + (1.0 - leftX)) / 2.0
	rawY := (rightY + leftY) / 2.0

	smoothed := Point{
		X: prev.X*(1.0-alpha) + rawX*alpha,
		Y: prev.Y*(1.0-alpha) + rawY*alpha,
	}

	sample := Sample{
		// Mirror X: a front-facing camera inverts left/right
		X:          clampInt(int((1.0-smoothed.X)*float64(r.ScreenWidth)), 0, r.ScreenWidth-1),
		Y:          clampInt(int(smoothed.Y*float64(r.ScreenHeight)), 0, r.ScreenHeight-1),
		Confidence: faceConfidence,
		Fixated:    isFixated(smoothed),
	}

	return sample, smoothed, true
}

// CenterSample is emitted when no face is detected at all: zero confidence,
// screen center, never fixated.
func (r *Resolver) CenterSample() Sample {
	return Sample{
		X:          r.ScreenWidth / 2,
		Y:          r.ScreenHeight / 2,
		Confidence: 0,
		Fixated:    false,
	}
}

// isFixated reports whether the smoothed point sits strictly inside the
// fixation radius around screen center.
func isFixated(p Point) bool {
	dx := p.X - 0.5
	dy := p.Y - 0.5
	return math.Sqrt(dx*dx+dy*dy) < fixationThreshold
}

// safeRatio guards the iris ratio division. Near-zero denominators and
// non-finite results collapse to the neutral 0.5 rather than propagating.
func safeRatio(numerator, denominator float64) float64 {
	if math.Abs(denominator) < zeroDivisionEpsilon {
		return 0.5
	}
	r := numerator / denominator
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0.5
	}
	return r
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
