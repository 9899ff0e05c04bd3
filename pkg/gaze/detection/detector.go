// Package detection provides facial landmark inference using computer vision
package detection

import "gocv.io/x/gocv"

// Landmark is one normalized facial keypoint (0-1 in frame coordinates)
type Landmark struct {
	X, Y float64
}

// MediaPipe 478-point face mesh landmark indices used for gaze estimation.
// Indices 468-477 are the iris points added by the iris refinement model.
const (
	RightEyeOuter   = 33
	RightEyeInner   = 133
	RightEyeBottom  = 145
	RightEyeTop     = 159
	LeftEyeOuter    = 263
	LeftEyeInner    = 362
	LeftEyeBottom   = 374
	LeftEyeTop      = 386
	RightIrisCenter = 468
	LeftIrisCenter  = 473

	// MinLandmarksForIris is the smallest landmark count that still
	// contains both iris centers.
	MinLandmarksForIris = 474

	// NumLandmarks is the full face mesh size.
	NumLandmarks = 478
)

// Mode selects the inference execution path
type Mode int

const (
	// ModeAccelerated runs inference on the GPU at full frame rate
	ModeAccelerated Mode = iota
	// ModeFallback runs inference on the CPU against downsampled stills
	ModeFallback
)

// String returns the mode label reported to consumers
func (m Mode) String() string {
	if m == ModeAccelerated {
		return "accelerated"
	}
	return "fallback"
}

// Engine is the interface for landmark inference backends.
// Implementations must tolerate empty input by returning zero results.
type Engine interface {
	// Detect finds zero or one face in a still image and returns its landmarks
	Detect(img gocv.Mat) ([][]Landmark, error)

	// DetectLive is Detect for live video frames. Timestamps must be
	// strictly increasing across calls; violating that is an error.
	DetectLive(img gocv.Mat, timestampMicros int64) ([][]Landmark, error)

	// Close releases resources
	Close() error
}

// Config holds engine configuration
type Config struct {
	ModelPath   string  // Path to ONNX face mesh model
	InputWidth  int     // Model input width
	InputHeight int     // Model input height
	ScoreThresh float64 // Minimum face presence score (default 0.5)
}

// DefaultConfig returns production defaults for the face mesh model
func DefaultConfig() Config {
	return Config{
		ModelPath:   "models/face_landmarker.onnx",
		InputWidth:  192,
		InputHeight: 192,
		ScoreThresh: 0.5,
	}
}
