package gaze

import "time"

// Config holds all tunable parameters for gaze tracking
type Config struct {
	// Screen mapping
	ScreenWidth  int // Target display width in pixels
	ScreenHeight int // Target display height in pixels

	// Capture device
	CameraIndex int

	// Accelerated strategy (live video, GPU inference)
	AcceleratedInterval     time.Duration // Polling cadence (~30 Hz)
	AcceleratedStartupDelay time.Duration // Wait for a live frame before the first tick
	AcceleratedAlpha        float64       // Smoothing factor; frequent samples tolerate fast response

	// Fallback strategy (downsampled stills, CPU inference)
	FallbackInterval     time.Duration // Polling cadence (~4 Hz)
	FallbackStartupDelay time.Duration
	FallbackAlpha        float64 // Sparser samples need more damping

	// Error budget
	MaxConsecutiveErrors int // Failures tolerated before a strategy is abandoned

	// Fallback downsample target ("offscreen canvas" size)
	DownsampleWidth  int
	DownsampleHeight int
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		ScreenWidth:  1920,
		ScreenHeight: 1080,

		AcceleratedInterval:     33 * time.Millisecond, // ~30 Hz
		AcceleratedStartupDelay: 800 * time.Millisecond,
		AcceleratedAlpha:        0.5,

		FallbackInterval:     250 * time.Millisecond, // 4 Hz
		FallbackStartupDelay: 200 * time.Millisecond,
		FallbackAlpha:        0.3,

		MaxConsecutiveErrors: 5,

		DownsampleWidth:  160,
		DownsampleHeight: 120,
	}
}
