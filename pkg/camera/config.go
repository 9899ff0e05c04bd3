// Package camera provides webcam capture for gaze tracking.
// Configuration follows the same pattern as pkg/gaze for tunable parameters.
package camera

// Config holds capture configuration. The accelerated strategy asks for a
// higher resolution than the fallback strategy.
type Config struct {
	DeviceIndex int `json:"device_index"` // Capture device (0 = default webcam)
	Width       int `json:"width"`        // Frame width in pixels
	Height      int `json:"height"`       // Frame height in pixels
	Framerate   int `json:"framerate"`    // Target FPS
	Quality     int `json:"quality"`      // JPEG quality for preview frames
}

// Reasonable webcam limits
const (
	MaxWidth  = 3840
	MaxHeight = 2160
)

// DefaultConfig returns the accelerated-strategy capture configuration.
func DefaultConfig() Config {
	return AcceleratedConfig()
}

// AcceleratedConfig returns the high-resolution configuration used when
// hardware-accelerated inference is available.
func AcceleratedConfig() Config {
	return Config{
		DeviceIndex: 0,
		Width:       1280,
		Height:      720,
		Framerate:   30,
		Quality:     80,
	}
}

// FallbackConfig returns the low-resolution configuration used with
// CPU inference on downsampled stills.
func FallbackConfig() Config {
	return Config{
		DeviceIndex: 0,
		Width:       640,
		Height:      480,
		Framerate:   15,
		Quality:     70,
	}
}

// FallbackTier derives the low-resolution variant of a configuration:
// each numeric knob is capped at the fallback preset so a user-managed
// high-resolution config still degrades when CPU inference is in use.
func (c Config) FallbackTier() Config {
	fb := FallbackConfig()
	fb.DeviceIndex = c.DeviceIndex
	if c.Width < fb.Width {
		fb.Width = c.Width
	}
	if c.Height < fb.Height {
		fb.Height = c.Height
	}
	if c.Framerate < fb.Framerate {
		fb.Framerate = c.Framerate
	}
	if c.Quality < fb.Quality {
		fb.Quality = c.Quality
	}
	return fb
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.DeviceIndex < 0 {
		errors = append(errors, "device_index must not be negative")
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}
