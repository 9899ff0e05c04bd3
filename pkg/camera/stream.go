package camera

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/Exiv-ai/exiv-gaze/internal/log"
)

// ErrPermissionDenied means the capture device exists but access was
// refused. Terminal for the session; retrying without user action is
// pointless.
var ErrPermissionDenied = errors.New("camera: permission denied")

// Stream owns one open capture device. It is acquired and released by
// exactly one tracking session at a time.
type Stream struct {
	cap    *gocv.VideoCapture
	config Config

	mu      sync.Mutex
	lastPos float64
	closed  bool
}

// Open acquires the capture device described by cfg.
// A permission failure is reported as ErrPermissionDenied; every other
// acquisition failure (device busy, no camera) comes back as a plain error.
func Open(cfg Config) (*Stream, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", errs)
	}

	if err := checkDeviceAccess(cfg.DeviceIndex); err != nil {
		return nil, err
	}

	cap, err := gocv.OpenVideoCapture(cfg.DeviceIndex)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.DeviceIndex, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("camera %d did not open", cfg.DeviceIndex)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	log.Info("camera opened",
		"device", cfg.DeviceIndex,
		"width", cap.Get(gocv.VideoCaptureFrameWidth),
		"height", cap.Get(gocv.VideoCaptureFrameHeight))

	return &Stream{cap: cap, config: cfg, lastPos: -1}, nil
}

// checkDeviceAccess distinguishes a permission refusal from other failures
// before the capture layer muddles them together.
func checkDeviceAccess(index int) error {
	path := fmt.Sprintf("/dev/video%d", index)
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err == nil {
		f.Close()
		return nil
	}
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	}
	// Missing device node is left for the capture layer to report;
	// some platforms expose cameras without /dev/video*.
	return nil
}

// Config returns the configuration the stream was opened with.
func (s *Stream) Config() Config {
	return s.config
}

// Read grabs the next frame into dst. Returns false when no frame is
// available or the stream is closed.
func (s *Stream) Read(dst *gocv.Mat) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.cap.Read(dst) && !dst.Empty()
}

// FrameAdvanced reports whether the capture position moved since the last
// call. A stalled position means the device is re-serving the same frame,
// which higher-rate polling must skip instead of reprocessing.
func (s *Stream) FrameAdvanced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	pos := s.cap.Get(gocv.VideoCapturePosMsec)
	if pos > 0 && pos == s.lastPos {
		return false
	}
	s.lastPos = pos
	return true
}

// Close releases the capture device. Safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.cap.Close()
}
