package gaze

import (
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/Exiv-ai/exiv-gaze/pkg/camera"
	"github.com/Exiv-ai/exiv-gaze/pkg/gaze/detection"
)

// frameSource lets tests substitute the camera stream.
type frameSource interface {
	Read(dst *gocv.Mat) bool
	FrameAdvanced() bool
	Close() error
}

var _ frameSource = (*camera.Stream)(nil)

// acceleratedCapture feeds live frames straight to the engine at high
// rate, maintaining the strictly-increasing timestamp contract.
type acceleratedCapture struct {
	source frameSource
	engine detection.Engine
	frame  gocv.Mat
	lastTS int64
}

func newAcceleratedCapture(source frameSource, engine detection.Engine) *acceleratedCapture {
	return &acceleratedCapture{
		source: source,
		engine: engine,
		frame:  gocv.NewMat(),
	}
}

func (c *acceleratedCapture) capture() ([][]detection.Landmark, error) {
	if !c.source.Read(&c.frame) {
		return nil, nil // no readable frame yet
	}
	// Polling runs faster than the camera delivers; skip frames the
	// device is re-serving rather than reprocessing them
	if !c.source.FrameAdvanced() {
		return nil, nil
	}

	ts := time.Now().UnixMicro()
	if ts <= c.lastTS {
		// Wall clock stalled inside one tick; synthesize the next
		// timestamp to keep the engine's ordering contract
		ts = c.lastTS + 1
	}
	c.lastTS = ts

	return c.engine.DetectLive(c.frame, ts)
}

func (c *acceleratedCapture) close() {
	c.frame.Close()
}

// fallbackCapture downsamples frames onto a small offscreen surface and
// runs single-image detection, trading latency and resolution for
// portability.
type fallbackCapture struct {
	source frameSource
	engine detection.Engine
	frame  gocv.Mat
	small  gocv.Mat
	size   image.Point
}

func newFallbackCapture(source frameSource, engine detection.Engine, width, height int) *fallbackCapture {
	return &fallbackCapture{
		source: source,
		engine: engine,
		frame:  gocv.NewMat(),
		small:  gocv.NewMat(),
		size:   image.Pt(width, height),
	}
}

func (c *fallbackCapture) capture() ([][]detection.Landmark, error) {
	if !c.source.Read(&c.frame) || c.frame.Empty() {
		return nil, nil
	}
	if !c.source.FrameAdvanced() {
		return nil, nil
	}

	gocv.Resize(c.frame, &c.small, c.size, 0, 0, gocv.InterpolationArea)
	return c.engine.Detect(c.small)
}

func (c *fallbackCapture) close() {
	c.small.Close()
	c.frame.Close()
}
