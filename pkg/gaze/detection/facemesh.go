package detection

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// Face mesh ONNX output layer names
const (
	landmarksLayer = "landmarks"
	scoreLayer     = "score"
)

// FaceMesh runs the MediaPipe face mesh model through OpenCV's DNN module.
// The accelerated mode targets CUDA; the fallback mode stays on the CPU.
type FaceMesh struct {
	net    gocv.Net
	config Config
	mode   Mode

	mu     sync.Mutex // Protects inference and timestamp state
	lastTS int64
	closed bool
}

// NewFaceMesh creates a landmark engine for the given execution mode
func NewFaceMesh(mode Mode, cfg Config) (*FaceMesh, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load face mesh model from %s", cfg.ModelPath)
	}

	var backend gocv.NetBackendType
	var target gocv.NetTargetType
	if mode == ModeAccelerated {
		backend = gocv.NetBackendCUDA
		target = gocv.NetTargetCUDA
	} else {
		backend = gocv.NetBackendDefault
		target = gocv.NetTargetCPU
	}

	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("set %s backend: %w", mode, err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("set %s target: %w", mode, err)
	}

	return &FaceMesh{
		net:    net,
		config: cfg,
		mode:   mode,
		lastTS: -1,
	}, nil
}

// Mode returns the execution mode this engine was created with
func (f *FaceMesh) Mode() Mode {
	return f.mode
}

// Detect finds zero or one face in a still image
func (f *FaceMesh) Detect(img gocv.Mat) ([][]Landmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detect(img)
}

// DetectLive runs detection on a live video frame. The timestamp must be
// strictly greater than the one passed to the previous call.
func (f *FaceMesh) DetectLive(img gocv.Mat, timestampMicros int64) ([][]Landmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if timestampMicros <= f.lastTS {
		return nil, fmt.Errorf("timestamp %d not after previous %d", timestampMicros, f.lastTS)
	}
	f.lastTS = timestampMicros

	return f.detect(img)
}

func (f *FaceMesh) detect(img gocv.Mat) ([][]Landmark, error) {
	if f.closed {
		return nil, fmt.Errorf("engine closed")
	}
	if img.Empty() {
		return nil, nil
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0,
		image.Pt(f.config.InputWidth, f.config.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	f.net.SetInput(blob, "")

	outputs := f.net.ForwardLayers([]string{landmarksLayer, scoreLayer})
	if len(outputs) < 2 {
		for i := range outputs {
			outputs[i].Close()
		}
		return nil, fmt.Errorf("unexpected model output count: %d", len(outputs))
	}
	coords := outputs[0]
	score := outputs[1]
	defer coords.Close()
	defer score.Close()

	presence := sigmoid(float64(score.GetFloatAt(0, 0)))
	if presence < f.config.ScoreThresh {
		return nil, nil
	}

	// Output is a flat (x, y, z) triple per landmark in input pixel space
	flat := coords.Reshape(1, 1)
	defer flat.Close()

	total := flat.Cols()
	count := total / 3
	if count < MinLandmarksForIris {
		// Model without iris refinement; still report what it produced
		// and let the resolver decide the set is unusable.
		if count == 0 {
			return nil, nil
		}
	}

	landmarks := make([]Landmark, count)
	for i := 0; i < count; i++ {
		landmarks[i] = Landmark{
			X: float64(flat.GetFloatAt(0, i*3)) / float64(f.config.InputWidth),
			Y: float64(flat.GetFloatAt(0, i*3+1)) / float64(f.config.InputHeight),
		}
	}

	return [][]Landmark{landmarks}, nil
}

// Close releases the network
func (f *FaceMesh) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.net.Close()
}

// SmokeTest verifies an engine survives one real inference pass.
// Some accelerated backends initialize cleanly but crash on first use,
// so a blank frame is pushed through before the engine is trusted.
func SmokeTest(e Engine) error {
	frame := gocv.NewMatWithSize(192, 192, gocv.MatTypeCV8UC3)
	defer frame.Close()

	_, err := e.Detect(frame)
	return err
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
