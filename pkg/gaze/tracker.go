package gaze

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/Exiv-ai/exiv-gaze/internal/log"
	"github.com/Exiv-ai/exiv-gaze/pkg/camera"
	"github.com/Exiv-ai/exiv-gaze/pkg/gaze/detection"
)

// Status is the externally observable lifecycle state
type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusRequesting Status = "requesting"
	StatusActive     Status = "active"
	StatusDenied     Status = "denied"
	StatusError      Status = "error"
	StatusStopped    Status = "stopped"
)

// Mode labels reported to consumers
const (
	modeAccelerated      = "accelerated"
	modeFallback         = "fallback"
	modeFallbackRecovery = "fallback (recovered from accelerated failure)"
)

// Publisher receives each computed sample as a fire-and-forget broadcast
type Publisher interface {
	Publish(Sample)
}

// State is a snapshot of the tracker for status consumers
type State struct {
	SessionID string  `json:"session_id"`
	Status    Status  `json:"status"`
	Error     string  `json:"error,omitempty"`
	Mode      string  `json:"mode,omitempty"`
	Renderer  string  `json:"renderer,omitempty"`
	Sample    *Sample `json:"sample,omitempty"`
}

// engineFactory and streamOpener let tests substitute fakes for the real
// inference engine and capture device
type engineFactory func(mode detection.Mode, cfg detection.Config) (detection.Engine, error)
type streamOpener func(cfg camera.Config) (frameSource, error)

type captureAdapter interface {
	capture() ([][]detection.Landmark, error)
	close()
}

// Tracker is the top-level controller: it probes capabilities, builds the
// inference engine, acquires the camera, runs the matching detection loop
// and guarantees full teardown. At most one engine and one loop exist at
// any time.
type Tracker struct {
	config    Config
	engineCfg detection.Config
	resolver  *Resolver
	publisher Publisher
	cameras   *camera.Manager

	// OnPreview, when set, receives throttled JPEG preview frames
	OnPreview func(jpeg []byte)

	// Seams for tests
	newEngine  engineFactory
	openStream streamOpener
	probe      func() detection.Verdict
	smokeTest  func(detection.Engine) error

	cancelled atomic.Bool

	mu         sync.RWMutex
	status     Status
	errMsg     string
	modeLabel  string
	sessionID  string
	verdict    detection.Verdict
	lastSample *Sample

	// Session resources, released in reverse acquisition order
	engine  detection.Engine
	stream  frameSource
	adapter captureAdapter
	loop    *Loop

	lastPreview    time.Time
	previewQuality int
}

// NewTracker creates a tracker. cameras supplies the managed capture
// configuration; publisher may be nil.
func NewTracker(cfg Config, engineCfg detection.Config, cameras *camera.Manager, publisher Publisher) *Tracker {
	return &Tracker{
		config:    cfg,
		engineCfg: engineCfg,
		resolver:  NewResolver(cfg.ScreenWidth, cfg.ScreenHeight),
		publisher: publisher,
		cameras:   cameras,
		newEngine: func(mode detection.Mode, c detection.Config) (detection.Engine, error) {
			return detection.NewFaceMesh(mode, c)
		},
		openStream: func(c camera.Config) (frameSource, error) {
			return camera.Open(c)
		},
		probe:     detection.Probe,
		smokeTest: detection.SmokeTest,
		status:    StatusIdle,
	}
}

// SetPublisher replaces the sample publisher. Call before Start.
func (t *Tracker) SetPublisher(p Publisher) {
	t.mu.Lock()
	t.publisher = p
	t.mu.Unlock()
}

// Start runs the full initialization sequence and begins tracking.
// It returns once the detection loop is running (or initialization
// failed). Cancelling ctx stops the session.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.status == StatusLoading || t.status == StatusRequesting || t.status == StatusActive {
		t.mu.Unlock()
		return fmt.Errorf("tracker already running")
	}
	t.cancelled.Store(false)
	t.sessionID = uuid.New().String()
	t.status = StatusLoading
	t.errMsg = ""
	t.lastSample = nil
	t.mu.Unlock()

	engine, mode, err := t.initEngine()
	if err != nil {
		t.fail(StatusError, err)
		return err
	}
	if !t.install(func() { t.engine = engine }) {
		engine.Close()
		return context.Canceled
	}

	t.setStatus(StatusRequesting)

	camCfg := t.captureConfig(mode)
	t.mu.Lock()
	t.previewQuality = camCfg.Quality
	t.mu.Unlock()

	stream, err := t.openStream(camCfg)
	if err != nil {
		t.teardown()
		if errors.Is(err, camera.ErrPermissionDenied) {
			t.fail(StatusDenied, err)
		} else {
			t.fail(StatusError, err)
		}
		return err
	}
	if !t.install(func() { t.stream = stream }) {
		// Cancelled mid-acquisition: discard the just-acquired stream
		// instead of installing it
		stream.Close()
		t.teardown()
		return context.Canceled
	}

	if !t.startLoop(mode, t.initialModeLabel(mode)) {
		t.teardown()
		return context.Canceled
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			t.Stop()
		}()
	}

	return nil
}

// captureConfig resolves the capture configuration for mode. The
// managed config is authoritative when a manager is attached; changes
// made through it take effect on the next session. The fallback
// strategy never captures above its tier regardless of what the
// manager stores.
func (t *Tracker) captureConfig(mode detection.Mode) camera.Config {
	cfg := camera.AcceleratedConfig()
	if t.cameras != nil {
		cfg = t.cameras.GetConfig()
	} else {
		cfg.DeviceIndex = t.config.CameraIndex
	}
	if mode != detection.ModeAccelerated {
		cfg = cfg.FallbackTier()
	}
	return cfg
}

// initEngine probes the acceleration stack and builds the engine,
// demoting to the fallback path when the accelerated one cannot be
// trusted. No separate user-visible failure state exists for a failed
// accelerated attempt.
func (t *Tracker) initEngine() (detection.Engine, detection.Mode, error) {
	verdict := t.probe()
	t.mu.Lock()
	t.verdict = verdict
	t.mu.Unlock()

	log.Info("capability probe",
		"accelerated", verdict.CanUseAccelerated,
		"renderer", verdict.Renderer,
		"reason", verdict.Reason)

	if verdict.CanUseAccelerated {
		engine, err := t.newEngine(detection.ModeAccelerated, t.engineCfg)
		if err == nil {
			if smokeErr := t.smokeTest(engine); smokeErr == nil {
				return engine, detection.ModeAccelerated, nil
			} else {
				log.Warn("accelerated engine failed smoke test, falling back", "err", smokeErr)
				engine.Close()
			}
		} else {
			log.Warn("accelerated engine creation failed, falling back", "err", err)
		}
	}

	engine, err := t.newEngine(detection.ModeFallback, t.engineCfg)
	if err != nil {
		return nil, detection.ModeFallback, fmt.Errorf("engine initialization failed on both paths: %w", err)
	}
	return engine, detection.ModeFallback, nil
}

func (t *Tracker) initialModeLabel(mode detection.Mode) string {
	if mode == detection.ModeAccelerated {
		return modeAccelerated
	}
	return modeFallback
}

// startLoop builds the capture adapter for mode and starts its loop.
// Returns false if the session was cancelled before the loop could start.
func (t *Tracker) startLoop(mode detection.Mode, label string) bool {
	t.mu.Lock()
	if t.cancelled.Load() {
		t.mu.Unlock()
		return false
	}

	var adapter captureAdapter
	var loopCfg LoopConfig
	if mode == detection.ModeAccelerated {
		a := newAcceleratedCapture(t.stream, t.engine)
		adapter = a
		loopCfg = LoopConfig{
			Interval:             t.config.AcceleratedInterval,
			StartupDelay:         t.config.AcceleratedStartupDelay,
			MaxConsecutiveErrors: t.config.MaxConsecutiveErrors,
			SmoothingAlpha:       t.config.AcceleratedAlpha,
			Capture:              a.capture,
		}
	} else {
		a := newFallbackCapture(t.stream, t.engine, t.config.DownsampleWidth, t.config.DownsampleHeight)
		adapter = a
		loopCfg = LoopConfig{
			Interval:             t.config.FallbackInterval,
			StartupDelay:         t.config.FallbackStartupDelay,
			MaxConsecutiveErrors: t.config.MaxConsecutiveErrors,
			SmoothingAlpha:       t.config.FallbackAlpha,
			Capture:              a.capture,
		}
	}
	loopCfg.OnResult = t.handleSample
	loopCfg.OnNoFace = t.handleNoFace
	loopCfg.OnExhausted = func() { go t.handleExhausted(mode) }

	loop := NewLoop(loopCfg, t.resolver)
	t.adapter = adapter
	t.loop = loop
	t.modeLabel = label
	t.status = StatusActive
	t.mu.Unlock()

	log.Info("detection loop started", "mode", label)
	loop.Start()
	return true
}

// handleExhausted reacts to a spent error budget: accelerated demotes to
// the fallback strategy, fallback stops for good.
func (t *Tracker) handleExhausted(mode detection.Mode) {
	if t.cancelled.Load() {
		return
	}

	if mode == detection.ModeFallback {
		log.Error("fallback detection exhausted its error budget, stopping")
		t.teardown()
		t.fail(StatusStopped, fmt.Errorf("gaze tracking stopped after repeated detection failures; restart to retry"))
		return
	}

	log.Warn("accelerated detection exhausted its error budget, switching to fallback")

	// Close the old loop and engine before the new ones exist; two
	// engines must never be open concurrently
	t.mu.Lock()
	loop, adapter, engine := t.loop, t.adapter, t.engine
	t.loop, t.adapter, t.engine = nil, nil, nil
	t.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
	if adapter != nil {
		adapter.close()
	}
	if engine != nil {
		engine.Close()
	}

	fallback, err := t.newEngine(detection.ModeFallback, t.engineCfg)
	if err != nil {
		t.teardown()
		t.fail(StatusError, fmt.Errorf("fallback engine creation failed: %w", err))
		return
	}
	if !t.install(func() { t.engine = fallback }) {
		fallback.Close()
		return
	}

	t.startLoop(detection.ModeFallback, modeFallbackRecovery)
}

// Stop cancels the session and releases every resource in reverse
// acquisition order: cancellation flag, loop timer, camera stream,
// engine, offscreen surface. Safe to call at any state, more than once.
func (t *Tracker) Stop() {
	t.cancelled.Store(true)
	t.teardown()

	t.mu.Lock()
	if t.status == StatusActive || t.status == StatusLoading || t.status == StatusRequesting {
		t.status = StatusStopped
	}
	t.mu.Unlock()
}

// teardown releases session resources without touching the status.
func (t *Tracker) teardown() {
	t.mu.Lock()
	loop, stream, engine, adapter := t.loop, t.stream, t.engine, t.adapter
	t.loop, t.stream, t.engine, t.adapter = nil, nil, nil, nil
	t.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
	if stream != nil {
		stream.Close()
	}
	if engine != nil {
		engine.Close()
	}
	if adapter != nil {
		adapter.close()
	}
}

// install runs fn under the lock unless the session was cancelled.
// Returns false when the caller must discard the resource instead.
func (t *Tracker) install(fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled.Load() {
		return false
	}
	fn()
	return true
}

func (t *Tracker) handleSample(s Sample) {
	t.mu.Lock()
	sample := s
	t.lastSample = &sample
	pub := t.publisher
	t.mu.Unlock()

	if pub != nil {
		pub.Publish(s)
	}
	t.emitPreview()
}

func (t *Tracker) handleNoFace() {
	s := t.resolver.CenterSample()
	t.mu.Lock()
	t.lastSample = &s
	pub := t.publisher
	t.mu.Unlock()

	if pub != nil {
		pub.Publish(s)
	}
	t.emitPreview()
}

// emitPreview pushes a throttled JPEG of the current frame to OnPreview.
func (t *Tracker) emitPreview() {
	if t.OnPreview == nil {
		return
	}

	t.mu.Lock()
	if time.Since(t.lastPreview) < 250*time.Millisecond {
		t.mu.Unlock()
		return
	}
	t.lastPreview = time.Now()
	adapter := t.adapter
	quality := t.previewQuality
	t.mu.Unlock()

	var frame *gocv.Mat
	switch a := adapter.(type) {
	case *acceleratedCapture:
		frame = &a.frame
	case *fallbackCapture:
		frame = &a.frame
	default:
		return
	}
	if frame.Empty() {
		return
	}

	if quality < 1 || quality > 100 {
		quality = camera.FallbackConfig().Quality
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame,
		[]int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return
	}
	defer buf.Close()

	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())
	t.OnPreview(jpeg)
}

// fail records a terminal failure state.
func (t *Tracker) fail(status Status, err error) {
	t.mu.Lock()
	t.status = status
	t.errMsg = err.Error()
	t.mu.Unlock()
	log.Error("tracker failed", "status", string(status), "err", err)
}

func (t *Tracker) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Status returns the current lifecycle status.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Mode returns the execution-mode label ("accelerated", "fallback", ...).
func (t *Tracker) Mode() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.modeLabel
}

// LastSample returns the most recent gaze sample, or nil before the
// first detection.
func (t *Tracker) LastSample() *Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastSample == nil {
		return nil
	}
	s := *t.lastSample
	return &s
}

// Snapshot returns the full observable state.
func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := State{
		SessionID: t.sessionID,
		Status:    t.status,
		Error:     t.errMsg,
		Mode:      t.modeLabel,
		Renderer:  t.verdict.Renderer,
	}
	if t.lastSample != nil {
		s := *t.lastSample
		st.Sample = &s
	}
	return st
}

