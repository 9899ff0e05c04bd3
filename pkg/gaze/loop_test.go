package gaze

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Exiv-ai/exiv-gaze/pkg/gaze/detection"
)

// Capture outcomes for scripted loops
type outcome int

const (
	oFace outcome = iota
	oNoFace
	oErr
)

var errDetect = errors.New("detect blew up")

// scriptedCapture replays a fixed sequence of capture outcomes, then
// keeps returning its final entry.
type scriptedCapture struct {
	mu     sync.Mutex
	script []outcome
	calls  int
}

func (s *scriptedCapture) capture() ([][]detection.Landmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	switch s.script[i] {
	case oErr:
		return nil, errDetect
	case oNoFace:
		return nil, nil
	default:
		return [][]detection.Landmark{eyeLandmarks(0.5, 0.5)}, nil
	}
}

func (s *scriptedCapture) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testLoopConfig(capture func() ([][]detection.Landmark, error)) LoopConfig {
	return LoopConfig{
		Interval:             time.Millisecond,
		StartupDelay:         0,
		MaxConsecutiveErrors: 3,
		SmoothingAlpha:       0.5,
		Capture:              capture,
		OnResult:             func(Sample) {},
		OnNoFace:             func() {},
		OnExhausted:          func() {},
	}
}

func TestLoop_ErrorBudgetResetsOnSuccess(t *testing.T) {
	// error, error, success, error, error, error: with a budget of 3 the
	// loop must exhaust on the 3rd post-reset error (6th call overall),
	// not on the 3rd error overall
	capt := &scriptedCapture{script: []outcome{oErr, oErr, oFace, oErr, oErr, oErr}}

	var exhausted atomic.Int32
	done := make(chan struct{})

	cfg := testLoopConfig(capt.capture)
	cfg.OnExhausted = func() {
		exhausted.Add(1)
		close(done)
	}

	loop := NewLoop(cfg, NewResolver(1920, 1080))
	loop.Start()
	defer loop.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop never exhausted its error budget")
	}

	if got := exhausted.Load(); got != 1 {
		t.Errorf("OnExhausted fired %d times, want exactly 1", got)
	}
	if calls := capt.callCount(); calls != 6 {
		t.Errorf("exhaustion after %d captures, want 6 (budget reset by the success)", calls)
	}

	// An exhausted loop schedules no further ticks
	before := capt.callCount()
	time.Sleep(30 * time.Millisecond)
	if after := capt.callCount(); after != before {
		t.Errorf("loop kept ticking after exhaustion: %d -> %d captures", before, after)
	}
}

func TestLoop_NoFaceDoesNotResetBudget(t *testing.T) {
	// Zero faces is not a successful detection: errors on either side of
	// a no-face tick still accumulate toward the budget
	capt := &scriptedCapture{script: []outcome{oErr, oErr, oNoFace, oErr}}

	var noFaceTicks atomic.Int32
	done := make(chan struct{})

	cfg := testLoopConfig(capt.capture)
	cfg.OnNoFace = func() { noFaceTicks.Add(1) }
	cfg.OnExhausted = func() { close(done) }

	loop := NewLoop(cfg, NewResolver(1920, 1080))
	loop.Start()
	defer loop.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop never exhausted")
	}

	if calls := capt.callCount(); calls != 4 {
		t.Errorf("exhaustion after %d captures, want 4", calls)
	}
	if noFaceTicks.Load() != 1 {
		t.Errorf("no-face ticks: got %d, want 1", noFaceTicks.Load())
	}
}

func TestLoop_EmptyResultEmitsNoFace(t *testing.T) {
	var noFaceTicks atomic.Int32
	var results atomic.Int32

	cfg := testLoopConfig(func() ([][]detection.Landmark, error) {
		return nil, nil
	})
	cfg.OnNoFace = func() { noFaceTicks.Add(1) }
	cfg.OnResult = func(Sample) { results.Add(1) }

	loop := NewLoop(cfg, NewResolver(1920, 1080))
	loop.Start()

	time.Sleep(50 * time.Millisecond)
	loop.Stop()

	if noFaceTicks.Load() == 0 {
		t.Error("expected no-face callbacks for empty results")
	}
	if results.Load() != 0 {
		t.Errorf("expected no samples, got %d", results.Load())
	}
}

func TestLoop_TooFewLandmarksTreatedAsNoFace(t *testing.T) {
	var noFaceTicks atomic.Int32

	cfg := testLoopConfig(func() ([][]detection.Landmark, error) {
		return [][]detection.Landmark{make([]detection.Landmark, 100)}, nil
	})
	cfg.OnNoFace = func() { noFaceTicks.Add(1) }
	cfg.OnResult = func(Sample) { t.Error("below-minimum landmarks must not produce a sample") }

	loop := NewLoop(cfg, NewResolver(1920, 1080))
	loop.Start()

	time.Sleep(30 * time.Millisecond)
	loop.Stop()

	if noFaceTicks.Load() == 0 {
		t.Error("expected no-face callbacks")
	}
}

func TestLoop_StopPreventsFurtherTicks(t *testing.T) {
	capt := &scriptedCapture{script: []outcome{oFace}}

	loop := NewLoop(testLoopConfig(capt.capture), NewResolver(1920, 1080))
	loop.Start()

	time.Sleep(20 * time.Millisecond)
	loop.Stop()

	before := capt.callCount()
	time.Sleep(30 * time.Millisecond)
	if after := capt.callCount(); after != before {
		t.Errorf("captures continued after Stop: %d -> %d", before, after)
	}

	// Stop is idempotent
	loop.Stop()
}

func TestLoop_StartupDelay(t *testing.T) {
	capt := &scriptedCapture{script: []outcome{oFace}}

	cfg := testLoopConfig(capt.capture)
	cfg.StartupDelay = 60 * time.Millisecond

	loop := NewLoop(cfg, NewResolver(1920, 1080))
	loop.Start()
	defer loop.Stop()

	time.Sleep(20 * time.Millisecond)
	if n := capt.callCount(); n != 0 {
		t.Errorf("loop ticked %d times during the startup delay", n)
	}

	time.Sleep(80 * time.Millisecond)
	if n := capt.callCount(); n == 0 {
		t.Error("loop never started after the startup delay")
	}
}
