package gaze

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Exiv-ai/exiv-gaze/internal/log"
	"github.com/Exiv-ai/exiv-gaze/pkg/gaze/detection"
)

// errorLogLimit caps how many consecutive detection errors are logged
// before the loop goes quiet about them.
const errorLogLimit = 3

// LoopConfig parameterizes one detection loop instance. Both strategies
// are instances of the same loop; only the capture function and the
// timing knobs differ.
type LoopConfig struct {
	Interval             time.Duration
	StartupDelay         time.Duration
	MaxConsecutiveErrors int
	SmoothingAlpha       float64

	// Capture grabs a frame and runs inference. Zero landmark sets means
	// no face (or no new frame); an error counts against the budget.
	Capture func() ([][]detection.Landmark, error)

	// OnResult receives each successfully resolved sample
	OnResult func(Sample)
	// OnNoFace fires on ticks where detection ran but found nothing usable
	OnNoFace func()
	// OnExhausted fires exactly once when the error budget is spent;
	// the loop stops rescheduling itself afterwards
	OnExhausted func()
}

// Loop is a timed, self-rescheduling detection loop. Ticks are strictly
// sequential: a tick never starts before the previous one finished and
// rescheduled.
type Loop struct {
	cfg      LoopConfig
	resolver *Resolver

	smoothed  Point // owned by the run goroutine
	errCount  int
	cancelled atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewLoop creates a detection loop. It does not start ticking until Start.
func NewLoop(cfg LoopConfig, resolver *Resolver) *Loop {
	return &Loop{
		cfg:      cfg,
		resolver: resolver,
		smoothed: CenterPoint(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins ticking after the configured startup delay.
func (l *Loop) Start() {
	go l.run()
}

// Stop cancels the loop and waits for the in-flight tick, if any, to
// finish. The cancellation flag is set before the timer is cleared so a
// just-fired tick observes it before doing new work. Idempotent.
func (l *Loop) Stop() {
	l.cancelled.Store(true)
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)

	timer := time.NewTimer(l.cfg.StartupDelay)
	defer timer.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-timer.C:
		}

		if l.cancelled.Load() {
			return
		}

		start := time.Now()
		if !l.tick() {
			return // budget exhausted
		}

		// Never lap ourselves: a slow detection pass pushes the next
		// tick out proportionally instead of queuing backlog.
		delay := l.cfg.Interval
		if stretched := time.Since(start) * 3 / 2; stretched > delay {
			delay = stretched
		}
		timer.Reset(delay)
	}
}

// tick runs one detection pass. Returns false when the loop must stop.
func (l *Loop) tick() bool {
	sets, err := l.cfg.Capture()
	if err != nil {
		l.errCount++
		if l.errCount <= errorLogLimit {
			log.Warn("detection error", "consecutive", l.errCount, "err", err)
		}
		if l.errCount >= l.cfg.MaxConsecutiveErrors {
			l.cfg.OnExhausted()
			return false
		}
		return true
	}

	if len(sets) == 0 {
		l.cfg.OnNoFace()
		return true
	}

	// Any successful detection resets the budget
	l.errCount = 0

	sample, smoothed, ok := l.resolver.Resolve(sets[0], l.smoothed, l.cfg.SmoothingAlpha)
	if !ok {
		// Below-minimum landmark set counts as no face for this tick
		l.cfg.OnNoFace()
		return true
	}

	l.smoothed = smoothed
	l.cfg.OnResult(sample)
	return true
}
