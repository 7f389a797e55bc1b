package timer

import (
	"sync"
	"time"

	"github.com/slidequiz/engine/internal/scoring"
)

// Phase names the lifecycle stage of one question's countdown.
type Phase string

const (
	// PhasePreCountdown is the grace second before deductions begin; the full
	// base value is displayed and no tick is reported.
	PhasePreCountdown Phase = "pre-countdown"
	// PhaseCountdown is the active decay window.
	PhaseCountdown Phase = "countdown"
	// PhaseExpired is terminal for the question instance.
	PhaseExpired Phase = "expired"
)

// Snapshot is the per-tick view consumed by the presentation layer.
type Snapshot struct {
	RemainingSeconds int   `json:"remainingSeconds"`
	DisplayedPoints  int   `json:"displayedPoints"`
	Phase            Phase `json:"phase"`
}

// Config describes one question's countdown.
type Config struct {
	BasePoints int
	TimeLimit  int // seconds; the calculator default applies when <= 0

	// OnTick receives the elapsed countdown seconds, starting at 1 on the
	// first countdown tick. Not invoked for the grace-period transition.
	OnTick func(elapsedSeconds int)
	// OnTimeout fires exactly once when elapsed reaches the time limit.
	OnTimeout func()
}

// Countdown is the per-question timer state machine. One instance drives one
// question attempt; a new question starts a fresh instance. All methods are
// safe for concurrent use, and Stop guarantees no callback fires afterwards,
// including a tick already scheduled for the current boundary.
type Countdown struct {
	cfg   Config
	calc  *scoring.Calculator
	sched Scheduler

	mu      sync.Mutex
	handle  Handle
	phase   Phase
	elapsed int
	stopped bool

	// deliverMu serializes callback delivery with Stop: Stop flips the stopped
	// flag and then waits on it, so once Stop returns no tick or timeout can
	// still be in flight. Callbacks must therefore not call Stop themselves.
	deliverMu sync.Mutex
}

// New builds a countdown. A nil scheduler falls back to the wall-clock ticker.
func New(cfg Config, calc *scoring.Calculator, sched Scheduler) *Countdown {
	if calc == nil {
		calc = scoring.NewCalculator(scoring.DefaultConfig())
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = calc.DefaultTimeLimit()
	}
	if sched == nil {
		sched = NewTickerScheduler()
	}
	return &Countdown{
		cfg:   cfg,
		calc:  calc,
		sched: sched,
		phase: PhasePreCountdown,
	}
}

// Start begins the grace period and schedules per-second progression.
// Calling Start more than once is a no-op.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil || c.stopped {
		return
	}
	c.handle = c.sched.Every(time.Second, c.step)
}

// Stop halts ticking immediately without invoking OnTimeout. Safe to call
// repeatedly and after expiry.
func (c *Countdown) Stop() {
	c.mu.Lock()
	handle := c.handle
	c.stopped = true
	c.mu.Unlock()
	if handle != nil {
		handle.Cancel()
	}
	// Drain any delivery that raced past the stopped check.
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
}

// Snapshot returns the current display state.
func (c *Countdown) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Elapsed returns countdown seconds consumed so far (0 during the grace period).
func (c *Countdown) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Phase returns the current lifecycle stage.
func (c *Countdown) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Countdown) snapshotLocked() Snapshot {
	remaining := c.cfg.TimeLimit - c.elapsed
	if remaining < 0 {
		remaining = 0
	}
	points := c.calc.AwardedPoints(c.cfg.BasePoints, c.elapsed, c.cfg.TimeLimit)
	if c.phase == PhaseExpired {
		remaining = 0
		points = 0
	}
	return Snapshot{
		RemainingSeconds: remaining,
		DisplayedPoints:  points,
		Phase:            c.phase,
	}
}

// step advances one second. Callbacks run outside the state lock so they may
// read Snapshot without deadlocking, but under deliverMu so Stop can fence
// them out.
func (c *Countdown) step() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.stopped || c.phase == PhaseExpired {
		c.mu.Unlock()
		return
	}

	if c.phase == PhasePreCountdown {
		// Grace second elapsed; decay starts on the next tick.
		c.phase = PhaseCountdown
		c.mu.Unlock()
		return
	}

	c.elapsed++
	elapsed := c.elapsed
	expired := elapsed >= c.cfg.TimeLimit
	var handle Handle
	if expired {
		c.phase = PhaseExpired
		handle = c.handle
	}
	onTick := c.cfg.OnTick
	onTimeout := c.cfg.OnTimeout
	c.mu.Unlock()

	if expired {
		if handle != nil {
			handle.Cancel()
		}
		if onTimeout != nil {
			onTimeout()
		}
		return
	}
	if onTick != nil {
		onTick(elapsed)
	}
}
