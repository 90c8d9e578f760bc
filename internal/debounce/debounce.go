// Package debounce rate-limits how often tilt detection runs and how often
// a page turn may be emitted.
package debounce

import "time"

// Default gate intervals.
const (
	// DefaultDetectInterval bounds detection CPU cost independently of the camera frame rate.
	DefaultDetectInterval = 100 * time.Millisecond
	// DefaultActionCooldown is the minimum time between two emitted turns.
	DefaultActionCooldown = time.Second
)

// Config holds the two gate intervals.
type Config struct {
	DetectInterval time.Duration
	ActionCooldown time.Duration
}

// DefaultConfig returns a Config with the default intervals.
func DefaultConfig() Config {
	return Config{
		DetectInterval: DefaultDetectInterval,
		ActionCooldown: DefaultActionCooldown,
	}
}

// State is the timing state shared by both gates. The zero value means
// nothing has happened yet and both gates are open.
type State struct {
	LastDetect time.Time
	LastAction time.Time
}

// Detect decides whether a detection pass may run at now. A pass runs only
// if strictly more than DetectInterval has elapsed since the last one; on
// running, LastDetect becomes now whatever the pass finds.
func (c Config) Detect(now time.Time, s State) (bool, State) {
	if !s.LastDetect.IsZero() && now.Sub(s.LastDetect) <= c.DetectInterval {
		return false, s
	}
	s.LastDetect = now
	return true, s
}

// Action decides whether a turn may be emitted at now. It fires if at
// least ActionCooldown has elapsed since the last attempt. A refused hit
// is dropped, not queued.
func (c Config) Action(now time.Time, s State) (bool, State) {
	if !s.LastAction.IsZero() && now.Sub(s.LastAction) < c.ActionCooldown {
		return false, s
	}
	s.LastAction = now
	return true, s
}

// Controller applies a Config to the state it owns, reading time from a
// Clock. It is owned by the control loop and is not safe for concurrent use.
type Controller struct {
	config Config
	clock  Clock
	state  State
}

// New creates a Controller. A nil clock uses the system clock.
func New(config Config, clock Clock) *Controller {
	if clock == nil {
		clock = SystemClock()
	}
	return &Controller{
		config: config,
		clock:  clock,
	}
}

// TryDetect opens the detect-gate if allowed and returns the time used.
func (c *Controller) TryDetect() (time.Time, bool) {
	now := c.clock.Now()
	ok, next := c.config.Detect(now, c.state)
	c.state = next
	return now, ok
}

// TryAction opens the action-gate if allowed and returns the time used.
// Callers must call it before the emit attempt so a failed emit still
// consumes the cooldown.
func (c *Controller) TryAction() (time.Time, bool) {
	now := c.clock.Now()
	ok, next := c.config.Action(now, c.state)
	c.state = next
	return now, ok
}

// State returns a copy of the current timing state.
func (c *Controller) State() State {
	return c.state
}

// Config returns the gate intervals.
func (c *Controller) Config() Config {
	return c.config
}
