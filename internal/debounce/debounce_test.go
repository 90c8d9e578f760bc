package debounce

import (
	"math"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	if c.DetectInterval != 100*time.Millisecond {
		t.Errorf("DetectInterval = %v, want 100ms", c.DetectInterval)
	}
	if c.ActionCooldown != time.Second {
		t.Errorf("ActionCooldown = %v, want 1s", c.ActionCooldown)
	}
}

func TestConfig_Detect(t *testing.T) {
	c := DefaultConfig()

	tests := []struct {
		name     string
		state    State
		elapsed  time.Duration
		wantOpen bool
	}{
		{name: "first pass always runs", state: State{}, wantOpen: true},
		{name: "too soon", state: State{LastDetect: epoch}, elapsed: 50 * time.Millisecond, wantOpen: false},
		{name: "exactly the interval is still closed", state: State{LastDetect: epoch}, elapsed: 100 * time.Millisecond, wantOpen: false},
		{name: "just past the interval", state: State{LastDetect: epoch}, elapsed: 101 * time.Millisecond, wantOpen: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := epoch.Add(tt.elapsed)
			open, next := c.Detect(now, tt.state)

			if open != tt.wantOpen {
				t.Errorf("Detect() = %v, want %v", open, tt.wantOpen)
			}
			if open && !next.LastDetect.Equal(now) {
				t.Errorf("LastDetect = %v, want %v", next.LastDetect, now)
			}
			if !open && next != tt.state {
				t.Errorf("closed gate changed state: %+v -> %+v", tt.state, next)
			}
		})
	}
}

func TestConfig_Action(t *testing.T) {
	c := DefaultConfig()

	tests := []struct {
		name     string
		state    State
		elapsed  time.Duration
		wantOpen bool
	}{
		{name: "first action always fires", state: State{}, wantOpen: true},
		{name: "inside cooldown", state: State{LastAction: epoch}, elapsed: 500 * time.Millisecond, wantOpen: false},
		{name: "exactly the cooldown fires", state: State{LastAction: epoch}, elapsed: time.Second, wantOpen: true},
		{name: "after cooldown", state: State{LastAction: epoch}, elapsed: 1100 * time.Millisecond, wantOpen: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := epoch.Add(tt.elapsed)
			open, next := c.Action(now, tt.state)

			if open != tt.wantOpen {
				t.Errorf("Action() = %v, want %v", open, tt.wantOpen)
			}
			if open && !next.LastAction.Equal(now) {
				t.Errorf("LastAction = %v, want %v", next.LastAction, now)
			}
			if !open && next != tt.state {
				t.Errorf("closed gate changed state: %+v -> %+v", tt.state, next)
			}
		})
	}
}

func TestConfig_GatesAreIndependent(t *testing.T) {
	c := DefaultConfig()

	_, s := c.Action(epoch, State{})
	open, _ := c.Detect(epoch.Add(time.Millisecond), s)
	if !open {
		t.Error("an action must not close the detect-gate")
	}

	_, s = c.Detect(epoch, State{})
	open, _ = c.Action(epoch.Add(time.Millisecond), s)
	if !open {
		t.Error("a detection pass must not close the action-gate")
	}
}

// steps returns an uneven but deterministic sequence of loop iteration gaps.
func steps(n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = time.Duration(7+(i*37)%61) * time.Millisecond
	}
	return out
}

func TestController_DetectRate(t *testing.T) {
	clock := NewFakeClock(epoch)
	c := New(DefaultConfig(), clock)

	var passes []time.Time
	for _, d := range steps(2000) {
		clock.Advance(d)
		if now, ok := c.TryDetect(); ok {
			passes = append(passes, now)
		}
	}

	interval := DefaultConfig().DetectInterval
	for _, window := range []time.Duration{interval, 250 * time.Millisecond, time.Second, 3 * time.Second} {
		limit := int(math.Ceil(float64(window)/float64(interval))) + 1
		for i := range passes {
			count := 0
			for j := i; j < len(passes) && passes[j].Sub(passes[i]) < window; j++ {
				count++
			}
			if count > limit {
				t.Fatalf("window %v starting at pass %d holds %d passes, limit %d", window, i, count, limit)
			}
		}
	}
}

func TestController_ActionSpacing(t *testing.T) {
	clock := NewFakeClock(epoch)
	c := New(DefaultConfig(), clock)

	var fired []time.Time
	for _, d := range steps(2000) {
		clock.Advance(d)
		// Two hits in the same instant stand in for both angles of one pass.
		for k := 0; k < 2; k++ {
			if now, ok := c.TryAction(); ok {
				fired = append(fired, now)
			}
		}
	}

	if len(fired) < 2 {
		t.Fatalf("expected several actions, got %d", len(fired))
	}
	for i := 1; i < len(fired); i++ {
		if gap := fired[i].Sub(fired[i-1]); gap < time.Second {
			t.Fatalf("actions %d and %d are %v apart", i-1, i, gap)
		}
	}
}

func TestController_CooldownScenario(t *testing.T) {
	clock := NewFakeClock(epoch)
	c := New(DefaultConfig(), clock)

	if _, ok := c.TryAction(); !ok {
		t.Fatal("first hit should fire")
	}

	clock.Advance(500 * time.Millisecond)
	if _, ok := c.TryAction(); ok {
		t.Error("hit at +0.5s should be dropped")
	}

	clock.Advance(600 * time.Millisecond)
	if _, ok := c.TryAction(); !ok {
		t.Error("hit at +1.1s should fire")
	}

	if want := epoch.Add(1100 * time.Millisecond); !c.State().LastAction.Equal(want) {
		t.Errorf("LastAction = %v, want %v", c.State().LastAction, want)
	}
}

func TestNew_NilClockUsesSystemClock(t *testing.T) {
	c := New(DefaultConfig(), nil)

	before := time.Now()
	now, ok := c.TryDetect()
	if !ok {
		t.Fatal("first pass should run")
	}
	if now.Before(before) {
		t.Errorf("TryDetect() time %v is before %v", now, before)
	}
}

func TestFakeClock(t *testing.T) {
	clock := NewFakeClock(epoch)

	clock.Advance(time.Second)
	clock.Sleep(500 * time.Millisecond)

	if got := clock.Now(); !got.Equal(epoch.Add(1500 * time.Millisecond)) {
		t.Errorf("Now() = %v", got)
	}
}
