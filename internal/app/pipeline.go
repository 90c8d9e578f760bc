package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/pageturner/internal/capture"
	"github.com/ayusman/pageturner/internal/geometry"
)

// Run drives Step until an exit is requested or the camera fails for good.
//
// Each iteration:
// 1. Sleep the frame pause
// 2. Capture a frame and mirror it horizontally
// 3. If the detect-gate opens, evaluate both tilt angles in scan order
// 4. On a hit, emit the key if the action-gate opens
// 5. Present the frame with the last known box
// 6. Check for an exit request
func (a *App) Run(ctx context.Context) error {
	if !a.camera.IsOpen() {
		if err := a.camera.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
	}

	log.Printf("page turner running: tilt %.0f deg, detect every %v, cooldown %v",
		a.config.TiltAngle, a.config.DetectInterval, a.config.ActionCooldown)

	for {
		done, err := a.Step(ctx)
		if err != nil {
			log.Printf("page turner stopped: %v", err)
			return err
		}
		if done {
			log.Println("page turner stopped")
			return nil
		}
	}
}

// Step runs one loop iteration and reports whether the loop should exit.
// A non-nil error is unrecoverable.
func (a *App) Step(ctx context.Context) (bool, error) {
	a.sleep(a.config.FramePause)

	frame, err := a.camera.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrCameraNotOpen) {
			return true, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
		}

		a.failures++
		a.count(func(s *Stats) { s.CaptureFailures++ })
		if a.failures == 1 {
			log.Printf("error reading frame: %v", err)
		}
		if a.failures > a.config.MaxCaptureFailures {
			return true, fmt.Errorf("%w: %d consecutive failed reads: %w", ErrCaptureFailed, a.failures, err)
		}
		return a.exitRequested(ctx), nil
	}

	if a.failures > 0 {
		log.Printf("camera recovered after %d failed reads", a.failures)
		a.failures = 0
	}

	mirrored := geometry.Mirror(*frame)
	frame.Close()
	defer mirrored.Close()

	a.count(func(s *Stats) { s.Frames++ })

	if !a.IsEnabled() {
		a.lastBox = nil
	} else if _, ok := a.gates.TryDetect(); ok {
		a.detect(ctx, mirrored)
	}

	a.present(&mirrored)

	return a.exitRequested(ctx), nil
}

// detect runs one detection pass and emits at most one turn.
func (a *App) detect(ctx context.Context, frame gocv.Mat) {
	result, hit := a.evaluator.Evaluate(frame)
	a.count(func(s *Stats) { s.DetectionPasses++ })

	if !hit {
		a.lastBox = nil
		return
	}

	box := result.Box
	a.lastBox = &box
	a.count(func(s *Stats) { s.Hits++ })

	// The cooldown is consumed by the attempt, whatever its outcome.
	at, ok := a.gates.TryAction()
	if !ok {
		a.count(func(s *Stats) { s.Dropped++ })
		return
	}

	key, err := a.emitter.Emit(ctx, result.Direction)

	turn := Turn{
		ID:        uuid.NewString(),
		Direction: result.Direction,
		Key:       key,
		Angle:     result.Angle,
		Box:       result.Box,
		At:        at,
	}
	if err != nil {
		turn.Err = err.Error()
		log.Printf("page turn %s failed: %v", result.Direction, err)
	} else {
		log.Printf("page turn %s: sent %s (box %d,%d %dx%d)",
			result.Direction, key, box.X, box.Y, box.W, box.H)
	}

	a.record(turn)
}

// record stores turn as the latest and notifies observers.
func (a *App) record(turn Turn) {
	a.mu.Lock()
	a.stats.Turns++
	if !turn.OK() {
		a.stats.EmitFailures++
	}
	a.lastTurn = &turn
	observers := a.observers
	a.mu.Unlock()

	for _, o := range observers {
		o.OnTurn(turn)
	}
}

// present hands the frame to every sink, then to the display.
func (a *App) present(frame *gocv.Mat) {
	a.mu.RLock()
	sinks := a.sinks
	a.mu.RUnlock()

	for _, s := range sinks {
		s.Publish(*frame, a.lastBox)
	}
	a.display.Render(frame, a.lastBox)
}

// exitRequested polls the display and checks for a stop request.
func (a *App) exitRequested(ctx context.Context) bool {
	if a.display.Poll() {
		log.Println("exit key pressed")
		return true
	}
	return a.stop.Load() || ctx.Err() != nil
}

func (a *App) count(fn func(*Stats)) {
	a.mu.Lock()
	fn(&a.stats)
	a.mu.Unlock()
}
