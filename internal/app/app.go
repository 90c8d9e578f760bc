// Package app runs the page turner control loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/pageturner/internal/action"
	"github.com/ayusman/pageturner/internal/capture"
	"github.com/ayusman/pageturner/internal/debounce"
	"github.com/ayusman/pageturner/internal/detector"
	"github.com/ayusman/pageturner/internal/display"
	"github.com/ayusman/pageturner/internal/geometry"
	"github.com/ayusman/pageturner/internal/tilt"
)

// Loop defaults.
const (
	// DefaultFramePause is the sleep at the start of every iteration.
	DefaultFramePause = 40 * time.Millisecond
	// MaxCaptureFailures is the number of consecutive failed reads tolerated
	// before the loop gives up on the camera.
	MaxCaptureFailures = 100
)

// ErrCaptureFailed ends the loop when the camera cannot recover.
var ErrCaptureFailed = errors.New("camera capture failed")

// Config holds configuration options for the application.
type Config struct {
	ClassifierPath     string
	CameraID           int
	Headless           bool
	TiltAngle          float64
	DetectInterval     time.Duration
	ActionCooldown     time.Duration
	FramePause         time.Duration
	KeyTool            string
	EmitTimeout        time.Duration
	MaxCaptureFailures int
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	gates := debounce.DefaultConfig()
	return Config{
		ClassifierPath:     detector.DefaultClassifier,
		CameraID:           capture.DefaultDeviceID,
		TiltAngle:          tilt.DefaultAngle,
		DetectInterval:     gates.DetectInterval,
		ActionCooldown:     gates.ActionCooldown,
		FramePause:         DefaultFramePause,
		KeyTool:            "auto",
		MaxCaptureFailures: MaxCaptureFailures,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.ClassifierPath == "":
		return errors.New("classifier path is required")
	case c.TiltAngle == 0:
		return errors.New("tilt angle must be non-zero")
	case c.DetectInterval <= 0:
		return fmt.Errorf("detect interval must be positive, got %v", c.DetectInterval)
	case c.ActionCooldown <= 0:
		return fmt.Errorf("action cooldown must be positive, got %v", c.ActionCooldown)
	case c.FramePause < 0:
		return fmt.Errorf("frame pause must not be negative, got %v", c.FramePause)
	case c.EmitTimeout < 0:
		return fmt.Errorf("emit timeout must not be negative, got %v", c.EmitTimeout)
	}
	return nil
}

// Emitter delivers the key for a direction and returns the key it tried.
type Emitter interface {
	Emit(ctx context.Context, d tilt.Direction) (string, error)
}

// FrameSink receives every annotated frame. Implementations must copy the
// frame if they keep it.
type FrameSink interface {
	Publish(frame gocv.Mat, box *geometry.Box)
}

// Components are the collaborators the loop drives.
type Components struct {
	Camera   capture.Camera
	Detector detector.Detector
	Emitter  Emitter
	Display  display.Display
	// Clock defaults to the system clock.
	Clock debounce.Clock
	// Sleep paces the loop; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// App owns the camera, the detector, the timing state and the display.
type App struct {
	config    Config
	camera    capture.Camera
	detector  detector.Detector
	evaluator *tilt.Evaluator
	gates     *debounce.Controller
	emitter   Emitter
	display   display.Display
	clock     debounce.Clock
	sleep     func(time.Duration)

	sessionID string
	startedAt time.Time

	// loop-owned
	lastBox  *geometry.Box
	failures int

	enabled atomic.Bool
	stop    atomic.Bool

	mu        sync.RWMutex
	observers []Observer
	sinks     []FrameSink
	stats     Stats
	lastTurn  *Turn
}

// New creates an App from already acquired components.
func New(config Config, c Components) *App {
	if c.Clock == nil {
		c.Clock = debounce.SystemClock()
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	if c.Display == nil {
		c.Display = display.Headless{}
	}
	if config.MaxCaptureFailures <= 0 {
		config.MaxCaptureFailures = MaxCaptureFailures
	}

	adapter := detector.NewAdapter(c.Detector, detector.DefaultParams())

	a := &App{
		config:    config,
		camera:    c.Camera,
		detector:  c.Detector,
		evaluator: tilt.NewEvaluator(adapter, config.TiltAngle),
		gates: debounce.New(debounce.Config{
			DetectInterval: config.DetectInterval,
			ActionCooldown: config.ActionCooldown,
		}, c.Clock),
		emitter:   c.Emitter,
		display:   c.Display,
		clock:     c.Clock,
		sleep:     c.Sleep,
		sessionID: uuid.NewString(),
		startedAt: c.Clock.Now(),
	}
	a.enabled.Store(true)

	return a
}

// Open loads the classifier, opens the camera and, unless headless, the
// preview window. Any failure here is fatal to startup.
func Open(config Config) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	backend, err := action.BackendByName(config.KeyTool)
	if err != nil {
		return nil, err
	}

	cascade, err := detector.LoadCascade(config.ClassifierPath)
	if err != nil {
		return nil, err
	}

	camConfig := capture.DefaultConfig()
	camConfig.DeviceID = config.CameraID
	cam := capture.NewCamera(camConfig)
	if err := cam.Open(); err != nil {
		cascade.Close()
		return nil, fmt.Errorf("open camera %d: %w", config.CameraID, err)
	}

	var disp display.Display = display.Headless{}
	if !config.Headless {
		disp = display.NewWindow()
	}

	log.Printf("using classifier %s, camera %d, key tool %s", cascade.Path(), config.CameraID, backend.Name())

	return New(config, Components{
		Camera:   cam,
		Detector: cascade,
		Emitter:  action.NewEmitter(backend, config.EmitTimeout),
		Display:  disp,
	}), nil
}

// Close releases the display, the camera and the detector.
func (a *App) Close() error {
	var errs []error
	if err := a.display.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close display: %w", err))
	}
	if err := a.camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}
	if err := a.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close detector: %w", err))
	}
	return errors.Join(errs...)
}

// SetEnabled pauses or resumes detection. Frames are still captured and
// presented while paused.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) != enabled {
		log.Printf("detection enabled: %v", enabled)
	}
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Stop asks the loop to exit at its next exit check.
func (a *App) Stop() {
	a.stop.Store(true)
}

// AddObserver registers o to be told about every turn.
func (a *App) AddObserver(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// AddFrameSink registers s to receive every annotated frame.
func (a *App) AddFrameSink(s FrameSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, s)
}

// Config returns the loop configuration.
func (a *App) Config() Config {
	return a.config
}

// Status returns a snapshot of the loop counters.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{
		SessionID: a.sessionID,
		StartedAt: a.startedAt,
		Uptime:    a.clock.Now().Sub(a.startedAt).Round(time.Second).String(),
		Enabled:   a.IsEnabled(),
		Stats:     a.stats,
	}
	if a.lastTurn != nil {
		t := *a.lastTurn
		st.LastTurn = &t
	}
	return st
}
