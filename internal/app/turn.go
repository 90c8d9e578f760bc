package app

import (
	"time"

	"github.com/ayusman/pageturner/internal/geometry"
	"github.com/ayusman/pageturner/internal/tilt"
)

// Turn records one emit attempt.
type Turn struct {
	ID        string         `json:"id"`
	Direction tilt.Direction `json:"direction"`
	Key       string         `json:"key"`
	Angle     float64        `json:"angle"`
	Box       geometry.Box   `json:"box"`
	At        time.Time      `json:"at"`
	// Err is the emit failure, empty on success.
	Err string `json:"error,omitempty"`
}

// OK reports whether the key was delivered.
func (t Turn) OK() bool {
	return t.Err == ""
}

// Observer is told about every turn, on the loop goroutine.
type Observer interface {
	OnTurn(Turn)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Turn)

// OnTurn calls f(t).
func (f ObserverFunc) OnTurn(t Turn) { f(t) }

// Stats are the loop counters.
type Stats struct {
	Frames          uint64 `json:"frames"`
	CaptureFailures uint64 `json:"capture_failures"`
	DetectionPasses uint64 `json:"detection_passes"`
	Hits            uint64 `json:"hits"`
	Dropped         uint64 `json:"dropped"`
	Turns           uint64 `json:"turns"`
	EmitFailures    uint64 `json:"emit_failures"`
}

// Status is a snapshot of the loop for status reporting.
type Status struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	Enabled   bool      `json:"enabled"`
	Stats     Stats     `json:"stats"`
	LastTurn  *Turn     `json:"last_turn,omitempty"`
}
