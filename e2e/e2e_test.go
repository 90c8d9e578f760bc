package e2e

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/pageturner/internal/app"
	"github.com/ayusman/pageturner/internal/capture"
	"github.com/ayusman/pageturner/internal/debounce"
	"github.com/ayusman/pageturner/internal/detector"
	"github.com/ayusman/pageturner/internal/display"
	"github.com/ayusman/pageturner/internal/server"
	"github.com/ayusman/pageturner/internal/store"
	"github.com/ayusman/pageturner/internal/tilt"
)

type recordingEmitter struct {
	mu    sync.Mutex
	calls []tilt.Direction
}

func (e *recordingEmitter) Emit(ctx context.Context, d tilt.Direction) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, d)
	if d == tilt.Previous {
		return "Page_Up", nil
	}
	return "Page_Down", nil
}

// storeRecorder writes turns to the history store.
type storeRecorder struct {
	t         *testing.T
	store     *store.Store
	sessionID string
}

func (r *storeRecorder) OnTurn(turn app.Turn) {
	err := r.store.Turns().Create(&store.Turn{
		ID:        turn.ID,
		SessionID: r.sessionID,
		Direction: turn.Direction.String(),
		Key:       turn.Key,
		Angle:     turn.Angle,
		X:         turn.Box.X,
		Y:         turn.Box.Y,
		W:         turn.Box.W,
		H:         turn.Box.H,
		At:        turn.At,
		Error:     turn.Err,
	})
	if err != nil {
		r.t.Errorf("record turn: %v", err)
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(0, 0, 0, 0))
	defer frame.Close()

	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	det := detector.NewMockDetector()
	emitter := &recordingEmitter{}
	clock := debounce.NewFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	cfg := app.DefaultConfig()
	cfg.FramePause = 0
	application := app.New(cfg, app.Components{
		Camera:   cam,
		Detector: det,
		Emitter:  emitter,
		Display:  display.NewMockDisplay(0),
		Clock:    clock,
		Sleep:    clock.Sleep,
	})

	status := application.Status()
	if err := s.Sessions().Create(&store.Session{
		ID:         status.SessionID,
		Classifier: cfg.ClassifierPath,
		TiltAngle:  cfg.TiltAngle,
		KeyTool:    "xdotool",
		StartedAt:  status.StartedAt,
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	application.AddObserver(&storeRecorder{t: t, store: s, sessionID: status.SessionID})

	hub := server.NewEventHub(application)
	defer hub.Close()
	application.AddObserver(hub)

	ts := httptest.NewServer(server.New(server.Config{
		Status: application,
		Store:  s,
		Events: hub,
	}))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first server.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read status event: %v", err)
	}
	if first.Type != "status" {
		t.Fatalf("first event type = %q, want status", first.Type)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("camera Open() error = %v", err)
	}

	// Face only found in the frame rotated by +30 degrees.
	face := image.Rect(200, 150, 320, 270)
	det.SetFunc(func(call int) []image.Rectangle {
		if call%2 == 1 {
			return []image.Rectangle{face}
		}
		return nil
	})

	step := func() {
		t.Helper()
		done, err := application.Step(context.Background())
		if err != nil {
			t.Fatalf("Step() error = %v", err)
		}
		if done {
			t.Fatal("Step() requested exit")
		}
	}

	t.Run("TurnsPages", func(t *testing.T) {
		step()
		clock.Advance(1100 * time.Millisecond)
		step()

		if len(emitter.calls) != 2 {
			t.Fatalf("emit calls = %d, want 2", len(emitter.calls))
		}
		for _, d := range emitter.calls {
			if d != tilt.Next {
				t.Errorf("direction = %v, want next", d)
			}
		}
	})

	t.Run("EventsPushed", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			var ev struct {
				Type string `json:"type"`
				Turn *struct {
					Direction string `json:"direction"`
					Key       string `json:"key"`
				} `json:"turn"`
			}
			if err := conn.ReadJSON(&ev); err != nil {
				t.Fatalf("read turn event %d: %v", i, err)
			}
			if ev.Type != "turn" || ev.Turn == nil || ev.Turn.Direction != "next" || ev.Turn.Key != "Page_Down" {
				t.Errorf("event %d = %+v", i, ev)
			}
		}
	})

	t.Run("StatusReportsTurns", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/api/status")
		if err != nil {
			t.Fatalf("GET /api/status error = %v", err)
		}
		defer resp.Body.Close()

		var st struct {
			SessionID string `json:"session_id"`
			Enabled   bool   `json:"enabled"`
			Stats     struct {
				Turns uint64 `json:"turns"`
			} `json:"stats"`
			LastTurn *struct {
				Direction string `json:"direction"`
			} `json:"last_turn"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if st.SessionID != status.SessionID || !st.Enabled {
			t.Errorf("status = %+v", st)
		}
		if st.Stats.Turns != 2 || st.LastTurn == nil || st.LastTurn.Direction != "next" {
			t.Errorf("turns = %d, last = %+v", st.Stats.Turns, st.LastTurn)
		}
	})

	t.Run("HistoryListsTurns", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/api/turns")
		if err != nil {
			t.Fatalf("GET /api/turns error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var list struct {
			Turns []store.Turn `json:"turns"`
			Total int          `json:"total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			t.Fatalf("decode turns: %v", err)
		}
		if list.Total != 2 || len(list.Turns) != 2 {
			t.Fatalf("total = %d, turns = %d, want 2", list.Total, len(list.Turns))
		}
		for _, tr := range list.Turns {
			if tr.SessionID != status.SessionID || tr.Direction != "next" || tr.Angle != 30 {
				t.Errorf("turn = %+v", tr)
			}
		}
	})

	t.Run("PausedStopsTurns", func(t *testing.T) {
		application.SetEnabled(false)
		clock.Advance(2 * time.Second)
		step()
		clock.Advance(2 * time.Second)
		step()

		if len(emitter.calls) != 2 {
			t.Errorf("emit calls = %d, want 2 while paused", len(emitter.calls))
		}
		if count, _ := s.Turns().Count(); count != 2 {
			t.Errorf("recorded turns = %d, want 2", count)
		}
	})

	if err := application.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
