package main

import (
	"log"
	"time"

	"github.com/ayusman/pageturner/internal/action"
	"github.com/ayusman/pageturner/internal/app"
	"github.com/ayusman/pageturner/internal/store"
)

// history records every turn of one session in the store.
type history struct {
	store     *store.Store
	sessionID string
}

func newHistory(st *store.Store, session store.Session) (*history, error) {
	if err := st.Sessions().Create(&session); err != nil {
		return nil, err
	}
	return &history{store: st, sessionID: session.ID}, nil
}

// OnTurn inserts turn. Failures are logged; the loop carries on.
func (h *history) OnTurn(t app.Turn) {
	err := h.store.Turns().Create(&store.Turn{
		ID:        t.ID,
		SessionID: h.sessionID,
		Direction: t.Direction.String(),
		Key:       t.Key,
		Angle:     t.Angle,
		X:         t.Box.X,
		Y:         t.Box.Y,
		W:         t.Box.W,
		H:         t.Box.H,
		At:        t.At,
		Error:     t.Err,
	})
	if err != nil {
		log.Printf("failed to record turn %s: %v", t.ID, err)
	}
}

func (h *history) end(at time.Time) {
	if err := h.store.Sessions().End(h.sessionID, at); err != nil {
		log.Printf("failed to end session %s: %v", h.sessionID, err)
	}
}

// keyToolName resolves "auto" to the backend it picks.
func keyToolName(name string) string {
	backend, err := action.BackendByName(name)
	if err != nil {
		return name
	}
	return backend.Name()
}
