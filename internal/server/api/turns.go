// Package api provides HTTP API handlers for the page turn history.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/pageturner/internal/store"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 1000

// TurnHandler handles HTTP requests for turn resources.
type TurnHandler struct {
	store *store.Store
}

// NewTurnHandler creates a new TurnHandler with the given store.
func NewTurnHandler(s *store.Store) *TurnHandler {
	return &TurnHandler{store: s}
}

// ServeHTTP serves GET /api/turns and GET /api/turns/{id}.
func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/turns")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, path)
}

type listTurnsResponse struct {
	Turns []*store.Turn `json:"turns"`
	Total int           `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/turns?limit=N and returns the latest turns.
func (h *TurnHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxListLimit)
	}

	turns, err := h.store.Turns().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list turns")
		return
	}

	total, err := h.store.Turns().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count turns")
		return
	}

	if turns == nil {
		turns = []*store.Turn{}
	}
	writeJSON(w, http.StatusOK, listTurnsResponse{Turns: turns, Total: total})
}

// get handles GET /api/turns/{id}.
func (h *TurnHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	turn, err := h.store.Turns().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "turn not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get turn")
		return
	}

	writeJSON(w, http.StatusOK, turn)
}
