package store

import (
	"database/sql"
	"errors"
	"time"
)

// DefaultListLimit is the number of turns List returns for a non-positive limit.
const DefaultListLimit = 50

// Turn is one recorded emit attempt.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Direction string    `json:"direction"`
	Key       string    `json:"key"`
	Angle     float64   `json:"angle"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	W         int       `json:"w"`
	H         int       `json:"h"`
	At        time.Time `json:"at"`
	Error     string    `json:"error,omitempty"`
}

// TurnRepository provides operations on turns.
type TurnRepository struct {
	db *sql.DB
}

// Turns returns the turn repository for this store.
func (s *Store) Turns() *TurnRepository {
	return &TurnRepository{db: s.db}
}

const turnColumns = `id, session_id, direction, key, angle, box_x, box_y, box_w, box_h, at, error`

// Create inserts a new turn.
func (r *TurnRepository) Create(t *Turn) error {
	t.At = t.At.UTC()

	_, err := r.db.Exec(
		`INSERT INTO turns (`+turnColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Direction, t.Key, t.Angle, t.X, t.Y, t.W, t.H, t.At, t.Error,
	)
	return err
}

// GetByID retrieves a turn by its ID.
func (r *TurnRepository) GetByID(id string) (*Turn, error) {
	t, err := scanTurn(r.db.QueryRow(
		`SELECT `+turnColumns+` FROM turns WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves the most recent turns, newest first.
func (r *TurnRepository) List(limit int) ([]*Turn, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return r.query(
		`SELECT `+turnColumns+` FROM turns ORDER BY at DESC, rowid DESC LIMIT ?`,
		limit,
	)
}

// ListBySession retrieves the turns of one session in the order they happened.
func (r *TurnRepository) ListBySession(sessionID string) ([]*Turn, error) {
	return r.query(
		`SELECT `+turnColumns+` FROM turns WHERE session_id = ? ORDER BY at, rowid`,
		sessionID,
	)
}

// Count returns the number of stored turns.
func (r *TurnRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM turns`).Scan(&n)
	return n, err
}

func (r *TurnRepository) query(q string, args ...any) ([]*Turn, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return turns, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(row scanner) (*Turn, error) {
	t := &Turn{}
	err := row.Scan(&t.ID, &t.SessionID, &t.Direction, &t.Key, &t.Angle,
		&t.X, &t.Y, &t.W, &t.H, &t.At, &t.Error)
	if err != nil {
		return nil, err
	}
	return t, nil
}
