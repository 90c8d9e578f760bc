package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per run of the control loop
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			classifier TEXT NOT NULL,
			tilt_angle REAL NOT NULL,
			key_tool TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Turns table - one row per emit attempt
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			direction TEXT NOT NULL CHECK(direction IN ('previous', 'next')),
			key TEXT NOT NULL,
			angle REAL NOT NULL,
			box_x INTEGER NOT NULL,
			box_y INTEGER NOT NULL,
			box_w INTEGER NOT NULL,
			box_h INTEGER NOT NULL,
			at DATETIME NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_turns_session_id ON turns(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_at ON turns(at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
