// Package store persists counting sessions and periodic count samples to
// an SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mzocca/go-personcounter/counter"
)

// Store wraps the SQLite database connection with thread-safe access
type Store struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// Session is one run of the counting pipeline
type Session struct {
	ID        uuid.UUID  `json:"id"`
	Source    string     `json:"source"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Total     int        `json:"total"`
	Max       int        `json:"max"`
	Frames    int        `json:"frames"`
}

// Sample is one periodic snapshot of the running counts
type Sample struct {
	RecordedAt time.Time `json:"recorded_at"`
	Current    int       `json:"current"`
	Total      int       `json:"total"`
	FPS        float64   `json:"fps"`
}

// Open creates and initializes the SQLite database at the given path
func Open(path string) (*Store, error) {

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{conn: conn}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables if they don't exist
func (s *Store) migrate() error {

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		total INTEGER DEFAULT 0,
		peak INTEGER DEFAULT 0,
		frames INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS count_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		current INTEGER NOT NULL,
		total INTEGER NOT NULL,
		fps REAL DEFAULT 0,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
	CREATE INDEX IF NOT EXISTS idx_count_samples_session_id ON count_samples(session_id);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// BeginSession inserts a new session row for the given capture source and
// returns it
func (s *Store) BeginSession(source string) (*Session, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		ID:        uuid.New(),
		Source:    source,
		StartedAt: time.Now(),
	}

	_, err := s.conn.Exec(`
		INSERT INTO sessions (id, source, started_at)
		VALUES (?, ?, ?)
	`, sess.ID.String(), sess.Source, sess.StartedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return sess, nil
}

// EndSession finalizes the session row with the closing counter statistics
func (s *Store) EndSession(sess *Session, stats counter.Stats) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	_, err := s.conn.Exec(`
		UPDATE sessions SET ended_at = ?, total = ?, peak = ?, frames = ?
		WHERE id = ?
	`, now, stats.Total, stats.Max, stats.Frames, sess.ID.String())

	if err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}

	sess.EndedAt = &now
	sess.Total = stats.Total
	sess.Max = stats.Max
	sess.Frames = stats.Frames

	return nil
}

// InsertSamples batch inserts buffered count samples for a session in a
// single transaction
func (s *Store) InsertSamples(sessionID uuid.UUID, samples []Sample) error {

	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()

	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO count_samples (session_id, recorded_at, current, total, fps)
		VALUES (?, ?, ?, ?, ?)
	`)

	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}

	defer stmt.Close()

	for _, sample := range samples {
		if _, err := stmt.Exec(sessionID.String(), sample.RecordedAt,
			sample.Current, sample.Total, sample.FPS); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit samples: %w", err)
	}

	return nil
}

// Sessions returns the most recently started sessions, newest first
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 20
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, source, started_at, ended_at, total, peak, frames
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	defer rows.Close()

	var sessions []Session

	for rows.Next() {

		var (
			sess  Session
			id    string
			ended sql.NullTime
		)

		if err := rows.Scan(&id, &sess.Source, &sess.StartedAt, &ended,
			&sess.Total, &sess.Max, &sess.Frames); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		sess.ID, err = uuid.Parse(id)

		if err != nil {
			return nil, fmt.Errorf("failed to parse session id: %w", err)
		}

		if ended.Valid {
			t := ended.Time
			sess.EndedAt = &t
		}

		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// Samples returns the recorded count samples for a session, oldest first
func (s *Store) Samples(ctx context.Context, sessionID uuid.UUID) ([]Sample, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT recorded_at, current, total, fps
		FROM count_samples WHERE session_id = ? ORDER BY recorded_at
	`, sessionID.String())

	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}

	defer rows.Close()

	var samples []Sample

	for rows.Next() {

		var sample Sample

		if err := rows.Scan(&sample.RecordedAt, &sample.Current,
			&sample.Total, &sample.FPS); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}

		samples = append(samples, sample)
	}

	return samples, rows.Err()
}
