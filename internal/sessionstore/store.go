// Package sessionstore provides SQLite-backed persistence for publishing
// sessions. It is the only component allowed to mutate session records.
package sessionstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	status           TEXT NOT NULL,
	notes_planned    INTEGER NOT NULL DEFAULT 0,
	assets_planned   INTEGER NOT NULL DEFAULT 0,
	notes_processed  INTEGER NOT NULL DEFAULT 0,
	assets_processed INTEGER NOT NULL DEFAULT 0,
	routes           TEXT NOT NULL DEFAULT '[]',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

// Repository defines the session persistence operations. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type Repository interface {
	Create(s *models.Session) error
	FindByID(id string) (*models.Session, error)
	Save(s *models.Session) error
	Close() error
}

// DB wraps a sql.DB with session-specific operations.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sessions: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sessions: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sessions: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Create inserts a new session record.
func (db *DB) Create(s *models.Session) error {
	routesJSON, _ := json.Marshal(routesOrEmpty(s.Routes))
	_, err := db.conn.Exec(`
		INSERT INTO sessions (id, status, notes_planned, assets_planned,
			notes_processed, assets_processed, routes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, string(s.Status), s.NotesPlanned, s.AssetsPlanned,
		s.NotesProcessed, s.AssetsProcessed, string(routesJSON), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sessions: create %s: %w", s.ID, err)
	}
	return nil
}

// FindByID returns the session with the given id, or apperr.ErrSessionNotFound.
func (db *DB) FindByID(id string) (*models.Session, error) {
	row := db.conn.QueryRow(`
		SELECT id, status, notes_planned, assets_planned,
			notes_processed, assets_processed, routes, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id)

	var s models.Session
	var status, routesJSON string
	err := row.Scan(&s.ID, &status, &s.NotesPlanned, &s.AssetsPlanned,
		&s.NotesProcessed, &s.AssetsProcessed, &routesJSON, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sessions: %w: %s", apperr.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: find %s: %w", id, err)
	}
	s.Status = models.SessionStatus(status)
	if err := json.Unmarshal([]byte(routesJSON), &s.Routes); err != nil {
		return nil, fmt.Errorf("sessions: decode routes for %s: %w", id, err)
	}
	return &s, nil
}

// Save persists the mutable fields of an existing session.
func (db *DB) Save(s *models.Session) error {
	routesJSON, _ := json.Marshal(routesOrEmpty(s.Routes))
	res, err := db.conn.Exec(`
		UPDATE sessions SET status = ?, notes_planned = ?, assets_planned = ?,
			notes_processed = ?, assets_processed = ?, routes = ?, updated_at = ?
		WHERE id = ?
	`, string(s.Status), s.NotesPlanned, s.AssetsPlanned,
		s.NotesProcessed, s.AssetsProcessed, string(routesJSON), s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("sessions: save %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sessions: save %s: %w", s.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("sessions: %w: %s", apperr.ErrSessionNotFound, s.ID)
	}
	return nil
}

func routesOrEmpty(routes []string) []string {
	if routes == nil {
		return []string{}
	}
	return routes
}
