package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/finsightlab/progression/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. Session state is stored
// as one JSON document per session with an integer version column for the
// optimistic write check.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		state_json TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadSession retrieves a session aggregate by id.
func (s *SQLiteStore) LoadSession(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	query := `SELECT state_json, version FROM sessions WHERE session_id = ?`

	var stateJSON string
	var version int64
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&stateJSON, &version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	state.EnsureMaps()
	state.Version = version
	return &state, nil
}

// SaveSession persists a session aggregate with an optimistic version
// check. Retries once on SQLite concurrency errors before giving up.
func (s *SQLiteStore) SaveSession(ctx context.Context, state *domain.SessionState, expectedVersion int64) error {
	err := s.saveOnce(ctx, state, expectedVersion)
	if err != nil && isBusy(err) {
		slog.Debug("SaveSession hit SQLITE_BUSY, retrying", "session_id", state.SessionID)
		time.Sleep(100 * time.Millisecond)
		err = s.saveOnce(ctx, state, expectedVersion)
	}
	return err
}

func (s *SQLiteStore) saveOnce(ctx context.Context, state *domain.SessionState, expectedVersion int64) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	now := time.Now().Unix()
	next := expectedVersion + 1

	if expectedVersion == 0 {
		query := `INSERT INTO sessions (session_id, state_json, version, updated_at) VALUES (?, ?, ?, ?)`
		if _, err := s.db.ExecContext(ctx, query, state.SessionID, string(encoded), next, now); err != nil {
			// A concurrent insert for the same session presents as a
			// primary-key violation: report it as a version conflict.
			if isUniqueViolation(err) {
				return ErrVersionConflict
			}
			return fmt.Errorf("insert session: %w", err)
		}
		state.Version = next
		return nil
	}

	query := `UPDATE sessions SET state_json = ?, version = ?, updated_at = ? WHERE session_id = ? AND version = ?`
	result, err := s.db.ExecContext(ctx, query, string(encoded), next, now, state.SessionID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	state.Version = next
	return nil
}

// PruneIdleSessions removes sessions idle past the horizon. Cumulative
// counters live inside the session document, so pruning is the one place
// they can be lost; the horizon should comfortably exceed the event
// retention window.
func (s *SQLiteStore) PruneIdleSessions(ctx context.Context, idle time.Duration) (int64, error) {
	threshold := time.Now().Add(-idle).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune idle sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite surfaces constraint failures in the message.
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint violation")
}

// isBusy reports whether the error is a SQLite concurrency error
// (SQLITE_BUSY or a locked database) that warrants one retry.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY") ||
		strings.Contains(err.Error(), "database is locked")
}
