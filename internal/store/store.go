// Package store provides the session persistence port and its
// implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

// ErrVersionConflict is returned when a save's expected version no longer
// matches the stored version. Concurrent requests for the same session
// must serialize their read-modify-write; the version check catches the
// ones that slip through.
var ErrVersionConflict = errors.New("session version conflict")

// Repository is the persistence port for session state. The engine must
// function correctly when the medium is unavailable, so implementations
// are free to fail; the caller degrades to in-memory operation.
type Repository interface {
	// LoadSession retrieves a session aggregate, or (nil, nil) when the
	// session has no persisted state.
	LoadSession(ctx context.Context, sessionID string) (*domain.SessionState, error)

	// SaveSession persists a session aggregate. expectedVersion must match
	// the stored version (0 for a new session) or ErrVersionConflict is
	// returned; on success the state's Version is advanced.
	SaveSession(ctx context.Context, state *domain.SessionState, expectedVersion int64) error

	// PruneIdleSessions removes sessions not updated within the idle
	// horizon and reports how many were removed.
	PruneIdleSessions(ctx context.Context, idle time.Duration) (int64, error)

	// Ping verifies the medium is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
