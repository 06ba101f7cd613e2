package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

// Resilient wraps a primary repository with an in-memory fallback. When
// the primary fails, the call degrades to the fallback and the failure is
// logged, never surfaced: an unavailable medium must not block a learner,
// worst case the session lives only as long as the process.
//
// Version conflicts are real outcomes, not medium failures, and pass
// through untouched.
type Resilient struct {
	primary  Repository
	fallback *MemoryStore
}

// NewResilient wraps a primary repository with a fresh memory fallback.
func NewResilient(primary Repository) *Resilient {
	return &Resilient{primary: primary, fallback: NewMemory()}
}

// LoadSession loads from the primary, degrading to memory on failure.
func (r *Resilient) LoadSession(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	state, err := r.primary.LoadSession(ctx, sessionID)
	if err == nil {
		return state, nil
	}
	slog.Warn("primary store load failed, degrading to memory", "session_id", sessionID, "error", err)
	return r.fallback.LoadSession(ctx, sessionID)
}

// SaveSession saves to the primary, degrading to memory on failure.
func (r *Resilient) SaveSession(ctx context.Context, state *domain.SessionState, expectedVersion int64) error {
	err := r.primary.SaveSession(ctx, state, expectedVersion)
	if err == nil || errors.Is(err, ErrVersionConflict) {
		return err
	}
	slog.Warn("primary store save failed, degrading to memory", "session_id", state.SessionID, "error", err)

	// The fallback may not have seen this session before; accept whatever
	// version it holds rather than failing the degraded write.
	existing, loadErr := r.fallback.LoadSession(ctx, state.SessionID)
	fallbackVersion := int64(0)
	if loadErr == nil && existing != nil {
		fallbackVersion = existing.Version
	}
	return r.fallback.SaveSession(ctx, state, fallbackVersion)
}

// PruneIdleSessions prunes both stores; primary errors are absorbed.
func (r *Resilient) PruneIdleSessions(ctx context.Context, idle time.Duration) (int64, error) {
	removed, err := r.primary.PruneIdleSessions(ctx, idle)
	if err != nil {
		slog.Warn("primary store prune failed", "error", err)
	}
	fallbackRemoved, _ := r.fallback.PruneIdleSessions(ctx, idle)
	return removed + fallbackRemoved, nil
}

// Ping reports the primary's health; degraded mode still serves traffic.
func (r *Resilient) Ping(ctx context.Context) error {
	return r.primary.Ping(ctx)
}

// Close closes the primary repository.
func (r *Resilient) Close() error {
	return r.primary.Close()
}
