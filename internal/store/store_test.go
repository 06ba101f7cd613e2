package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

func TestMemoryStore_SaveLoadRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	state := domain.NewSessionState("s1", now)
	state.Counters.AnalysesCompleted = 3

	if err := m.SaveSession(ctx, state, 0); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if state.Version != 1 {
		t.Errorf("Expected version 1 after first save, got %d", state.Version)
	}

	loaded, err := m.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected session, got nil")
	}
	if loaded.Counters.AnalysesCompleted != 3 {
		t.Errorf("Expected 3 analyses, got %d", loaded.Counters.AnalysesCompleted)
	}
	if loaded.Version != 1 {
		t.Errorf("Expected loaded version 1, got %d", loaded.Version)
	}
}

func TestMemoryStore_UnknownSessionIsNil(t *testing.T) {
	m := NewMemory()

	loaded, err := m.LoadSession(context.Background(), "missing")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded != nil {
		t.Error("Unknown session must load as nil, not error")
	}
}

func TestMemoryStore_VersionConflict(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	state := domain.NewSessionState("s1", now)
	if err := m.SaveSession(ctx, state, 0); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	// A stale writer using the old version must be rejected.
	stale := domain.NewSessionState("s1", now)
	err := m.SaveSession(ctx, stale, 0)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict, got %v", err)
	}

	if err := m.SaveSession(ctx, state, 1); err != nil {
		t.Errorf("Save at current version must succeed, got %v", err)
	}
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			t.Errorf("Close failed: %v", closeErr)
		}
	}()

	ctx := context.Background()
	state := domain.NewSessionState("s1", time.Now())
	state.Counters.StreakDays = 4
	state.MarkReached(domain.StageAssistedAnalysis)

	if err := s.SaveSession(ctx, state, 0); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	loaded, err := s.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected session, got nil")
	}
	if loaded.Counters.StreakDays != 4 {
		t.Errorf("Expected streak 4, got %d", loaded.Counters.StreakDays)
	}
	if !loaded.HasReached(domain.StageAssistedAnalysis) {
		t.Error("Reached stages must survive the round trip")
	}
}

func TestSQLiteStore_VersionConflict(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	state := domain.NewSessionState("s1", time.Now())
	if err := s.SaveSession(ctx, state, 0); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	stale := domain.NewSessionState("s1", time.Now())
	err = s.SaveSession(ctx, stale, 0)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict on duplicate insert, got %v", err)
	}

	err = s.SaveSession(ctx, stale, 99)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict on wrong version, got %v", err)
	}
}

// failingStore simulates an unavailable persistence medium.
type failingStore struct{}

func (failingStore) LoadSession(context.Context, string) (*domain.SessionState, error) {
	return nil, errors.New("medium unavailable")
}

func (failingStore) SaveSession(context.Context, *domain.SessionState, int64) error {
	return errors.New("medium unavailable")
}

func (failingStore) PruneIdleSessions(context.Context, time.Duration) (int64, error) {
	return 0, errors.New("medium unavailable")
}

func (failingStore) Ping(context.Context) error { return errors.New("medium unavailable") }
func (failingStore) Close() error               { return nil }

func TestResilient_DegradesToMemory(t *testing.T) {
	r := NewResilient(failingStore{})
	ctx := context.Background()

	state := domain.NewSessionState("s1", time.Now())
	state.Counters.AnalysesCompleted = 7

	if err := r.SaveSession(ctx, state, 0); err != nil {
		t.Fatalf("Degraded save must succeed, got %v", err)
	}

	loaded, err := r.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("Degraded load must succeed, got %v", err)
	}
	if loaded == nil || loaded.Counters.AnalysesCompleted != 7 {
		t.Error("Degraded mode must serve the saved state")
	}
}
