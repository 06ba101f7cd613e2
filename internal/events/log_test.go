package events

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

func TestLog_RecordAppendsInOrder(t *testing.T) {
	log := NewLog(DefaultConfig(), nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := log.Record("s1", "analysis_completed", nil, base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got := log.Since(time.Time{}, base.Add(3*time.Minute))
	if len(got) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Errorf("Events out of order at index %d", i)
		}
	}
}

func TestLog_RejectsUnknownCategory(t *testing.T) {
	log := NewLog(DefaultConfig(), nil)

	_, err := log.Record("s1", "page_scroll", nil, time.Now())
	if err == nil {
		t.Fatal("Expected error for unknown category")
	}
	var invalid *domain.InvalidEventError
	if !errors.As(err, &invalid) {
		t.Errorf("Expected InvalidEventError, got %T", err)
	}
}

func TestLog_RejectsOversizedPayload(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPayloadBytes = 64
	log := NewLog(cfg, nil)

	payload := map[string]any{"note": strings.Repeat("x", 200)}
	_, err := log.Record("s1", "tooltip_view", payload, time.Now())
	if err == nil {
		t.Fatal("Expected error for oversized payload")
	}
	var invalid *domain.InvalidEventError
	if !errors.As(err, &invalid) {
		t.Errorf("Expected InvalidEventError, got %T", err)
	}
	if log.Len() != 0 {
		t.Errorf("Rejected event must not be partially stored, got %d events", log.Len())
	}
}

func TestLog_EvictionInvariant(t *testing.T) {
	cfg := DefaultConfig()
	log := NewLog(cfg, nil)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Eight daily events; by the last record the first should be evicted.
	for day := 0; day < 8; day++ {
		if _, err := log.Record("s1", "analysis_completed", nil, base.AddDate(0, 0, day)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	now := base.AddDate(0, 0, 7)
	got := log.Since(time.Time{}, now)
	floor := now.Add(-cfg.Retention)
	for _, ev := range got {
		if !ev.Timestamp.After(floor) {
			t.Errorf("Event at %v older than retention floor %v", ev.Timestamp, floor)
		}
	}
	if len(got) != 7 {
		t.Errorf("Expected 7 retained events, got %d", len(got))
	}
}

func TestLog_SinceCutoffFilters(t *testing.T) {
	log := NewLog(DefaultConfig(), nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := log.Record("s1", "tooltip_view", nil, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got := log.Since(base.Add(2*time.Hour), base.Add(5*time.Hour))
	if len(got) != 2 {
		t.Errorf("Expected 2 events after cutoff, got %d", len(got))
	}
}
