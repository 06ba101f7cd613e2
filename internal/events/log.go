// Package events implements the append-only, retention-windowed behavioral
// event log for one session.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/finsightlab/progression/internal/domain"
)

// Config holds the event store tuning knobs.
type Config struct {
	// Retention is the rolling storage horizon. Events older than this are
	// evicted eagerly on every record.
	Retention time.Duration

	// MaxPayloadBytes bounds the serialized payload size of one event.
	MaxPayloadBytes int
}

// DefaultConfig returns the standard 7-day window with a 4 KiB payload cap.
func DefaultConfig() Config {
	return Config{
		Retention:       7 * 24 * time.Hour,
		MaxPayloadBytes: 4096,
	}
}

// Log wraps a session's event slice. Events arrive in near-time-order, so
// eviction is a scan from the head that stops at the first retained event.
type Log struct {
	cfg    Config
	events []domain.BehavioralEvent
}

// NewLog wraps an existing event slice (typically loaded session state).
func NewLog(cfg Config, existing []domain.BehavioralEvent) *Log {
	return &Log{cfg: cfg, events: existing}
}

// Record validates, stamps, and appends an event, then evicts everything
// older than the retention window. The only removal path is eviction;
// individual events are never updated or deleted.
func (l *Log) Record(sessionID string, rawCategory string, payload map[string]any, now time.Time) (domain.BehavioralEvent, error) {
	category, err := domain.ParseEventCategory(rawCategory)
	if err != nil {
		return domain.BehavioralEvent{}, err
	}

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return domain.BehavioralEvent{}, &domain.InvalidEventError{
				Reason: fmt.Sprintf("payload not serializable: %v", err),
			}
		}
		if len(encoded) > l.cfg.MaxPayloadBytes {
			return domain.BehavioralEvent{}, &domain.InvalidEventError{
				Reason: fmt.Sprintf("payload size %d exceeds limit %d", len(encoded), l.cfg.MaxPayloadBytes),
			}
		}
	}

	ev := domain.BehavioralEvent{
		SessionID: sessionID,
		Timestamp: now,
		Category:  category,
		Payload:   payload,
	}
	l.events = append(l.events, ev)
	l.evict(now)
	return ev, nil
}

// Since returns events newer than cutoff, oldest first. Events older than
// the retention window are never returned; readers must treat window
// eviction as expected behavior, not data loss.
func (l *Log) Since(cutoff time.Time, now time.Time) []domain.BehavioralEvent {
	l.evict(now)
	floor := now.Add(-l.cfg.Retention)
	if floor.After(cutoff) {
		cutoff = floor
	}

	out := make([]domain.BehavioralEvent, 0, len(l.events))
	for _, ev := range l.events {
		if ev.Timestamp.After(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

// Window returns all retained events, oldest first.
func (l *Log) Window(now time.Time) []domain.BehavioralEvent {
	return l.Since(time.Time{}, now)
}

// Events exposes the backing slice for writing back into session state.
func (l *Log) Events() []domain.BehavioralEvent {
	return l.events
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	return len(l.events)
}

// evict drops events older than the retention window from the head.
// Amortized O(1): events arrive in near-time-order, so the scan stops at
// the first retained timestamp.
func (l *Log) evict(now time.Time) {
	floor := now.Add(-l.cfg.Retention)
	idx := 0
	for idx < len(l.events) && !l.events[idx].Timestamp.After(floor) {
		idx++
	}
	if idx > 0 {
		l.events = append([]domain.BehavioralEvent(nil), l.events[idx:]...)
	}
}
