// Package engine wires the event log, stage classifier, achievement
// catalog, and challenge generator behind per-session serialization and
// the persistence port.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/finsightlab/progression/internal/achievements"
	"github.com/finsightlab/progression/internal/challenge"
	"github.com/finsightlab/progression/internal/classifier"
	"github.com/finsightlab/progression/internal/domain"
	"github.com/finsightlab/progression/internal/events"
	"github.com/finsightlab/progression/internal/store"
)

// Config aggregates the tuning knobs of every subsystem.
type Config struct {
	Events       events.Config
	Classifier   classifier.Config
	Achievements achievements.Config
	Challenge    challenge.Config

	// ReassessEvery is how many recorded events trigger a stage
	// recomputation.
	ReassessEvery int
}

// DefaultConfig returns the production constants for all subsystems.
func DefaultConfig() Config {
	return Config{
		Events:        events.DefaultConfig(),
		Classifier:    classifier.DefaultConfig(),
		Achievements:  achievements.DefaultConfig(),
		Challenge:     challenge.DefaultConfig(),
		ReassessEvery: 5,
	}
}

// Notifier receives progression side effects for push delivery to
// subscribed pages. A nil notifier disables push.
type Notifier interface {
	BadgeAwarded(sessionID string, award domain.BadgeAward)
	StageChanged(sessionID string, assessment domain.StageAssessment)
}

// AttemptResult bundles a scored attempt with the badges it unlocked.
type AttemptResult struct {
	Attempt   domain.ChallengeAttempt `json:"attempt"`
	NewBadges []domain.BadgeAward     `json:"new_badges,omitempty"`
}

// Engine is the single entry point for progression operations. Requests
// for the same session serialize on a per-session mutex; the store's
// version check backstops writers in other processes.
type Engine struct {
	cfg        Config
	repo       store.Repository
	classifier *classifier.Classifier
	badges     *achievements.Engine
	generator  *challenge.Generator
	notifier   Notifier
	now        func() time.Time
	locks      sessionLocks
}

// New creates an engine over a session repository. notifier may be nil.
func New(cfg Config, repo store.Repository, notifier Notifier) *Engine {
	return &Engine{
		cfg:        cfg,
		repo:       repo,
		classifier: classifier.New(cfg.Classifier),
		badges:     achievements.New(cfg.Achievements),
		generator:  challenge.New(cfg.Challenge),
		notifier:   notifier,
		now:        time.Now,
	}
}

// RecordEvent validates and appends a behavioral event, folds it into the
// cumulative counters, reassesses the stage when due, and evaluates badge
// conditions. Invalid events are rejected with domain.InvalidEventError.
func (e *Engine) RecordEvent(ctx context.Context, sessionID string, category string, payload map[string]any) error {
	var (
		changed *domain.StageAssessment
		awards  []domain.BadgeAward
	)
	err := e.withSession(ctx, sessionID, func(state *domain.SessionState, now time.Time) error {
		log := events.NewLog(e.cfg.Events, state.Events)
		ev, err := log.Record(sessionID, category, payload, now)
		if err != nil {
			return err
		}
		state.Counters.Apply(ev)
		state.EventsSinceAssessment++
		changed = e.maybeReassess(state, log, now)
		awards = e.awardBadges(state, log, now)
		state.Events = log.Events()
		return nil
	})
	if err != nil {
		return err
	}
	e.notify(sessionID, changed, awards)
	return nil
}

// Stage returns the session's current assessment. Sessions without enough
// signal get the cold-start assessment, never an error.
func (e *Engine) Stage(ctx context.Context, sessionID string) (domain.StageAssessment, error) {
	state, err := e.repo.LoadSession(ctx, sessionID)
	if err != nil {
		return domain.StageAssessment{}, fmt.Errorf("load session: %w", err)
	}
	if state == nil || state.Assessment == nil {
		return e.classifier.ColdStart(sessionID, e.now()), nil
	}
	return *state.Assessment, nil
}

// Badges returns the session's awarded badges, oldest first.
func (e *Engine) Badges(ctx context.Context, sessionID string) ([]domain.Badge, error) {
	state, err := e.repo.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if state == nil {
		return []domain.Badge{}, nil
	}
	out := make([]domain.Badge, 0, len(state.Awarded))
	for _, b := range state.Awarded {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AwardedAt.Equal(out[j].AwardedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AwardedAt.Before(out[j].AwardedAt)
	})
	return out, nil
}

// Progress returns the session's rolling progress metrics. Unknown
// sessions get zeroed metrics.
func (e *Engine) Progress(ctx context.Context, sessionID string) (domain.ProgressMetrics, error) {
	state, err := e.repo.LoadSession(ctx, sessionID)
	if err != nil {
		return domain.ProgressMetrics{}, fmt.Errorf("load session: %w", err)
	}
	if state == nil {
		return domain.CumulativeCounters{}.Metrics(), nil
	}
	return state.Counters.Metrics(), nil
}

// GenerateChallenge produces the next challenge for a session. An empty
// category lets the generator pick one weighted by the current stage; any
// pending challenge in the chosen category is replaced, which expires it.
func (e *Engine) GenerateChallenge(ctx context.Context, sessionID string, category string) (domain.Challenge, error) {
	var ch domain.Challenge
	err := e.withSession(ctx, sessionID, func(state *domain.SessionState, now time.Time) error {
		stage := domain.StageGuidedDiscovery
		if state.Assessment != nil {
			stage = state.Assessment.Stage
		}
		generated, err := e.generator.Generate(state, stage, domain.ChallengeCategory(category), now)
		if err != nil {
			return err
		}
		ch = generated
		return nil
	})
	return ch, err
}

// SubmitAttempt scores a submission against its pending challenge,
// records the result as a behavioral event, updates the difficulty
// history, and evaluates badge conditions. Attempts against unknown or
// replaced challenge ids return domain.ErrChallengeNotFound.
func (e *Engine) SubmitAttempt(ctx context.Context, sessionID string, challengeID string, submitted json.RawMessage) (AttemptResult, error) {
	var (
		result  AttemptResult
		changed *domain.StageAssessment
	)
	err := e.withSession(ctx, sessionID, func(state *domain.SessionState, now time.Time) error {
		ch, ok := state.FindPending(challengeID)
		if !ok {
			return domain.ErrChallengeNotFound
		}
		attempt := challenge.Evaluate(*ch, submitted, now)
		delete(state.Pending, ch.Category)
		e.generator.RecordScore(state, ch.Category, attempt.CorrectnessScore)

		log := events.NewLog(e.cfg.Events, state.Events)
		ev, err := log.Record(sessionID, string(domain.EventChallengeResult), map[string]any{
			"category":          string(ch.Category),
			"score":             attempt.CorrectnessScore,
			"reasoning_quality": attempt.ReasoningQuality,
			"tier":              ch.Tier,
		}, now)
		if err != nil {
			return err
		}
		state.Counters.Apply(ev)
		state.EventsSinceAssessment++
		changed = e.maybeReassess(state, log, now)
		result = AttemptResult{Attempt: attempt, NewBadges: e.awardBadges(state, log, now)}
		state.Events = log.Events()
		return nil
	})
	if err != nil {
		return AttemptResult{}, err
	}
	e.notify(sessionID, changed, result.NewBadges)
	return result, nil
}

// Ping reports the persistence medium's health.
func (e *Engine) Ping(ctx context.Context) error {
	return e.repo.Ping(ctx)
}

// withSession runs a read-modify-write under the session's mutex and
// saves with the loaded version. A version conflict means another process
// advanced the session; the mutation is reapplied once against the fresh
// state.
func (e *Engine) withSession(ctx context.Context, sessionID string, fn func(state *domain.SessionState, now time.Time) error) error {
	lock := e.locks.acquire(sessionID)
	defer e.locks.release(sessionID, lock)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		now := e.now()
		var state *domain.SessionState
		state, err = e.repo.LoadSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if state == nil {
			state = domain.NewSessionState(sessionID, now)
		}
		if err = fn(state, now); err != nil {
			return err
		}
		state.UpdatedAt = now
		err = e.repo.SaveSession(ctx, state, state.Version)
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
	}
	return err
}

// sessionLocks hands out one mutex per in-flight session. Entries are
// reference counted and removed as soon as the last holder releases, so
// the map never accumulates ids from the long tail of anonymous sessions.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (s *sessionLocks) acquire(sessionID string) *sessionLock {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sessionLock)
	}
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

func (s *sessionLocks) release(sessionID string, l *sessionLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, sessionID)
	}
	s.mu.Unlock()
}

// maybeReassess recomputes the stage when enough events have accumulated
// or the session has never been assessed. Returns the new assessment only
// when the stage actually moved.
func (e *Engine) maybeReassess(state *domain.SessionState, log *events.Log, now time.Time) *domain.StageAssessment {
	if state.Assessment != nil && state.EventsSinceAssessment < e.cfg.ReassessEvery {
		return nil
	}
	prev := domain.StageGuidedDiscovery
	if state.Assessment != nil {
		prev = state.Assessment.Stage
	}
	assessment := e.classifier.Assess(state.SessionID, log.Window(now), state.Assessment, now)
	state.Assessment = &assessment
	state.MarkReached(assessment.Stage)
	state.EventsSinceAssessment = 0
	if assessment.Stage != prev {
		return &assessment
	}
	return nil
}

// awardBadges evaluates the catalog against current state and records any
// new awards in the awarded set.
func (e *Engine) awardBadges(state *domain.SessionState, log *events.Log, now time.Time) []domain.BadgeAward {
	snap := achievements.Snapshot{
		Metrics:    state.Counters.Metrics(),
		Counters:   state.Counters,
		Assessment: state.Assessment,
		Events:     log.Window(now),
		Reached:    state.HasReached,
	}
	awards := e.badges.Evaluate(state, snap, now)
	for _, a := range awards {
		state.Awarded[a.ID] = a.Badge
	}
	return awards
}

func (e *Engine) notify(sessionID string, changed *domain.StageAssessment, awards []domain.BadgeAward) {
	if e.notifier == nil {
		return
	}
	if changed != nil {
		e.notifier.StageChanged(sessionID, *changed)
	}
	for _, a := range awards {
		e.notifier.BadgeAwarded(sessionID, a)
	}
}
