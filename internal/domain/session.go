package domain

import (
	"time"
)

// SessionState is the complete persisted aggregate for one anonymous
// session: the bounded event log, the latest assessment, awarded badges,
// cumulative counters, and at most one pending challenge per category.
// All mutation happens within a single request under the engine's
// per-session serialization.
type SessionState struct {
	SessionID string `json:"session_id"`

	Events     []BehavioralEvent `json:"events"`
	Assessment *StageAssessment  `json:"assessment,omitempty"`

	Awarded map[string]Badge `json:"awarded"`

	Counters CumulativeCounters `json:"counters"`

	Pending map[ChallengeCategory]*Challenge `json:"pending,omitempty"`

	// AttemptHistory holds the rolling correctness scores per category,
	// newest last, capped by the generator's rolling window.
	AttemptHistory map[ChallengeCategory][]float64 `json:"attempt_history,omitempty"`

	// RecentTemplates holds the template ids of the last generations per
	// category, used to avoid immediate repetition.
	RecentTemplates map[ChallengeCategory][]string `json:"recent_templates,omitempty"`

	// Tiers is the current difficulty tier per category.
	Tiers map[ChallengeCategory]int `json:"tiers,omitempty"`

	// ReachedStages is a bitmask of stages the session has ever attained.
	// Stage-progression badges key off this, so hysteresis-dampened
	// demotion and re-promotion never re-fires a badge.
	ReachedStages uint8 `json:"reached_stages"`

	// EventsSinceAssessment counts records since the last classifier run.
	EventsSinceAssessment int `json:"events_since_assessment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is the optimistic-concurrency counter managed by the store.
	Version int64 `json:"-"`
}

// NewSessionState returns a cold-start aggregate for a session id.
func NewSessionState(sessionID string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:       sessionID,
		Awarded:         make(map[string]Badge),
		Pending:         make(map[ChallengeCategory]*Challenge),
		AttemptHistory:  make(map[ChallengeCategory][]float64),
		RecentTemplates: make(map[ChallengeCategory][]string),
		Tiers:           make(map[ChallengeCategory]int),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// EnsureMaps initializes nil maps after deserialization.
func (s *SessionState) EnsureMaps() {
	if s.Awarded == nil {
		s.Awarded = make(map[string]Badge)
	}
	if s.Pending == nil {
		s.Pending = make(map[ChallengeCategory]*Challenge)
	}
	if s.AttemptHistory == nil {
		s.AttemptHistory = make(map[ChallengeCategory][]float64)
	}
	if s.RecentTemplates == nil {
		s.RecentTemplates = make(map[ChallengeCategory][]string)
	}
	if s.Tiers == nil {
		s.Tiers = make(map[ChallengeCategory]int)
	}
}

// MarkReached records that a stage has been attained.
func (s *SessionState) MarkReached(stage Stage) {
	if stage.Valid() {
		s.ReachedStages |= 1 << uint(stage)
	}
}

// HasReached reports whether a stage was ever attained.
func (s *SessionState) HasReached(stage Stage) bool {
	return s.ReachedStages&(1<<uint(stage)) != 0
}

// HasBadge reports whether a badge id is already awarded. Award
// idempotency is enforced here, not by predicates going false.
func (s *SessionState) HasBadge(id string) bool {
	_, ok := s.Awarded[id]
	return ok
}

// FindPending returns the pending challenge matching an id, if any.
func (s *SessionState) FindPending(challengeID string) (*Challenge, bool) {
	for _, ch := range s.Pending {
		if ch != nil && ch.ID == challengeID {
			return ch, true
		}
	}
	return nil, false
}
