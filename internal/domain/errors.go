package domain

import "errors"

// InvalidEventError rejects a malformed event at record time. It is the
// only engine error surfaced directly to callers on the write path.
type InvalidEventError struct {
	Reason string
}

func (e *InvalidEventError) Error() string {
	return "invalid event: " + e.Reason
}

// ErrChallengeNotFound is returned when an attempt references a challenge
// id that is unknown or was already replaced by a newer generation.
var ErrChallengeNotFound = errors.New("challenge not found")
