package recognition

import (
	"fmt"
	"sync"
	"time"
)

// ConfirmationPolicy controls what happens to an identity's count when a
// processed frame does not match it.
type ConfirmationPolicy string

const (
	// PolicyAccumulate never decays counts within a session.
	PolicyAccumulate ConfirmationPolicy = "accumulate"
	// PolicyResetOnMiss resets an identity's count when a frame ends without
	// a positive match for it.
	PolicyResetOnMiss ConfirmationPolicy = "reset-on-miss"
)

// ParseConfirmationPolicy parses a policy name; empty selects PolicyAccumulate.
func ParseConfirmationPolicy(s string) (ConfirmationPolicy, error) {
	switch ConfirmationPolicy(s) {
	case "", PolicyAccumulate:
		return PolicyAccumulate, nil
	case PolicyResetOnMiss:
		return PolicyResetOnMiss, nil
	}
	return "", fmt.Errorf("unknown confirmation policy %q", s)
}

// ConfirmationState is the rolling state of one identity.
type ConfirmationState struct {
	Count         int
	LastMatchTime time.Time
}

// Tracker requires a number of positive matches before an identity counts as
// confirmed. It is safe for concurrent use.
type Tracker struct {
	required int
	policy   ConfirmationPolicy
	window   time.Duration

	mu     sync.Mutex
	states map[string]*ConfirmationState
}

// NewTracker creates a tracker. required below 1 is treated as 1. A positive
// window restarts the count when consecutive positives are further apart.
func NewTracker(required int, policy ConfirmationPolicy, window time.Duration) *Tracker {
	if required < 1 {
		required = 1
	}
	if policy == "" {
		policy = PolicyAccumulate
	}
	return &Tracker{
		required: required,
		policy:   policy,
		window:   window,
		states:   make(map[string]*ConfirmationState),
	}
}

// Required returns the confirmation threshold.
func (t *Tracker) Required() int {
	return t.required
}

// Policy returns the configured policy.
func (t *Tracker) Policy() ConfirmationPolicy {
	return t.policy
}

// RecordPositive counts a positive match for identity at time now and returns
// the new count.
func (t *Tracker) RecordPositive(identity string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[identity]
	if !ok {
		st = &ConfirmationState{}
		t.states[identity] = st
	}
	if t.window > 0 && st.Count > 0 && now.Sub(st.LastMatchTime) > t.window {
		st.Count = 0
	}
	st.Count++
	st.LastMatchTime = now
	return st.Count
}

// IsConfirmed reports whether the identity has reached the threshold.
func (t *Tracker) IsConfirmed(identity string) bool {
	return t.Count(identity) >= t.required
}

// Count returns the current count for an identity.
func (t *Tracker) Count(identity string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[identity]; ok {
		return st.Count
	}
	return 0
}

// State returns a copy of the identity's state.
func (t *Tracker) State(identity string) (ConfirmationState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[identity]
	if !ok {
		return ConfirmationState{}, false
	}
	return *st, true
}

// EndFrame applies the miss policy after a frame. matched holds the
// identities that got a positive match in the frame.
func (t *Tracker) EndFrame(matched map[string]struct{}) {
	if t.policy != PolicyResetOnMiss {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, st := range t.states {
		if _, ok := matched[id]; !ok {
			st.Count = 0
		}
	}
}

// Reset clears all state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[string]*ConfirmationState)
}
