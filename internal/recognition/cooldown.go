package recognition

import (
	"sync"
	"time"
)

// DefaultCooldown is the recommended minimum time between two attendance
// writes for the same identity.
const DefaultCooldown = 20 * time.Second

// Deduplicator suppresses repeated attendance writes for an identity within a
// cooldown window. The store's daily uniqueness remains the source of truth.
type Deduplicator struct {
	mu           sync.Mutex
	lastRecorded map[string]time.Time
}

// NewDeduplicator creates an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{lastRecorded: make(map[string]time.Time)}
}

// ShouldRecord reports whether identity has no prior record or more than
// cooldown has elapsed since it.
func (d *Deduplicator) ShouldRecord(identity string, now time.Time, cooldown time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastRecorded[identity]
	if !ok {
		return true
	}
	return now.Sub(last) > cooldown
}

// MarkRecorded stamps a completed store write. Call it only after the write
// succeeded or reported the record as already present.
func (d *Deduplicator) MarkRecorded(identity string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastRecorded[identity] = now
}

// LastRecorded returns the last recorded time of an identity.
func (d *Deduplicator) LastRecorded(identity string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.lastRecorded[identity]
	return t, ok
}
