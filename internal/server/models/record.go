package models

import "time"

// ActivityRecord is the ledger row the escalation engine owns for each user:
// the last confirmed activity, the configured inactivity period, and the
// per-cycle notification bookkeeping.
//
// StageLastSent maps a stage name to the time its notification was last
// dispatched in the current cycle. Presence of a key is the one-shot guard;
// the timestamp drives the repeating cadences. The whole map is cleared
// whenever LastActivityAt advances.
//
// Version backs optimistic concurrency: every update must carry the version
// it read, and the store rejects stale writers with a version conflict.
type ActivityRecord struct {
	UserID               string
	Email                string
	Name                 string
	LastActivityAt       time.Time
	InactivityPeriodDays int
	StageLastSent        map[string]time.Time
	Revealed             bool
	RevealedAt           *time.Time
	Active               bool
	Version              int64
}

// ResetCycle restarts the inactivity cycle from the given moment: the timer
// goes back to zero and all notification markers are cleared. Revealed is
// deliberately untouched; the disclosure gate is one-way.
func (r *ActivityRecord) ResetCycle(now time.Time) {
	r.LastActivityAt = now
	r.StageLastSent = map[string]time.Time{}
}
