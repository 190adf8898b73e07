// Package escalation holds the pure state machine of the inactivity engine:
// the ordered escalation stages, the calculator that maps elapsed inactivity
// to a stage, and the rules deciding when a stage is due another
// notification. Nothing in this package has side effects; the scheduler
// feeds it ledger records and a clock.
package escalation

import (
	"fmt"
	"time"
)

// Stage is an escalation stage. Stages are strictly ordered; a user who was
// not evaluated for several days lands directly on the highest stage whose
// threshold is met, never on a skipped intermediate one.
type Stage int

const (
	StageActive Stage = iota
	StageWarn50
	StageWarn75
	StageFinalWeek
	StageGracePeriod
	StageExpired
)

var stageNames = map[Stage]string{
	StageActive:      "active",
	StageWarn50:      "warn_50",
	StageWarn75:      "warn_75",
	StageFinalWeek:   "final_week",
	StageGracePeriod: "grace_period",
	StageExpired:     "expired",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// OneShot reports whether the stage is notified at most once per
// inactivity cycle.
func (s Stage) OneShot() bool {
	return s == StageWarn50 || s == StageWarn75
}

// Cadence returns the minimum interval between repeated notifications for
// the stage, or zero for stages that do not repeat.
func (s Stage) Cadence() time.Duration {
	switch s {
	case StageFinalWeek:
		return 24 * time.Hour
	case StageGracePeriod:
		return 48 * time.Hour
	default:
		return 0
	}
}
