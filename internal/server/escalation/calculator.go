package escalation

import "time"

// hoursPerDay keeps day arithmetic in one place; thresholds are expressed
// in days so the scheduler tick interval can shrink to minutes for
// operational testing without changing any of this.
const hoursPerDay = 24

// DaysInactive returns the fractional number of days elapsed between
// lastActivityAt and now, clamped at zero. Clock skew must never produce a
// negative value that could escalate a freshly active user.
func DaysInactive(lastActivityAt, now time.Time) float64 {
	elapsed := now.Sub(lastActivityAt)
	if elapsed < 0 {
		return 0
	}
	return elapsed.Hours() / hoursPerDay
}

// Calculate returns the highest stage whose threshold is met for a user
// with the given inactivity period, grace period and elapsed time.
//
// Thresholds, in days inactive, all computed from the user's own period:
//
//	Warn50       >= 0.5 * period
//	Warn75       >= 0.75 * period
//	FinalWeek    >= period - 7
//	GracePeriod  >= period
//	Expired      >= period + grace
//
// The result is monotonically non-decreasing in elapsed time.
func Calculate(lastActivityAt time.Time, periodDays, graceDays int, now time.Time) Stage {
	days := DaysInactive(lastActivityAt, now)
	period := float64(periodDays)

	switch {
	case days >= period+float64(graceDays):
		return StageExpired
	case days >= period:
		return StageGracePeriod
	case days >= period-7:
		return StageFinalWeek
	case days >= 0.75*period:
		return StageWarn75
	case days >= 0.5*period:
		return StageWarn50
	default:
		return StageActive
	}
}

// Due reports whether the stage warrants a notification at this evaluation,
// given the per-stage last-sent timestamps of the current cycle and whether
// the vault is already revealed.
//
// One-shot stages fire only if no send is recorded for them this cycle.
// Cadence stages fire when the cadence interval has elapsed since their own
// last send. Expired fires exactly until the disclosure gate is crossed.
func Due(stage Stage, lastSent map[string]time.Time, revealed bool, now time.Time) bool {
	switch {
	case stage == StageActive:
		return false
	case stage == StageExpired:
		return !revealed
	case stage.OneShot():
		_, seen := lastSent[stage.String()]
		return !seen
	default:
		last, ok := lastSent[stage.String()]
		return !ok || now.Sub(last) >= stage.Cadence()
	}
}
