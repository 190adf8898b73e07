package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const grace = 14

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func lastActivityDaysAgo(days float64) time.Time {
	return now.Add(-time.Duration(days * 24 * float64(time.Hour)))
}

func TestCalculate_BoundaryTable(t *testing.T) {
	tests := []struct {
		name   string
		period int
		days   float64
		want   Stage
	}{
		{"fresh activity", 180, 0, StageActive},
		{"one day before half", 180, 89, StageActive},
		{"exactly half period", 180, 90, StageWarn50},
		{"between half and three quarters", 180, 120, StageWarn50},
		{"one day before three quarters", 180, 134, StageWarn50},
		{"exactly three quarters", 180, 135, StageWarn75},
		{"deep in warn75", 180, 157, StageWarn75},
		{"one day before final week", 180, 172, StageWarn75},
		{"final week start", 180, 173, StageFinalWeek},
		{"last day before period", 180, 179, StageFinalWeek},
		{"period reached", 180, 180, StageGracePeriod},
		{"day one of grace", 180, 181, StageGracePeriod},
		{"last grace day", 180, 193, StageGracePeriod},
		{"grace exhausted", 180, 194, StageExpired},
		{"well past expiry", 180, 195, StageExpired},
		{"short period half", 90, 45, StageWarn50},
		{"two year period half", 730, 365, StageWarn50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate(lastActivityDaysAgo(tc.days), tc.period, grace, now)
			assert.Equal(t, tc.want, got, "period=%d days=%v", tc.period, tc.days)
		})
	}
}

func TestCalculate_MonotonicInElapsedTime(t *testing.T) {
	for _, period := range []int{90, 180, 365, 730} {
		prev := StageActive
		for days := 0.0; days <= float64(period)+30; days += 0.5 {
			got := Calculate(lastActivityDaysAgo(days), period, grace, now)
			assert.GreaterOrEqual(t, got, prev,
				"stage regressed at period=%d days=%v", period, days)
			prev = got
		}
	}
}

func TestCalculate_NegativeElapsedClampsToActive(t *testing.T) {
	future := now.Add(48 * time.Hour)
	assert.Equal(t, StageActive, Calculate(future, 90, grace, now))
	assert.Equal(t, 0.0, DaysInactive(future, now))
}

func TestCalculate_ThresholdsScaleWithUserPeriod(t *testing.T) {
	// 100 days inactive means very different things for different periods.
	la := lastActivityDaysAgo(100)
	assert.Equal(t, StageExpired, Calculate(la, 80, grace, now))
	assert.Equal(t, StageWarn50, Calculate(la, 180, grace, now))
	assert.Equal(t, StageActive, Calculate(la, 365, grace, now))
}

func TestDue_OneShotStages(t *testing.T) {
	assert.True(t, Due(StageWarn50, map[string]time.Time{}, false, now))
	assert.False(t, Due(StageWarn50,
		map[string]time.Time{StageWarn50.String(): now.Add(-time.Hour)}, false, now))

	// A send recorded for a lower stage does not suppress a higher one.
	assert.True(t, Due(StageWarn75,
		map[string]time.Time{StageWarn50.String(): now.Add(-40 * 24 * time.Hour)}, false, now))
}

func TestDue_FinalWeekDailyCadence(t *testing.T) {
	sent := map[string]time.Time{StageFinalWeek.String(): now.Add(-23 * time.Hour)}
	assert.False(t, Due(StageFinalWeek, sent, false, now))

	sent[StageFinalWeek.String()] = now.Add(-24 * time.Hour)
	assert.True(t, Due(StageFinalWeek, sent, false, now))
}

func TestDue_GracePeriodEveryTwoDays(t *testing.T) {
	sent := map[string]time.Time{StageGracePeriod.String(): now.Add(-24 * time.Hour)}
	assert.False(t, Due(StageGracePeriod, sent, false, now))

	sent[StageGracePeriod.String()] = now.Add(-48 * time.Hour)
	assert.True(t, Due(StageGracePeriod, sent, false, now))
}

func TestDue_ExpiredGatedByRevealed(t *testing.T) {
	assert.True(t, Due(StageExpired, nil, false, now))
	assert.False(t, Due(StageExpired, nil, true, now))
}

func TestDue_ActiveNeverDue(t *testing.T) {
	assert.False(t, Due(StageActive, nil, false, now))
}
