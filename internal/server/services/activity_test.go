package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/common"
	"github.com/dmitrijs2005/lifevault/internal/server/config"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
	"github.com/dmitrijs2005/lifevault/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActivityFixture(t *testing.T) (*ActivityService, *fakeManager, *timex.FakeClock) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	clock := timex.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	m := newFakeManager()
	svc := NewActivityService(newTestDB(t), m, cfg, clock, discardLogger())
	return svc, m, clock
}

func seedRecord(m *fakeManager, userID string, daysInactive int, clock timex.Clock) {
	m.ledger.put(&models.ActivityRecord{
		UserID: userID, Email: userID + "@example.com", Name: "User " + userID,
		LastActivityAt:       clock.Now().Add(-time.Duration(daysInactive) * 24 * time.Hour),
		InactivityPeriodDays: 180,
		StageLastSent:        map[string]time.Time{"warn_50": clock.Now().Add(-24 * time.Hour)},
		Active:               true,
	})
}

func TestIssueToken_ReplacesPrevious(t *testing.T) {
	svc, m, clock := newActivityFixture(t)
	ctx := context.Background()

	first, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// The superseded token is gone entirely, not just consumed.
	_, err = m.tokens.Find(ctx, first)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	tok, err := m.tokens.Find(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "u1", tok.UserID)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour), tok.ExpiresAt)
}

func TestRedeemToken_ResetsCycle(t *testing.T) {
	svc, m, clock := newActivityFixture(t)
	ctx := context.Background()
	seedRecord(m, "u1", 100, clock)

	token, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	userID, err := svc.RedeemToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	rec := m.ledger.get("u1")
	assert.Equal(t, clock.Now(), rec.LastActivityAt)
	assert.Empty(t, rec.StageLastSent, "notification markers must be cleared")
	assert.Equal(t, int64(2), rec.Version)
	assert.Contains(t, m.audit.actions("u1"), models.ActionActivityConfirmed)
}

func TestRedeemToken_SecondUseFails(t *testing.T) {
	svc, m, clock := newActivityFixture(t)
	ctx := context.Background()
	seedRecord(m, "u1", 100, clock)

	token, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)

	_, err = svc.RedeemToken(ctx, token)
	require.NoError(t, err)

	_, err = svc.RedeemToken(ctx, token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRedeemToken_UnknownAndExpiredLookIdentical(t *testing.T) {
	svc, m, clock := newActivityFixture(t)
	ctx := context.Background()
	seedRecord(m, "u1", 100, clock)

	token, err := svc.IssueToken(ctx, "u1")
	require.NoError(t, err)

	_, unknownErr := svc.RedeemToken(ctx, "deadbeef")
	require.ErrorIs(t, unknownErr, common.ErrInvalidToken)

	clock.Advance(8 * 24 * time.Hour)
	_, expiredErr := svc.RedeemToken(ctx, token)
	require.ErrorIs(t, expiredErr, common.ErrInvalidToken)

	assert.Equal(t, unknownErr.Error(), expiredErr.Error())
}

func TestRecordActivity_RetriesOnVersionConflict(t *testing.T) {
	svc, m, clock := newActivityFixture(t)
	ctx := context.Background()
	seedRecord(m, "u1", 100, clock)
	m.ledger.failUpdates = 1

	require.NoError(t, svc.RecordActivity(ctx, "u1"))

	rec := m.ledger.get("u1")
	assert.Equal(t, clock.Now(), rec.LastActivityAt)
	assert.GreaterOrEqual(t, m.ledger.updateCalls, 2)
}

func TestUpdateSettings(t *testing.T) {
	svc, m, clock := newActivityFixture(t)
	ctx := context.Background()
	seedRecord(m, "u1", 100, clock)

	require.ErrorIs(t, svc.UpdateSettings(ctx, "u1", 10), common.ErrInvalidSettings)
	require.ErrorIs(t, svc.UpdateSettings(ctx, "u1", 731), common.ErrInvalidSettings)

	require.NoError(t, svc.UpdateSettings(ctx, "u1", 90))

	rec := m.ledger.get("u1")
	assert.Equal(t, 90, rec.InactivityPeriodDays)
	// Markers survive a settings change; shortening the period must not
	// replay warnings already sent this cycle.
	assert.Contains(t, rec.StageLastSent, "warn_50")
	assert.Contains(t, m.audit.actions("u1"), models.ActionSettingsUpdated)
}

func TestUpdateSettings_FullSupportedRange(t *testing.T) {
	svc, m, clock := newActivityFixture(t)
	ctx := context.Background()
	seedRecord(m, "u1", 100, clock)

	// The product supports anything from a month up to two years.
	for _, days := range []int{30, 180, 365, 730} {
		require.NoError(t, svc.UpdateSettings(ctx, "u1", days))
		assert.Equal(t, days, m.ledger.get("u1").InactivityPeriodDays)
	}
}

func TestSimulateInactivity(t *testing.T) {
	svc, m, clock := newActivityFixture(t)
	ctx := context.Background()
	seedRecord(m, "u1", 0, clock)

	require.ErrorIs(t, svc.SimulateInactivity(ctx, "u1", -1), common.ErrInvalidSettings)

	require.NoError(t, svc.SimulateInactivity(ctx, "u1", 175))

	rec := m.ledger.get("u1")
	assert.Equal(t, clock.Now().Add(-175*24*time.Hour), rec.LastActivityAt)
	assert.Empty(t, rec.StageLastSent)
}

func TestRedeemToken_MissingRecordIsInternal(t *testing.T) {
	svc, _, _ := newActivityFixture(t)
	ctx := context.Background()

	token, err := svc.IssueToken(ctx, "ghost")
	require.NoError(t, err)

	_, err = svc.RedeemToken(ctx, token)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotErrorIs(t, err, common.ErrInvalidToken)
}
