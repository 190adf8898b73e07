package services

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/common"
	"github.com/dmitrijs2005/lifevault/internal/dbx"
	"github.com/dmitrijs2005/lifevault/internal/logging"
	"github.com/dmitrijs2005/lifevault/internal/server/models"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/activitylog"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/assets"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/ledger"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/tokens"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// In-memory repository fakes. They ignore the DBTX handle; the services are
// exercised against a real sqlite connection only so that WithTx has
// something to begin and commit.

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
}

func cloneRecord(r *models.ActivityRecord) *models.ActivityRecord {
	c := *r
	c.StageLastSent = make(map[string]time.Time, len(r.StageLastSent))
	for k, v := range r.StageLastSent {
		c.StageLastSent[k] = v
	}
	return &c
}

type fakeLedger struct {
	mu          sync.Mutex
	recs        map[string]*models.ActivityRecord
	failUpdates int // next N updates fail with a version conflict
	updateCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{recs: map[string]*models.ActivityRecord{}}
}

func (f *fakeLedger) put(rec *models.ActivityRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.Version == 0 {
		rec.Version = 1
	}
	f.recs[rec.UserID] = cloneRecord(rec)
}

func (f *fakeLedger) get(userID string) *models.ActivityRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRecord(f.recs[userID])
}

func (f *fakeLedger) Get(ctx context.Context, userID string) (*models.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneRecord(rec), nil
}

func (f *fakeLedger) ListActive(ctx context.Context) ([]*models.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ActivityRecord
	for _, rec := range f.recs {
		if rec.Active && !rec.Revealed {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (f *fakeLedger) Create(ctx context.Context, rec *models.ActivityRecord) error {
	rec.Version = 1
	f.put(rec)
	return nil
}

func (f *fakeLedger) Update(ctx context.Context, rec *models.ActivityRecord, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdates > 0 {
		f.failUpdates--
		return common.ErrVersionConflict
	}
	stored, ok := f.recs[rec.UserID]
	if !ok {
		return common.ErrorNotFound
	}
	if stored.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	c := cloneRecord(rec)
	c.Version = expectedVersion + 1
	f.recs[rec.UserID] = c
	return nil
}

var _ ledger.Repository = (*fakeLedger)(nil)

type fakeTokens struct {
	mu   sync.Mutex
	toks map[string]*models.ConfirmationToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{toks: map[string]*models.ConfirmationToken{}}
}

func (f *fakeTokens) Replace(ctx context.Context, userID, token string, issuedAt, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range f.toks {
		if v.UserID == userID {
			delete(f.toks, k)
		}
	}
	f.toks[token] = &models.ConfirmationToken{
		UserID: userID, Token: token, IssuedAt: issuedAt, ExpiresAt: expiresAt,
	}
	return nil
}

func (f *fakeTokens) Redeem(ctx context.Context, token string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.toks[token]
	if !ok || tok.ConsumedAt != nil || !tok.ExpiresAt.After(now) {
		return "", common.ErrInvalidToken
	}
	tok.ConsumedAt = &now
	return tok.UserID, nil
}

func (f *fakeTokens) Find(ctx context.Context, token string) (*models.ConfirmationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.toks[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *tok
	return &c, nil
}

func (f *fakeTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, v := range f.toks {
		if v.ExpiresAt.Before(now) {
			delete(f.toks, k)
			n++
		}
	}
	return n, nil
}

var _ tokens.Repository = (*fakeTokens)(nil)

type fakeContacts struct {
	mu       sync.Mutex
	contacts []*models.TrustedContact
}

func (f *fakeContacts) ListVerified(ctx context.Context, userID string) ([]*models.TrustedContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TrustedContact
	for _, c := range f.contacts {
		if c.UserID == userID && c.Verified {
			cc := *c
			out = append(out, &cc)
		}
	}
	return out, nil
}

func (f *fakeContacts) MarkNotified(ctx context.Context, contactID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contacts {
		if c.ID == contactID {
			c.Notified = true
			c.NotifiedAt = &at
		}
	}
	return nil
}

var _ contacts.Repository = (*fakeContacts)(nil)

type fakeAssets struct {
	assets []*models.Asset
}

func (f *fakeAssets) ListByUser(ctx context.Context, userID string) ([]*models.Asset, error) {
	var out []*models.Asset
	for _, a := range f.assets {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

var _ assets.Repository = (*fakeAssets)(nil)

type fakeAudit struct {
	mu      sync.Mutex
	entries []*models.ActivityLog
}

func (f *fakeAudit) Append(ctx context.Context, entry *models.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ActivityLog
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeAudit) actions(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e.Action)
		}
	}
	return out
}

var _ activitylog.Repository = (*fakeAudit)(nil)

type fakeManager struct {
	ledger   *fakeLedger
	tokens   *fakeTokens
	contacts *fakeContacts
	assets   *fakeAssets
	audit    *fakeAudit
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		ledger:   newFakeLedger(),
		tokens:   newFakeTokens(),
		contacts: &fakeContacts{},
		assets:   &fakeAssets{},
		audit:    &fakeAudit{},
	}
}

func (m *fakeManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeManager) Ledger(db dbx.DBTX) ledger.Repository               { return m.ledger }
func (m *fakeManager) Tokens(db dbx.DBTX) tokens.Repository               { return m.tokens }
func (m *fakeManager) Contacts(db dbx.DBTX) contacts.Repository           { return m.contacts }
func (m *fakeManager) Assets(db dbx.DBTX) assets.Repository               { return m.assets }
func (m *fakeManager) ActivityLog(db dbx.DBTX) activitylog.Repository     { return m.audit }
