package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/logging"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/dmitrijs2005/docusigner/internal/server/notify"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/audits"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/externalsignatures"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/users"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// -------- logger --------

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

// -------- repositories --------

type fakeUsersRepo struct {
	users.Repository
	byID map[string]*models.User
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

type fakeDocumentsRepo struct {
	documents.Repository
	mu        sync.Mutex
	byID      map[string]*models.Document
	createErr error
	setErr    error
	created   []*models.Document
}

func (f *fakeDocumentsRepo) Create(_ context.Context, d *models.Document) (*models.Document, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *d
	out.ID = "doc-new"
	out.UploadedAt = testNow
	f.created = append(f.created, &out)
	f.byID[out.ID] = &out
	return &out, nil
}

func (f *fakeDocumentsRepo) GetByID(_ context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.byID[id]; ok {
		c := *d
		return &c, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeDocumentsRepo) SetSignedPath(_ context.Context, id, p string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	d.SignedPath = &p
	return nil
}

type fakeSignaturesRepo struct {
	signatures.Repository
	saved []models.Signature
	err   error
}

func (f *fakeSignaturesRepo) CreateMany(_ context.Context, sigs []models.Signature) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, sigs...)
	return nil
}

type fakeAuditsRepo struct {
	audits.Repository
	mu      sync.Mutex
	entries []models.AuditEntry
	err     error
}

func (f *fakeAuditsRepo) Record(_ context.Context, e *models.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAuditsRepo) ListByDocument(_ context.Context, documentID string) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for _, e := range f.entries {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeExternalRepo keeps rows in memory and applies the same compare-and-set
// rules as the SQL repository, under one mutex.
type fakeExternalRepo struct {
	externalsignatures.Repository
	mu       sync.Mutex
	rows     map[string]*models.ExternalSignature
	seq      int
	expired  []string
	markSent []string

	createErr  error
	reissueErr []error
	views      []models.ExternalRequestView
}

func newFakeExternalRepo() *fakeExternalRepo {
	return &fakeExternalRepo{rows: map[string]*models.ExternalSignature{}}
}

func (f *fakeExternalRepo) put(e models.ExternalSignature) *models.ExternalSignature {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := e
	f.rows[c.ID] = &c
	return &c
}

func (f *fakeExternalRepo) get(id string) models.ExternalSignature {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

func (f *fakeExternalRepo) tokenTaken(hash string) bool {
	for _, r := range f.rows {
		if r.TokenHash == hash {
			return true
		}
	}
	return false
}

func (f *fakeExternalRepo) Create(_ context.Context, e *models.ExternalSignature) (*models.ExternalSignature, error) {
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenTaken(e.TokenHash) {
		return nil, common.ErrConflict
	}
	f.seq++
	c := *e
	c.ID = "req-" + string(rune('0'+f.seq))
	c.Status = models.StatusPending
	c.CreatedAt = testNow
	f.rows[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeExternalRepo) GetByID(_ context.Context, id string) (*models.ExternalSignature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeExternalRepo) GetByTokenHash(_ context.Context, hash string) (*models.ExternalSignature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.TokenHash == hash {
			c := *r
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeExternalRepo) FindActiveByDocumentAndEmail(_ context.Context, docID, email string) (*models.ExternalSignature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.DocumentID == docID && strings.EqualFold(r.SignerEmail, email) && r.Status.Live() {
			c := *r
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeExternalRepo) ListByRequester(_ context.Context, requesterID string) ([]models.ExternalRequestView, error) {
	var out []models.ExternalRequestView
	for _, v := range f.views {
		if v.RequesterID == requesterID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeExternalRepo) Reissue(_ context.Context, id, hash string, expiresAt time.Time, fields []models.ExternalField) (*models.ExternalSignature, error) {
	if len(f.reissueErr) > 0 {
		err := f.reissueErr[0]
		f.reissueErr = f.reissueErr[1:]
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status.Final() || f.tokenTaken(hash) {
		return nil, common.ErrConflict
	}
	r.TokenHash = hash
	r.ExpiresAt = expiresAt
	r.Status = models.StatusPending
	if fields != nil {
		r.Fields = fields
	}
	c := *r
	return &c, nil
}

func (f *fakeExternalRepo) MarkSent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markSent = append(f.markSent, id)
	if r, ok := f.rows[id]; ok && r.Status == models.StatusPending {
		r.Status = models.StatusSent
	}
	return nil
}

func (f *fakeExternalRepo) MarkExpired(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, id)
	if r, ok := f.rows[id]; ok && r.Status.Live() && r.ExpiresAt.Before(now) {
		r.Status = models.StatusExpired
	}
	return nil
}

func (f *fakeExternalRepo) cas(id, hash string, now time.Time, apply func(r *models.ExternalSignature)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.TokenHash != hash || !r.Status.Live() || r.ExpiresAt.Before(now) {
		return common.ErrConflict
	}
	apply(r)
	return nil
}

func (f *fakeExternalRepo) TransitionToSigned(_ context.Context, id, hash string, now time.Time) error {
	return f.cas(id, hash, now, func(r *models.ExternalSignature) {
		r.Status = models.StatusSigned
		t := now
		r.SignedAt = &t
	})
}

func (f *fakeExternalRepo) TransitionToRejected(_ context.Context, id, hash, reason string, now time.Time) error {
	return f.cas(id, hash, now, func(r *models.ExternalSignature) {
		r.Status = models.StatusRejected
		r.RejectionReason = &reason
	})
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	u *fakeUsersRepo
	d *fakeDocumentsRepo
	s *fakeSignaturesRepo
	a *fakeAuditsRepo
	e *fakeExternalRepo
}

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository           { return m.u }
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository   { return m.d }
func (m *fakeRepoManager) Signatures(dbx.DBTX) signatures.Repository { return m.s }
func (m *fakeRepoManager) Audits(dbx.DBTX) audits.Repository         { return m.a }
func (m *fakeRepoManager) ExternalSignatures(dbx.DBTX) externalsignatures.Repository {
	return m.e
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{byID: map[string]*models.User{
			"owner": {ID: "owner", Name: "Olivia Owner", Email: "olivia@x.com"},
		}},
		d: &fakeDocumentsRepo{byID: map[string]*models.Document{
			"doc1": {ID: "doc1", OwnerID: "owner", FileName: "100-a.pdf", OriginalName: "lease.pdf", Path: "100-a.pdf"},
		}},
		s: &fakeSignaturesRepo{},
		a: &fakeAuditsRepo{},
		e: newFakeExternalRepo(),
	}
}

// -------- storage, stamper, mailer --------

type memStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	writeErr error
	writes   []string
	deletes  []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{"100-a.pdf": []byte("%PDF-original")}}
}

func (m *memStorage) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return b, nil
}

func (m *memStorage) Write(_ context.Context, key string, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.writes = append(m.writes, key)
	return nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deletes = append(m.deletes, key)
	return nil
}

type fakeStamper struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeStamper) Stamp(src []byte, fields []models.Field) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append(append([]byte{}, src...), []byte("+stamped")...), nil
}

type fakeMailer struct {
	sent []notify.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m notify.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

var errBoom = errors.New("boom")

func auditEntry(docID string, uid *string, action string) models.AuditEntry {
	return models.AuditEntry{DocumentID: docID, UserID: uid, Action: action, Timestamp: testNow}
}
