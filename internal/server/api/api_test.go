package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/logging"
	"github.com/dmitrijs2005/docusigner/internal/pdfstamp"
	"github.com/dmitrijs2005/docusigner/internal/server/auth"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/dmitrijs2005/docusigner/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

// -------- fakes --------

type fakeDocs struct {
	DocumentService
	doc       *models.Document
	err       error
	gotOwner  string
	gotName   string
	gotData   []byte
	gotIP     string
	trail     []models.AuditEntry
	artifacts map[string][]byte
}

func (f *fakeDocs) Upload(_ context.Context, ownerID, name string, data []byte, ip string) (*models.Document, error) {
	f.gotOwner, f.gotName, f.gotData, f.gotIP = ownerID, name, data, ip
	return f.doc, f.err
}

func (f *fakeDocs) Get(_ context.Context, id, userID string) (*models.Document, error) {
	f.gotOwner = userID
	return f.doc, f.err
}

func (f *fakeDocs) AuditTrail(context.Context, string, string) ([]models.AuditEntry, error) {
	return f.trail, f.err
}

func (f *fakeDocs) OpenArtifact(_ context.Context, name string) ([]byte, error) {
	b, ok := f.artifacts[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return b, nil
}

type fakeSigning struct {
	SigningService
	err       error
	gotFields []models.Field
	gotToken  string
	gotIP     string
}

func (f *fakeSigning) SignOwned(_ context.Context, docID, userID string, fields []models.Field, ip string) (string, error) {
	f.gotFields, f.gotIP = fields, ip
	if f.err != nil {
		return "", f.err
	}
	return "/uploads/1-a-signed.pdf", nil
}

func (f *fakeSigning) SubmitExternalSign(_ context.Context, token string, fields []models.Field, ip string) (time.Time, error) {
	f.gotToken, f.gotFields, f.gotIP = token, fields, ip
	return now, f.err
}

type fakeInvites struct {
	InviteService
	inv       *services.Invitation
	view      *services.SigningView
	views     []models.ExternalRequestView
	err       error
	gotInput  services.CreateInviteInput
	gotReason string
}

func (f *fakeInvites) CreateInvite(_ context.Context, in services.CreateInviteInput) (*services.Invitation, error) {
	f.gotInput = in
	return f.inv, f.err
}

func (f *fakeInvites) ResendInvite(context.Context, string, string, string) (*services.Invitation, error) {
	return f.inv, f.err
}

func (f *fakeInvites) FetchForSigning(context.Context, string) (*services.SigningView, error) {
	return f.view, f.err
}

func (f *fakeInvites) SubmitReject(_ context.Context, _ string, reason, _ string) error {
	f.gotReason = reason
	return f.err
}

func (f *fakeInvites) ListRequests(context.Context, string) ([]models.ExternalRequestView, error) {
	return f.views, f.err
}

// -------- helpers --------

type harness struct {
	docs    *fakeDocs
	signing *fakeSigning
	invites *fakeInvites
	router  *Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &harness{
		docs:    &fakeDocs{artifacts: map[string][]byte{}},
		signing: &fakeSigning{},
		invites: &fakeInvites{},
	}
	h.router = NewRouter(nopLogger{}, secret, h.docs, h.signing, h.invites)
	return h
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(secret), time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (h *harness) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.router.Handler().ServeHTTP(rec, req)
	return rec
}

func authHeader(t *testing.T) http.Header {
	return http.Header{"Authorization": []string{bearer(t, "owner")}}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sampleRequest() *models.ExternalSignature {
	return &models.ExternalSignature{
		ID: "r1", DocumentID: "d1", SignerEmail: "s@x.com", SignerName: "S", TokenHash: "secret-digest",
		Status: models.StatusSent, ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

// -------- tests --------

func TestHealthAndRequestID(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "up", decode(t, rec)["status"])
	assert.Len(t, rec.Header().Get(common.RequestIDHeaderName), 36)

	id := "0b5f7a8e-3c1d-4e6b-9f20-5a4c3b2d1e0f"
	rec = h.do(t, http.MethodGet, "/health", nil, http.Header{common.RequestIDHeaderName: []string{id}})
	assert.Equal(t, id, rec.Header().Get(common.RequestIDHeaderName))
}

func TestRequireAuth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/docs/d1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/docs/d1", nil, http.Header{"Authorization": []string{"Bearer garbage"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := auth.GenerateToken("owner", []byte(secret), -time.Minute)
	require.NoError(t, err)
	rec = h.do(t, http.MethodGet, "/api/docs/d1", nil, http.Header{"Authorization": []string{"Bearer " + expired}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h.docs.doc = &models.Document{ID: "d1", Path: "1-a.pdf"}
	rec = h.do(t, http.MethodGet, "/api/docs/d1", nil, authHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner", h.docs.gotOwner)
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	h.docs.doc = &models.Document{ID: "d1", FileName: "1-a.pdf", OriginalName: "c.pdf", Path: "1-a.pdf", Size: 9, UploadedAt: now}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("pdf", "c.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.7\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/docs/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, "owner"))
	req.Header.Set(common.ForwardedForHeaderName, "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.router.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "/uploads/1-a.pdf", out["path"])
	assert.Nil(t, out["signedPath"])
	assert.Equal(t, "owner", h.docs.gotOwner)
	assert.Equal(t, "c.pdf", h.docs.gotName)
	assert.Equal(t, []byte("%PDF-1.7\n"), h.docs.gotData)
	assert.Equal(t, "203.0.113.7", h.docs.gotIP)
}

func TestUpload_MissingFile(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/docs/upload", "{}", authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocument_Errors(t *testing.T) {
	h := newHarness(t)
	h.docs.err = common.ErrorForbidden
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/api/docs/d1", nil, authHeader(t)).Code)
	h.docs.err = common.ErrorNotFound
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/docs/d1", nil, authHeader(t)).Code)
	h.docs.err = errors.New("db error: connection reset")
	rec := h.do(t, http.MethodGet, "/api/docs/d1", nil, authHeader(t))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestAuditTrail(t *testing.T) {
	h := newHarness(t)
	uid, name, email := "owner", "Olivia Owner", "olivia@x.com"
	h.docs.trail = []models.AuditEntry{
		{ID: "a1", UserID: &uid, UserName: &name, UserEmail: &email, Action: "Uploaded document", IP: "1.1.1.1", Timestamp: now},
		{ID: "a2", Action: "Signed by external user (s@x.com)", Timestamp: now.Add(time.Minute)},
	}
	rec := h.do(t, http.MethodGet, "/api/audit/d1", nil, authHeader(t))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []auditDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "Uploaded document", out[0].Action)
	require.NotNil(t, out[0].User)
	assert.Equal(t, userDTO{Name: "Olivia Owner", Email: "olivia@x.com"}, *out[0].User)
	assert.Nil(t, out[1].UserID)
	assert.Nil(t, out[1].User)
}

func TestDownload(t *testing.T) {
	h := newHarness(t)
	h.docs.artifacts["1-a-signed.pdf"] = []byte("%PDF-signed")

	rec := h.do(t, http.MethodGet, "/uploads/1-a-signed.pdf", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-signed", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/uploads/none.pdf", nil, nil).Code)
}

func TestFinalize(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{
		"documentId": "d1",
		"signatures": []map[string]any{
			{"type": "SIGNATURE", "content": "Olivia", "fontStyle": "Caveat", "x": 10, "y": 20, "page": 1, "color": map[string]any{"r": 1, "g": 0, "b": 0}},
		},
	}
	rec := h.do(t, http.MethodPost, "/api/signatures/finalize", body, authHeader(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/uploads/1-a-signed.pdf", decode(t, rec)["signedFile"])
	require.Len(t, h.signing.gotFields, 1)
	assert.Equal(t, "Caveat", h.signing.gotFields[0].Style())
	r, _, _ := h.signing.gotFields[0].Color.RGB()
	assert.Equal(t, 1.0, r)

	rec = h.do(t, http.MethodPost, "/api/signatures/finalize", "{not json", authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/signatures/finalize", map[string]any{"signatures": []any{}}, authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "documentId is required")

	h.signing.err = &pdfstamp.RenderError{Field: 0, Err: errors.New("page 3 out of range")}
	rec = h.do(t, http.MethodPost, "/api/signatures/finalize", body, authHeader(t))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFinalize_MalformedFontStyleUsesDefault(t *testing.T) {
	for _, style := range []any{42, map[string]any{"x": 1}, true} {
		h := newHarness(t)
		body := map[string]any{
			"documentId": "d1",
			"signatures": []map[string]any{
				{"type": "SIGNATURE", "content": "Olivia", "fontStyle": style, "x": 10, "y": 20, "page": 1},
			},
		}
		rec := h.do(t, http.MethodPost, "/api/signatures/finalize", body, authHeader(t))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, h.signing.gotFields, 1)
		assert.Nil(t, h.signing.gotFields[0].FontStyle)
		assert.Equal(t, "Olivia", h.signing.gotFields[0].Content)
	}
}

func TestCreateInvite(t *testing.T) {
	h := newHarness(t)
	h.invites.inv = &services.Invitation{
		Request: sampleRequest(), Token: "tok", Link: "http://app/external-sign/tok", ExpiresAt: now, EmailSent: true,
	}
	body := map[string]any{
		"documentId": "d1", "signerEmail": "s@x.com", "signerName": "S",
		"fields": []map[string]any{{"fieldType": "signature", "page": 1, "x": 5, "y": 6}},
	}
	rec := h.do(t, http.MethodPost, "/api/external-signatures", body, authHeader(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "http://app/external-sign/tok", out["tokenizedUrl"])
	assert.Equal(t, true, out["emailSent"])
	assert.NotContains(t, out, "warning")
	assert.NotContains(t, rec.Body.String(), "secret-digest")
	assert.Equal(t, "owner", h.invites.gotInput.RequesterID)
	require.Len(t, h.invites.gotInput.Fields, 1)

	h.invites.inv.EmailSent = false
	rec = h.do(t, http.MethodPost, "/api/external-signatures", body, authHeader(t))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, decode(t, rec), "warning")

	rec = h.do(t, http.MethodPost, "/api/external-signatures", map[string]any{"documentId": "d1"}, authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResendAndList(t *testing.T) {
	h := newHarness(t)
	h.invites.inv = &services.Invitation{Request: sampleRequest(), Token: "t2", Link: "http://app/external-sign/t2", ExpiresAt: now, EmailSent: true}

	rec := h.do(t, http.MethodPost, "/api/external-signatures/r1/resend", nil, authHeader(t))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "http://app/external-sign/t2", out["tokenizedUrl"])
	assert.Equal(t, now.Format(time.RFC3339), out["expiresAt"])

	h.invites.err = fmt.Errorf("request already signed: %w", common.ErrConflict)
	rec = h.do(t, http.MethodPost, "/api/external-signatures/r1/resend", nil, authHeader(t))
	assert.Equal(t, http.StatusConflict, rec.Code)

	h.invites.err = nil
	h.invites.views = []models.ExternalRequestView{{ExternalSignature: *sampleRequest(), DocumentName: "lease.pdf"}}
	rec = h.do(t, http.MethodGet, "/api/external-signatures", nil, authHeader(t))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []externalDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "lease.pdf", list[0].DocumentName)
	assert.Equal(t, []models.ExternalField{}, list[0].Fields)
}

func TestExternalFlow(t *testing.T) {
	h := newHarness(t)
	h.invites.view = &services.SigningView{
		Request:  sampleRequest(),
		Document:  &models.Document{ID: "d1", OriginalName: "lease.pdf", Path: "1-a.pdf"},
		Requester: &models.User{ID: "owner", Name: "Olivia Owner", Email: "olivia@x.com"},
	}

	rec := h.do(t, http.MethodGet, "/api/external/sign/tok", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	doc := body["document"].(map[string]any)
	assert.Equal(t, "/uploads/1-a.pdf", doc["path"])
	assert.Equal(t, map[string]any{"name": "Olivia Owner", "email": "olivia@x.com"}, body["requester"])

	h.invites.view.Requester = nil
	rec = h.do(t, http.MethodGet, "/api/external/sign/tok", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["requester"])

	sig := map[string]any{"signatures": []map[string]any{{"type": "SIGNATURE", "content": "J. Doe", "page": 1, "x": 100, "y": 200, "fontStyle": 42}}}
	rec = h.do(t, http.MethodPost, "/api/external/sign/tok", sig, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, h.signing.gotFields, 1)
	assert.Nil(t, h.signing.gotFields[0].FontStyle)

	body = map[string]any{"signatures": []map[string]any{{"type": "SIGNATURE", "content": "J. Doe", "page": 1, "x": 100, "y": 200}}}
	rec = h.do(t, http.MethodPost, "/api/external/sign/tok", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", h.signing.gotToken)
	assert.Equal(t, now.Format(time.RFC3339), decode(t, rec)["signedAt"])

	rec = h.do(t, http.MethodPost, "/api/external/sign/tok/reject", map[string]any{"reason": "wrong doc"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wrong doc", h.invites.gotReason)
}

func TestExternalFlow_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"expired", common.ErrExpired, http.StatusGone},
		{"terminal", fmt.Errorf("request already signed: %w", common.ErrConflict), http.StatusConflict},
		{"unknown token", common.ErrorNotFound, http.StatusNotFound},
		{"empty reason", fmt.Errorf("%w: rejection reason is required", common.ErrInvalidInput), http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.invites.err = tc.err
			h.signing.err = tc.err

			assert.Equal(t, tc.want, h.do(t, http.MethodGet, "/api/external/sign/tok", nil, nil).Code)
			assert.Equal(t, tc.want, h.do(t, http.MethodPost, "/api/external/sign/tok", map[string]any{}, nil).Code)
			assert.Equal(t, tc.want, h.do(t, http.MethodPost, "/api/external/sign/tok/reject", map[string]any{"reason": ""}, nil).Code)
		})
	}
}

func TestRecoverPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(RequestID(), RecoverPanic(nopLogger{}))
	e.GET("/boom", func(*gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{common.ErrorNotFound, http.StatusNotFound},
		{common.ErrorForbidden, http.StatusForbidden},
		{common.ErrorUnauthorized, http.StatusUnauthorized},
		{common.ErrExpired, http.StatusGone},
		{common.ErrConflict, http.StatusConflict},
		{common.ErrInvalidInput, http.StatusBadRequest},
		{common.ErrRenderFailure, http.StatusUnprocessableEntity},
		{&pdfstamp.RenderError{Field: 2, Err: errors.New("x")}, http.StatusUnprocessableEntity},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			got, _ := statusFor(tc.err)
			assert.Equal(t, tc.want, got)
		})
	}
}
