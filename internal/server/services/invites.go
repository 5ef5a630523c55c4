package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/cryptox"
	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/logging"
	"github.com/dmitrijs2005/docusigner/internal/server/config"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/dmitrijs2005/docusigner/internal/server/notify"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/repomanager"
)

// tokenAttempts bounds retries after a unique violation on issue.
const tokenAttempts = 3

// CreateInviteInput is what a requester submits to invite a signer.
// A nil Fields keeps the stored placements when a live request is reused.
type CreateInviteInput struct {
	DocumentID  string
	RequesterID string
	SignerEmail string
	SignerName  string
	Fields      []models.ExternalField
	IP          string
}

// Invitation is the result of issuing or reissuing a token. Token is the
// only copy of the bearer secret; it is not stored.
type Invitation struct {
	Request   *models.ExternalSignature
	Token     string
	Link      string
	ExpiresAt time.Time
	EmailSent bool
}

// SigningView is what an external signer sees before signing.
// Requester is nil when the requesting account no longer exists.
type SigningView struct {
	Request   *models.ExternalSignature
	Document  *models.Document
	Requester *models.User
}

// InviteService drives the external signature lifecycle.
type InviteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      notify.Mailer
	logger      logging.Logger
	clientURL   string
	validity    time.Duration
	now         func() time.Time
	newToken    func() (string, error)
}

func NewInviteService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, mailer notify.Mailer, logger logging.Logger) *InviteService {
	validity := cfg.InviteValidityDuration
	if validity <= 0 {
		validity = 7 * 24 * time.Hour
	}
	return &InviteService{
		db:          db,
		repomanager: m,
		mailer:      mailer,
		logger:      logger.With("module", "invites"),
		clientURL:   cfg.ClientURL,
		validity:    validity,
		now:         time.Now,
		newToken:    common.NewInviteToken,
	}
}

func (in *CreateInviteInput) normalize() error {
	in.SignerEmail = strings.TrimSpace(in.SignerEmail)
	in.SignerName = strings.TrimSpace(in.SignerName)
	if in.SignerName == "" {
		return fmt.Errorf("%w: signer name is required", common.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(in.SignerEmail)
	if err != nil || addr.Address != in.SignerEmail {
		return fmt.Errorf("%w: bad signer email %q", common.ErrInvalidInput, in.SignerEmail)
	}
	for i, f := range in.Fields {
		if !f.Valid() {
			return fmt.Errorf("%w: field %d is not usable", common.ErrInvalidInput, i)
		}
	}
	return nil
}

// CreateInvite issues a signing link for a document owned by the requester.
// A live request for the same document and signer is reused with a fresh
// token instead of creating a second one. A failed email does not undo the
// request; it stays pending and EmailSent is false.
func (s *InviteService) CreateInvite(ctx context.Context, in CreateInviteInput) (*Invitation, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	doc, err := ownedDocument(ctx, s.db, s.repomanager, in.DocumentID, in.RequesterID)
	if err != nil {
		return nil, err
	}
	requester, err := s.repomanager.Users(s.db).GetByID(ctx, in.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("error loading requester: %w", err)
	}

	repo := s.repomanager.ExternalSignatures(s.db)
	var (
		req   *models.ExternalSignature
		token string
	)
	for attempt := 0; attempt < tokenAttempts && req == nil; attempt++ {
		token, err = s.newToken()
		if err != nil {
			return nil, fmt.Errorf("error generating token: %w", err)
		}
		expiresAt := s.now().Add(s.validity)

		existing, ferr := repo.FindActiveByDocumentAndEmail(ctx, doc.ID, in.SignerEmail)
		switch {
		case ferr == nil:
			req, err = repo.Reissue(ctx, existing.ID, cryptox.TokenDigest(token), expiresAt, in.Fields)
		case errors.Is(ferr, common.ErrorNotFound):
			req, err = repo.Create(ctx, &models.ExternalSignature{
				DocumentID:  doc.ID,
				RequesterID: in.RequesterID,
				SignerEmail: in.SignerEmail,
				SignerName:  in.SignerName,
				TokenHash:   cryptox.TokenDigest(token),
				Fields:      in.Fields,
				ExpiresAt:   expiresAt,
			})
		default:
			return nil, fmt.Errorf("error looking up live request: %w", ferr)
		}
		if err != nil && !isConflict(err) {
			return nil, fmt.Errorf("error saving request: %w", err)
		}
	}
	if req == nil {
		return nil, fmt.Errorf("could not issue invitation: %w", common.ErrConflict)
	}

	inv := &Invitation{Request: req, Token: token, Link: notify.SigningLink(s.clientURL, token), ExpiresAt: req.ExpiresAt}
	msg, err := notify.InviteMessage(notify.Invite{
		SignerEmail:    req.SignerEmail,
		SignerName:     req.SignerName,
		RequesterName:  requester.Name,
		RequesterEmail: requester.Email,
		DocumentName:   doc.OriginalName,
		Link:           inv.Link,
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, inv, msg, in.RequesterID, in.IP)

	s.logger.Info(ctx, "invitation issued", "request_id", req.ID, "document_id", doc.ID, "email_sent", inv.EmailSent)
	return inv, nil
}

// ResendInvite reissues the token of a request owned by requesterID.
// Signed or rejected requests cannot be resent.
func (s *InviteService) ResendInvite(ctx context.Context, requestID, requesterID, ip string) (*Invitation, error) {
	repo := s.repomanager.ExternalSignatures(s.db)

	var (
		req   *models.ExternalSignature
		token string
	)
	for attempt := 0; attempt < tokenAttempts && req == nil; attempt++ {
		current, err := repo.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrorNotFound
			}
			return nil, fmt.Errorf("error loading request: %w", err)
		}
		if current.RequesterID != requesterID {
			return nil, common.ErrorForbidden
		}
		if current.Status.Final() {
			return nil, fmt.Errorf("request already %s: %w", current.Status, common.ErrConflict)
		}

		token, err = s.newToken()
		if err != nil {
			return nil, fmt.Errorf("error generating token: %w", err)
		}
		req, err = repo.Reissue(ctx, current.ID, cryptox.TokenDigest(token), s.now().Add(s.validity), nil)
		if err != nil && !isConflict(err) {
			return nil, fmt.Errorf("error reissuing request: %w", err)
		}
	}
	if req == nil {
		return nil, fmt.Errorf("could not reissue invitation: %w", common.ErrConflict)
	}

	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("error loading document: %w", err)
	}

	inv := &Invitation{Request: req, Token: token, Link: notify.SigningLink(s.clientURL, token), ExpiresAt: req.ExpiresAt}
	msg, err := notify.ResendMessage(notify.Invite{
		SignerEmail:  req.SignerEmail,
		SignerName:   req.SignerName,
		DocumentName: doc.OriginalName,
		Link:         inv.Link,
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, inv, msg, requesterID, ip)

	s.logger.Info(ctx, "invitation reissued", "request_id", req.ID, "email_sent", inv.EmailSent)
	return inv, nil
}

// dispatch sends the email and, on success, marks the request sent and
// records it in the audit trail. Failures are logged, never returned.
func (s *InviteService) dispatch(ctx context.Context, inv *Invitation, msg notify.Message, requesterID, ip string) {
	req := inv.Request
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn(ctx, "invitation email failed", "request_id", req.ID, "to", req.SignerEmail, "error", err)
		return
	}
	inv.EmailSent = true

	if err := s.repomanager.ExternalSignatures(s.db).MarkSent(ctx, req.ID); err != nil {
		s.logger.Warn(ctx, "could not mark request sent", "request_id", req.ID, "error", err)
	} else if req.Status == models.StatusPending {
		req.Status = models.StatusSent
	}

	uid := requesterID
	if err := s.repomanager.Audits(s.db).Record(ctx, &models.AuditEntry{
		DocumentID: req.DocumentID,
		UserID:     &uid,
		Action:     fmt.Sprintf(actionInviteSent, req.SignerEmail),
		IP:         ip,
		Timestamp:  s.now(),
	}); err != nil {
		s.logger.Warn(ctx, "could not record invitation audit", "request_id", req.ID, "error", err)
	}
}

// FetchForSigning returns the request and its document for a live token.
// It does not change stored state unless the request has just expired.
func (s *InviteService) FetchForSigning(ctx context.Context, token string) (*SigningView, error) {
	req, err := resolveToken(ctx, s.db, s.repomanager, token, s.now(), s.logger)
	if err != nil {
		return nil, err
	}
	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("error loading document: %w", err)
	}
	requester, err := s.repomanager.Users(s.db).GetByID(ctx, req.RequesterID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error loading requester: %w", err)
		}
		requester = nil
	}
	return &SigningView{Request: req, Document: doc, Requester: requester}, nil
}

// SubmitReject declines a live request. The reason is mandatory.
func (s *InviteService) SubmitReject(ctx context.Context, token, reason, ip string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: rejection reason is required", common.ErrInvalidInput)
	}

	now := s.now()
	req, err := resolveToken(ctx, s.db, s.repomanager, token, now, s.logger)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.ExternalSignatures(tx).TransitionToRejected(ctx, req.ID, req.TokenHash, reason, now); err != nil {
			return err
		}
		return s.repomanager.Audits(tx).Record(ctx, &models.AuditEntry{
			DocumentID: req.DocumentID,
			Action:     fmt.Sprintf(actionDeclined, req.SignerEmail),
			IP:         ip,
			Timestamp:  now,
		})
	})
	if err != nil {
		if isConflict(err) {
			return lostRace(ctx, s.db, s.repomanager, req.ID, now)
		}
		return err
	}

	s.logger.Info(ctx, "signature declined", "request_id", req.ID)
	return nil
}

// ListRequests returns the requester's requests, newest first, with the
// status each would have if accessed now.
func (s *InviteService) ListRequests(ctx context.Context, requesterID string) ([]models.ExternalRequestView, error) {
	views, err := s.repomanager.ExternalSignatures(s.db).ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("error listing requests: %w", err)
	}
	now := s.now()
	for i := range views {
		views[i].Status = views[i].EffectiveStatus(now)
	}
	return views, nil
}
