package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/filex"
	"github.com/dmitrijs2005/docusigner/internal/logging"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docusigner/internal/server/storage"
)

const (
	ownerSuffix    = "-signed"
	externalSuffix = "-signed-ext"
)

// SigningService stamps fields onto documents for owners and for
// external signers holding an invitation token.
type SigningService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     storage.Storage
	stamper     Stamper
	logger      logging.Logger
	now         func() time.Time
}

func NewSigningService(db *sql.DB, m repomanager.RepositoryManager, st storage.Storage, stamper Stamper, logger logging.Logger) *SigningService {
	return &SigningService{
		db:          db,
		repomanager: m,
		storage:     st,
		stamper:     stamper,
		logger:      logger.With("module", "signing"),
		now:         time.Now,
	}
}

// SignOwned stamps fields onto the original upload of a document owned by
// userID and returns the public path of the signed artifact. Nothing is
// written unless every field stamped.
func (s *SigningService) SignOwned(ctx context.Context, documentID, userID string, fields []models.Field, ip string) (string, error) {
	doc, err := ownedDocument(ctx, s.db, s.repomanager, documentID, userID)
	if err != nil {
		return "", err
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: no fields to stamp", common.ErrInvalidInput)
	}

	out, err := s.render(ctx, doc, fields)
	if err != nil {
		return "", err
	}

	art := &artifact{key: filex.WithSuffix(doc.Path, ownerSuffix)}
	key := art.key

	now := s.now()
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.store(ctx, art, doc, out); err != nil {
			return err
		}
		if err := s.repomanager.Documents(tx).SetSignedPath(ctx, doc.ID, key); err != nil {
			return fmt.Errorf("error updating document: %w", err)
		}
		if err := s.repomanager.Signatures(tx).CreateMany(ctx, signatureRecords(doc.ID, userID, fields)); err != nil {
			return fmt.Errorf("error recording signatures: %w", err)
		}
		uid := userID
		return s.repomanager.Audits(tx).Record(ctx, &models.AuditEntry{
			DocumentID: doc.ID, UserID: &uid, Action: ActionOwnerSigned, IP: ip, Timestamp: now,
		})
	}); err != nil {
		s.restore(ctx, art)
		return "", err
	}

	s.logger.Info(ctx, "document signed by owner", "document_id", doc.ID, "fields", len(fields))
	return PublicPath(key), nil
}

// SubmitExternalSign stamps the signer's fields and moves the request to
// signed. Only one of several concurrent submissions for the same token
// wins; the others get ErrConflict.
func (s *SigningService) SubmitExternalSign(ctx context.Context, token string, fields []models.Field, ip string) (time.Time, error) {
	now := s.now()
	req, err := resolveToken(ctx, s.db, s.repomanager, token, now, s.logger)
	if err != nil {
		return time.Time{}, err
	}
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("%w: no fields to stamp", common.ErrInvalidInput)
	}

	doc, err := s.repomanager.Documents(s.db).GetByID(ctx, req.DocumentID)
	if err != nil {
		return time.Time{}, fmt.Errorf("error loading document: %w", err)
	}

	out, err := s.render(ctx, doc, fields)
	if err != nil {
		return time.Time{}, err
	}

	art := &artifact{key: filex.WithSuffix(doc.Path, externalSuffix)}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.ExternalSignatures(tx).TransitionToSigned(ctx, req.ID, req.TokenHash, now); err != nil {
			return err
		}
		// the row lock taken above makes this writer the only one
		if err := s.store(ctx, art, doc, out); err != nil {
			return err
		}
		if err := s.repomanager.Documents(tx).SetSignedPath(ctx, doc.ID, art.key); err != nil {
			return fmt.Errorf("error updating document: %w", err)
		}
		return s.repomanager.Audits(tx).Record(ctx, &models.AuditEntry{
			DocumentID: doc.ID,
			Action:     fmt.Sprintf(actionExternalSign, req.SignerEmail),
			IP:         ip,
			Timestamp:  now,
		})
	})
	if err != nil {
		s.restore(ctx, art)
		if isConflict(err) {
			return time.Time{}, lostRace(ctx, s.db, s.repomanager, req.ID, now)
		}
		return time.Time{}, err
	}

	s.logger.Info(ctx, "document signed externally", "document_id", doc.ID, "request_id", req.ID)
	return now, nil
}

// artifact is a signed file written ahead of the commit that publishes it.
// prev holds the bytes it replaced when the document already pointed at key.
type artifact struct {
	key     string
	prev    []byte
	written bool
}

func (s *SigningService) store(ctx context.Context, a *artifact, doc *models.Document, data []byte) error {
	if doc.SignedPath != nil && *doc.SignedPath == a.key {
		prev, err := s.storage.Read(ctx, a.key)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("error reading signed artifact: %w", err)
		}
		a.prev = prev
	}
	if err := s.storage.Write(ctx, a.key, data); err != nil {
		return fmt.Errorf("error storing signed artifact: %w", err)
	}
	a.written = true
	return nil
}

// restore undoes store after a failed commit: the previous artifact is put
// back, or the new one removed when nothing was published before.
func (s *SigningService) restore(ctx context.Context, a *artifact) {
	if !a.written {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if a.prev != nil {
		err = s.storage.Write(ctx, a.key, a.prev)
	} else {
		err = s.storage.Delete(ctx, a.key)
	}
	if err != nil {
		s.logger.Warn(ctx, "could not restore signed artifact", "key", a.key, "error", err)
	}
}

func (s *SigningService) render(ctx context.Context, doc *models.Document, fields []models.Field) ([]byte, error) {
	src, err := s.storage.Read(ctx, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("error reading original: %w", err)
	}
	out, err := s.stamper.Stamp(src, fields)
	if err != nil {
		s.logger.Warn(ctx, "stamping failed", "document_id", doc.ID, "error", err)
		return nil, err
	}
	return out, nil
}

func signatureRecords(documentID, userID string, fields []models.Field) []models.Signature {
	sigs := make([]models.Signature, 0, len(fields))
	for _, f := range fields {
		sigs = append(sigs, models.Signature{
			DocumentID: documentID,
			UserID:     userID,
			Type:       f.Type,
			Content:    f.Content,
			FontStyle:  f.FontStyle,
			FontSize:   f.EffectiveFontSize(),
			X:          f.X,
			Y:          f.Y,
			Page:       f.Page,
		})
	}
	return sigs
}
