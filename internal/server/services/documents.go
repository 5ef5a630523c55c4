package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/logging"
	"github.com/dmitrijs2005/docusigner/internal/pdfstamp"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docusigner/internal/server/storage"
	"github.com/google/uuid"
)

// inspectPDF is swapped in tests that do not carry a real PDF.
var inspectPDF = pdfstamp.Inspect

// DocumentService handles uploads, owner views and the audit trail.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     storage.Storage
	logger      logging.Logger
	now         func() time.Time
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, st storage.Storage, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: m,
		storage:     st,
		logger:      logger.With("module", "documents"),
		now:         time.Now,
	}
}

// NewStorageKey returns a fresh "<unix-millis>-<uuid>.pdf" name.
func NewStorageKey(now time.Time) string {
	return fmt.Sprintf("%d-%s.pdf", now.UnixMilli(), uuid.New())
}

// Upload stores a PDF for ownerID and records it. Bytes that do not parse as
// a PDF with at least one page are rejected with ErrInvalidInput.
func (s *DocumentService) Upload(ctx context.Context, ownerID, originalName string, data []byte, ip string) (*models.Document, error) {
	if ownerID == "" {
		return nil, common.ErrorUnauthorized
	}
	if _, err := inspectPDF(data); err != nil {
		return nil, fmt.Errorf("%w: not a usable pdf: %v", common.ErrInvalidInput, err)
	}

	name := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = "document.pdf"
	}

	now := s.now()
	key := NewStorageKey(now)
	if err := s.storage.Write(ctx, key, data); err != nil {
		return nil, fmt.Errorf("error storing upload: %w", err)
	}

	var doc *models.Document
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		doc, err = s.repomanager.Documents(tx).Create(ctx, &models.Document{
			OwnerID:      ownerID,
			FileName:     key,
			OriginalName: name,
			Path:         key,
			Size:         int64(len(data)),
		})
		if err != nil {
			return fmt.Errorf("error creating document: %w", err)
		}
		uid := ownerID
		return s.repomanager.Audits(tx).Record(ctx, &models.AuditEntry{
			DocumentID: doc.ID,
			UserID:     &uid,
			Action:     ActionUploaded,
			IP:         ip,
			Timestamp:  now,
		})
	}); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "document uploaded", "document_id", doc.ID, "size", doc.Size)
	return doc, nil
}

// Get returns the document when userID owns it.
func (s *DocumentService) Get(ctx context.Context, documentID, userID string) (*models.Document, error) {
	return ownedDocument(ctx, s.db, s.repomanager, documentID, userID)
}

// AuditTrail lists the document's audit entries, oldest first. Owner only.
func (s *DocumentService) AuditTrail(ctx context.Context, documentID, userID string) ([]models.AuditEntry, error) {
	if _, err := ownedDocument(ctx, s.db, s.repomanager, documentID, userID); err != nil {
		return nil, err
	}
	entries, err := s.repomanager.Audits(s.db).ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("error listing audit trail: %w", err)
	}
	return entries, nil
}

// OpenArtifact returns the bytes of a stored original or signed artifact.
func (s *DocumentService) OpenArtifact(ctx context.Context, name string) ([]byte, error) {
	data, err := s.storage.Read(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrInvalidInput) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error reading artifact: %w", err)
	}
	return data, nil
}

func ownedDocument(ctx context.Context, db dbx.DBTX, m repomanager.RepositoryManager, documentID, userID string) (*models.Document, error) {
	doc, err := m.Documents(db).GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading document: %w", err)
	}
	if !doc.BelongsTo(userID) {
		return nil, common.ErrorForbidden
	}
	return doc, nil
}
