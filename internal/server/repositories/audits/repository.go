package audits

import (
	"context"

	"github.com/dmitrijs2005/docusigner/internal/server/models"
)

type Repository interface {
	Record(ctx context.Context, e *models.AuditEntry) error
	ListByDocument(ctx context.Context, documentID string) ([]models.AuditEntry, error)
}
