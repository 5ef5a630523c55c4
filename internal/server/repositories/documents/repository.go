package documents

import (
	"context"

	"github.com/dmitrijs2005/docusigner/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, d *models.Document) (*models.Document, error)
	GetByID(ctx context.Context, id string) (*models.Document, error)
	SetSignedPath(ctx context.Context, id, signedPath string) error
}
