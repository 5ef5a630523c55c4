package signatures

import (
	"context"

	"github.com/dmitrijs2005/docusigner/internal/server/models"
)

type Repository interface {
	CreateMany(ctx context.Context, sigs []models.Signature) error
}
