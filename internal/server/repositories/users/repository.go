package users

import (
	"context"

	"github.com/dmitrijs2005/docusigner/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
