package externalsignatures

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.ExternalSignature) (*models.ExternalSignature, error)
	GetByID(ctx context.Context, id string) (*models.ExternalSignature, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.ExternalSignature, error)
	FindActiveByDocumentAndEmail(ctx context.Context, documentID, email string) (*models.ExternalSignature, error)
	ListByRequester(ctx context.Context, requesterID string) ([]models.ExternalRequestView, error)

	// Reissue replaces the token and expiry of a non-final request and puts
	// it back to pending. A nil fields slice keeps the stored placements.
	Reissue(ctx context.Context, id, tokenHash string, expiresAt time.Time, fields []models.ExternalField) (*models.ExternalSignature, error)
	MarkSent(ctx context.Context, id string) error
	MarkExpired(ctx context.Context, id string, now time.Time) error

	// The transitions below are compare-and-set on (token, live status,
	// not expired). Losing the race yields common.ErrConflict.
	TransitionToSigned(ctx context.Context, id, tokenHash string, now time.Time) error
	TransitionToRejected(ctx context.Context, id, tokenHash, reason string, now time.Time) error
}
