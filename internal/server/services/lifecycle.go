// Package services contains server-side business logic: document intake,
// owner and external signing, and the invitation lifecycle.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/cryptox"
	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/logging"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/repomanager"
)

// Stamper draws field placements onto a PDF and returns the new bytes.
// pdfstamp.Stamper is the production implementation.
type Stamper interface {
	Stamp(src []byte, fields []models.Field) ([]byte, error)
}

// PublicPath is the download path of a stored artifact.
func PublicPath(key string) string {
	return "/uploads/" + key
}

// Audit action texts.
const (
	ActionUploaded     = "Uploaded document"
	ActionOwnerSigned  = "Signed by owner"
	actionExternalSign = "Signed by external user (%s)"
	actionInviteSent   = "Invitation sent to %s"
	actionDeclined     = "Signature declined by %s"
)

// resolveToken loads the request a bearer token points at and applies the
// lazy expiry check. Final requests yield ErrConflict, expired ones
// ErrExpired; a live request past its expiry is moved to expired first.
func resolveToken(ctx context.Context, db dbx.DBTX, repos repomanager.RepositoryManager, token string, now time.Time, logger logging.Logger) (*models.ExternalSignature, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}

	repo := repos.ExternalSignatures(db)
	req, err := repo.GetByTokenHash(ctx, cryptox.TokenDigest(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading signature request: %w", err)
	}

	switch {
	case req.Status.Final():
		return nil, fmt.Errorf("request already %s: %w", req.Status, common.ErrConflict)
	case req.Status == models.StatusExpired:
		return nil, common.ErrExpired
	case req.ExpiredAt(now):
		if err := repo.MarkExpired(ctx, req.ID, now); err != nil {
			logger.Warn(ctx, "could not persist expiry", "request_id", req.ID, "error", err)
		}
		return nil, common.ErrExpired
	}

	return req, nil
}

// lostRace maps a failed compare-and-set on a live request. The request is
// re-read so an expiry that slipped in between reads as ErrExpired.
func lostRace(ctx context.Context, db dbx.DBTX, repos repomanager.RepositoryManager, id string, now time.Time) error {
	req, err := repos.ExternalSignatures(db).GetByID(ctx, id)
	if err == nil && req.EffectiveStatus(now) == models.StatusExpired {
		return common.ErrExpired
	}
	return common.ErrConflict
}

func isConflict(err error) bool {
	return errors.Is(err, common.ErrConflict)
}
