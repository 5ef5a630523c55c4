// Package externalsignatures provides a PostgreSQL-backed repository for
// signing invitations. State changes on live requests are guarded
// compare-and-set updates so that concurrent sign/reject/resend calls on
// the same token resolve to exactly one winner.
package externalsignatures

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/google/uuid"
)

// ActiveConstraint is the partial unique index allowing one live request
// per (document, signer email).
const ActiveConstraint = "external_signatures_active_uq"

const columns = `id, document_id, requester_id, signer_email, signer_name, token_hash, status,
		rejection_reason, fields, expires_at, signed_at, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(s scanner, extra ...any) (*models.ExternalSignature, error) {
	e := &models.ExternalSignature{}
	var (
		status string
		reason sql.NullString
		fields []byte
		signed sql.NullTime
	)

	dest := []any{&e.ID, &e.DocumentID, &e.RequesterID, &e.SignerEmail, &e.SignerName, &e.TokenHash, &status,
		&reason, &fields, &e.ExpiresAt, &signed, &e.CreatedAt, &e.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	e.Status = models.ExternalStatus(status)
	if reason.Valid {
		e.RejectionReason = &reason.String
	}
	if signed.Valid {
		t := signed.Time
		e.SignedAt = &t
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &e.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}

	return e, nil
}

func encodeFields(fields []models.ExternalField) ([]byte, error) {
	if fields == nil {
		fields = []models.ExternalField{}
	}
	return json.Marshal(fields)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.ExternalSignature, error) {
	e, err := scanOne(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// Create inserts a new pending request. A unique violation, either on the
// live request index or on the token digest, is reported as common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, e *models.ExternalSignature) (*models.ExternalSignature, error) {
	fields, err := encodeFields(e.Fields)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO external_signatures (document_id, requester_id, signer_email, signer_name, token_hash, status, fields, expires_at)
		 VALUES ($1, $2, $3, $4, $5, 'pending', $6::jsonb, $7)
		 RETURNING ` + columns

	out, err := scanOne(r.db.QueryRowContext(ctx, query,
		e.DocumentID, e.RequesterID, e.SignerEmail, e.SignerName, e.TokenHash, string(fields), e.ExpiresAt))
	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.ExternalSignature, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	return r.getOne(ctx, `SELECT `+columns+` FROM external_signatures WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.ExternalSignature, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM external_signatures WHERE token_hash = $1`, tokenHash)
}

// FindActiveByDocumentAndEmail returns the live request for the pair, if
// any. Email comparison is case-insensitive.
func (r *PostgresRepository) FindActiveByDocumentAndEmail(ctx context.Context, documentID, email string) (*models.ExternalSignature, error) {
	query := `SELECT ` + columns + ` FROM external_signatures
		 WHERE document_id = $1 AND lower(signer_email) = lower($2) AND status IN ('pending', 'sent')`
	return r.getOne(ctx, query, documentID, email)
}

func (r *PostgresRepository) ListByRequester(ctx context.Context, requesterID string) ([]models.ExternalRequestView, error) {
	query :=
		`SELECT es.id, es.document_id, es.requester_id, es.signer_email, es.signer_name, es.token_hash, es.status,
		        es.rejection_reason, es.fields, es.expires_at, es.signed_at, es.created_at, es.updated_at,
		        d.original_name, d.uploaded_at
		 FROM external_signatures es
		 JOIN documents d ON d.id = es.document_id
		 WHERE es.requester_id = $1
		 ORDER BY es.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.ExternalRequestView
	for rows.Next() {
		var v models.ExternalRequestView
		e, err := scanOne(rows, &v.DocumentName, &v.UploadedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		v.ExternalSignature = *e
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) Reissue(ctx context.Context, id, tokenHash string, expiresAt time.Time, fields []models.ExternalField) (*models.ExternalSignature, error) {
	var encoded any
	if fields != nil {
		b, err := encodeFields(fields)
		if err != nil {
			return nil, err
		}
		encoded = string(b)
	}

	query :=
		`UPDATE external_signatures
		 SET token_hash = $2, expires_at = $3, fields = COALESCE($4::jsonb, fields),
		     status = 'pending', updated_at = now()
		 WHERE id = $1 AND status IN ('pending', 'sent', 'expired')
		 RETURNING ` + columns

	out, err := scanOne(r.db.QueryRowContext(ctx, query, id, tokenHash, expiresAt, encoded))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

// MarkSent flips pending to sent. It is a no-op for any other status.
func (r *PostgresRepository) MarkSent(ctx context.Context, id string) error {
	query :=
		`UPDATE external_signatures SET status = 'sent', updated_at = now()
		 WHERE id = $1 AND status = 'pending'`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// MarkExpired persists lazy expiry of a live request whose window closed
// before now. It is a no-op otherwise.
func (r *PostgresRepository) MarkExpired(ctx context.Context, id string, now time.Time) error {
	query :=
		`UPDATE external_signatures SET status = 'expired', updated_at = now()
		 WHERE id = $1 AND status IN ('pending', 'sent') AND expires_at < $2`

	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) casExec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrConflict
	}
	return nil
}

func (r *PostgresRepository) TransitionToSigned(ctx context.Context, id, tokenHash string, now time.Time) error {
	query :=
		`UPDATE external_signatures SET status = 'signed', signed_at = $3, updated_at = now()
		 WHERE id = $1 AND token_hash = $2 AND status IN ('pending', 'sent') AND expires_at >= $3`

	return r.casExec(ctx, query, id, tokenHash, now)
}

func (r *PostgresRepository) TransitionToRejected(ctx context.Context, id, tokenHash, reason string, now time.Time) error {
	query :=
		`UPDATE external_signatures SET status = 'rejected', rejection_reason = $3, updated_at = now()
		 WHERE id = $1 AND token_hash = $2 AND status IN ('pending', 'sent') AND expires_at >= $4`

	return r.casExec(ctx, query, id, tokenHash, reason, now)
}
