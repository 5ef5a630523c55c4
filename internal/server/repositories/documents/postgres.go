// Package documents provides a PostgreSQL-backed repository for uploaded
// PDF metadata. The bytes live in storage; rows hold the storage keys.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docusigner/internal/common"
	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts d and returns a copy carrying the generated id and upload time.
func (r *PostgresRepository) Create(ctx context.Context, d *models.Document) (*models.Document, error) {
	query :=
		`INSERT INTO documents (owner_id, file_name, original_name, path, size)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, uploaded_at`

	out := *d
	err := r.db.QueryRowContext(ctx, query, d.OwnerID, d.FileName, d.OriginalName, d.Path, d.Size).
		Scan(&out.ID, &out.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`SELECT id, owner_id, file_name, original_name, path, size, signed_path, uploaded_at
		 FROM documents
		 WHERE id = $1`

	d := &models.Document{}
	var signed sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&d.ID, &d.OwnerID, &d.FileName, &d.OriginalName, &d.Path, &d.Size, &signed, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if signed.Valid {
		d.SignedPath = &signed.String
	}

	return d, nil
}

// SetSignedPath records the storage key of the latest stamped artifact.
func (r *PostgresRepository) SetSignedPath(ctx context.Context, id, signedPath string) error {
	query := `UPDATE documents SET signed_path = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, signedPath)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
