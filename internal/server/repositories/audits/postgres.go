// Package audits persists the append-only activity trail of a document.
package audits

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record appends e. A zero Timestamp lets the database stamp the row.
func (r *PostgresRepository) Record(ctx context.Context, e *models.AuditEntry) error {
	query :=
		`INSERT INTO audits (document_id, user_id, action, ip, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, now()))`

	var ts any
	if !e.Timestamp.IsZero() {
		ts = e.Timestamp
	}

	if _, err := r.db.ExecContext(ctx, query, e.DocumentID, e.UserID, e.Action, e.IP, ts); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByDocument(ctx context.Context, documentID string) ([]models.AuditEntry, error) {
	query :=
		`SELECT a.id, a.document_id, a.user_id, a.action, a.ip, a.created_at, u.name, u.email
		 FROM audits a
		 LEFT JOIN users u ON u.id = a.user_id
		 WHERE a.document_id = $1
		 ORDER BY a.created_at ASC, a.id ASC`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.UserID, &e.Action, &e.IP, &e.Timestamp, &e.UserName, &e.UserEmail); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}
