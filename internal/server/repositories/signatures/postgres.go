// Package signatures stores the historical record of owner placements.
package signatures

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

// CreateMany inserts one row per placement. Callers run it inside a
// transaction so a partial batch is never visible.
func (r *PostgresRepository) CreateMany(ctx context.Context, sigs []models.Signature) error {
	query :=
		`INSERT INTO signatures (document_id, user_id, type, content, font_style, font_size, x, y, page)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, s := range sigs {
		_, err := r.db.ExecContext(ctx, query,
			s.DocumentID, s.UserID, string(s.Type), s.Content, s.FontStyle, s.FontSize, s.X, s.Y, s.Page)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return nil
}
