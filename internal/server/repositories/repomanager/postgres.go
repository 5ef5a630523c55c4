package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/server/migrations"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/audits"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/externalsignatures"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var gooseUpContext = goose.UpContext

type PostgresRepositoryManager struct {
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Documents(db dbx.DBTX) documents.Repository {
	return documents.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Signatures(db dbx.DBTX) signatures.Repository {
	return signatures.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Audits(db dbx.DBTX) audits.Repository {
	return audits.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) ExternalSignatures(db dbx.DBTX) externalsignatures.Repository {
	return externalsignatures.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
