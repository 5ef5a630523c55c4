package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docusigner/internal/dbx"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/audits"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/externalsignatures"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a handle, which is either
// the pool or a transaction opened by dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Documents(db dbx.DBTX) documents.Repository
	Signatures(db dbx.DBTX) signatures.Repository
	Audits(db dbx.DBTX) audits.Repository
	ExternalSignatures(db dbx.DBTX) externalsignatures.Repository
}
