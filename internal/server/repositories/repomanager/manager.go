package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/slotkeeper/internal/dbx"
	"github.com/dmitrijs2005/slotkeeper/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/slotkeeper/internal/server/repositories/ledgers"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Credentials(db dbx.DBTX) credentials.Repository
	Ledgers(db dbx.DBTX) ledgers.Repository
}
