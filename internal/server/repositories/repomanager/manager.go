// Package repomanager vends repository implementations over a shared DBTX
// so services can run several repositories inside one transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/lifevault/internal/dbx"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/activitylog"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/assets"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/ledger"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/tokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Ledger(db dbx.DBTX) ledger.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Contacts(db dbx.DBTX) contacts.Repository
	Assets(db dbx.DBTX) assets.Repository
	ActivityLog(db dbx.DBTX) activitylog.Repository
}
