// Package repomanager hands out per-table repositories over a shared DBTX
// handle, so services can run the same repository code against the pool or
// inside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/anonrelay/internal/dbx"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/alerts"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/analytics"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/messages"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/modlog"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/ratelimits"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/replytokens"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
	ReplyTokens(db dbx.DBTX) replytokens.Repository
	RateLimits(db dbx.DBTX) ratelimits.Repository
	Alerts(db dbx.DBTX) alerts.Repository
	ModLog(db dbx.DBTX) modlog.Repository
	Analytics(db dbx.DBTX) analytics.Repository
}
