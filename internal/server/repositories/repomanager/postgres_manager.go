package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/anonrelay/internal/dbx"
	"github.com/dmitrijs2005/anonrelay/internal/server/migrations"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/alerts"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/analytics"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/messages"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/modlog"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/ratelimits"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/replytokens"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Messages(db dbx.DBTX) messages.Repository {
	return messages.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) ReplyTokens(db dbx.DBTX) replytokens.Repository {
	return replytokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RateLimits(db dbx.DBTX) ratelimits.Repository {
	return ratelimits.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Alerts(db dbx.DBTX) alerts.Repository {
	return alerts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) ModLog(db dbx.DBTX) modlog.Repository {
	return modlog.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Analytics(db dbx.DBTX) analytics.Repository {
	return analytics.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}
