package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/dbx"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (external_id, code, display_name)
         VALUES ($1, $2, $3)
		 ON CONFLICT (external_id) DO NOTHING
		 RETURNING id, is_active, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ExternalID, user.Code, user.DisplayName).Scan(&user.ID, &user.Active, &user.CreatedAt)

	if err != nil {
		// DO NOTHING suppresses the row, so a lost race scans no rows.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.ExternalID, &user.Code, &user.DisplayName, &user.Active, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query :=
		`SELECT id, external_id, code, display_name, is_active, created_at FROM users
		 WHERE external_id = $1
		 `
	return r.getOne(ctx, query, externalID)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, external_id, code, display_name, is_active, created_at FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*models.User, error) {
	query :=
		`SELECT id, external_id, code, display_name, is_active, created_at FROM users
		 WHERE code = $1
		 `
	return r.getOne(ctx, query, code)
}

func (r *PostgresRepository) UpdateDisplayName(ctx context.Context, id int64, displayName string) error {
	query :=
		`UPDATE users SET display_name = $1
		 WHERE id = $2
		 `

	if _, err := r.db.ExecContext(ctx, query, displayName, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM users WHERE code = $1)
		 `

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}
