// Package credentials provides the PostgreSQL-backed credential store.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/dmitrijs2005/slotkeeper/internal/dbx"
	"github.com/dmitrijs2005/slotkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Credential) error {
	query :=
		`INSERT INTO credentials (owner_id, token)
		 VALUES ($1, $2)
		 RETURNING created_at
		 `

	if err := r.db.QueryRowContext(ctx, query, c.OwnerID, c.Token).Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// GetByOwnerID returns common.ErrorNotFound when no credential exists.
func (r *PostgresRepository) GetByOwnerID(ctx context.Context, ownerID string) (*models.Credential, error) {
	query :=
		`SELECT owner_id, token, created_at FROM credentials
		 WHERE owner_id = $1
		 `

	c := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&c.OwnerID, &c.Token, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}
