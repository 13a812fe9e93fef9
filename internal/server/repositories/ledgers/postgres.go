// Package ledgers provides the PostgreSQL-backed slot ledger. Every slot
// mutation is a compare-and-swap on the row version.
package ledgers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/dmitrijs2005/slotkeeper/internal/dbx"
	"github.com/dmitrijs2005/slotkeeper/internal/server/models"
)

// PostgresRepository implements ledger storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a fresh entry at version 0.
func (r *PostgresRepository) Create(ctx context.Context, l *models.Ledger) error {
	slotInfo, err := l.Slots.Marshal()
	if err != nil {
		return fmt.Errorf("encode slot info: %w", err)
	}

	query := `
		INSERT INTO ledger_entries (owner_id, address, port, country, slot_info, version)
		VALUES ($1, $2, $3, $4, $5, 0)
	`
	if _, err := r.db.ExecContext(ctx, query, l.OwnerID, l.Address, l.Port, l.Country, slotInfo); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	l.Version = 0
	return nil
}

// Get returns the entry of ownerID or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, ownerID string) (*models.Ledger, error) {
	query := `SELECT owner_id, address, port, country, slot_info, version FROM ledger_entries
		WHERE owner_id=$1
		`
	l, err := scanLedger(r.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return l, nil
}

// ListExcept returns every entry not owned by ownerID: the candidate servers
// a client may lease from.
func (r *PostgresRepository) ListExcept(ctx context.Context, ownerID string) ([]*models.Ledger, error) {
	query := `SELECT owner_id, address, port, country, slot_info, version FROM ledger_entries
		WHERE owner_id<>$1
		`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select ledger entries: %w", err)
	}
	defer rows.Close()

	var result []*models.Ledger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CompareAndSwap stores slots if the row is still at version, bumping the
// version. A stale version yields common.ErrVersionConflict.
func (r *PostgresRepository) CompareAndSwap(ctx context.Context, ownerID string, version int64, slots models.SlotInfo) error {
	slotInfo, err := slots.Marshal()
	if err != nil {
		return fmt.Errorf("encode slot info: %w", err)
	}

	query := `
		UPDATE ledger_entries SET slot_info=$1, version=version+1, updated_at=now()
		WHERE owner_id=$2 AND version=$3
	`
	res, err := r.db.ExecContext(ctx, query, slotInfo, ownerID, version)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// UpdateLocation records the owner's last known address and port.
func (r *PostgresRepository) UpdateLocation(ctx context.Context, ownerID, address string, port int) error {
	query := `UPDATE ledger_entries SET address=$1, port=$2, updated_at=now() WHERE owner_id=$3`
	res, err := r.db.ExecContext(ctx, query, address, port, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLedger(s scanner) (*models.Ledger, error) {
	var (
		l        models.Ledger
		slotInfo string
	)
	if err := s.Scan(&l.OwnerID, &l.Address, &l.Port, &l.Country, &slotInfo, &l.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	slots, err := models.ParseSlotInfo(slotInfo)
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %w", l.OwnerID, err)
	}
	l.Slots = slots
	return &l, nil
}
