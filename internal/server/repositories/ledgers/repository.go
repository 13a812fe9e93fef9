package ledgers

import (
	"context"

	"github.com/dmitrijs2005/slotkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, l *models.Ledger) error
	Get(ctx context.Context, ownerID string) (*models.Ledger, error)
	ListExcept(ctx context.Context, ownerID string) ([]*models.Ledger, error)
	CompareAndSwap(ctx context.Context, ownerID string, version int64, slots models.SlotInfo) error
	UpdateLocation(ctx context.Context, ownerID, address string, port int) error
}
