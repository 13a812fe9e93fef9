package credentials

import (
	"context"

	"github.com/dmitrijs2005/slotkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Credential) error
	GetByOwnerID(ctx context.Context, ownerID string) (*models.Credential, error)
}
