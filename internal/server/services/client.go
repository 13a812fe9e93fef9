package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/dmitrijs2005/slotkeeper/internal/dbx"
	"github.com/dmitrijs2005/slotkeeper/internal/logging"
	"github.com/dmitrijs2005/slotkeeper/internal/server/repositories/repomanager"
)

const maxPort = 65535

// ClientService records where clients can be reached.
type ClientService struct {
	runner      dbx.TxRunner
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewClientService(runner dbx.TxRunner, m repomanager.RepositoryManager, logger logging.Logger) *ClientService {
	return &ClientService{runner: runner, repomanager: m, logger: logger}
}

// Heartbeat stores address and port as ownerID's current location. The slot
// sets are not touched.
func (s *ClientService) Heartbeat(ctx context.Context, ownerID, address string, port int) error {
	if port < 1 || port > maxPort {
		return fmt.Errorf("%w: port %d out of range", common.ErrorValidation, port)
	}
	if err := s.repomanager.Ledgers(s.runner.DB()).UpdateLocation(ctx, ownerID, address, port); err != nil {
		return fmt.Errorf("error updating location: %w", err)
	}
	s.logger.Debug(ctx, "heartbeat", "owner_id", ownerID, "address", address, "port", port)
	return nil
}
