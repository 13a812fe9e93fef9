// Package services contains the server-side business logic: credential
// issuing and checking, the slot lease engine and client heartbeats.
package services

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/dmitrijs2005/slotkeeper/internal/dbx"
	"github.com/dmitrijs2005/slotkeeper/internal/logging"
	"github.com/dmitrijs2005/slotkeeper/internal/server/config"
	"github.com/dmitrijs2005/slotkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/slotkeeper/internal/server/models"
	"github.com/dmitrijs2005/slotkeeper/internal/server/repositories/repomanager"
)

// credentialBytes is the entropy of owner ids and tokens; hex encoding
// doubles it to 32 characters.
const credentialBytes = 16

// CredentialService issues credentials and checks them.
type CredentialService struct {
	runner      dbx.TxRunner
	repomanager repomanager.RepositoryManager
	poolSize    int
	logger      logging.Logger
	metrics     metrics.Collector
	randHex     func(size int) (string, error)
}

// NewCredentialService constructs a CredentialService. New ledger entries get
// cfg.PoolSize free slots.
func NewCredentialService(runner dbx.TxRunner, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, mc metrics.Collector) *CredentialService {
	return &CredentialService{
		runner:      runner,
		repomanager: m,
		poolSize:    cfg.PoolSize,
		logger:      logger,
		metrics:     mc,
		randHex:     common.MakeRandHexString,
	}
}

// Register creates a credential and its ledger entry in one transaction.
// remoteAddr is stored as the entry's initial address; the port stays unknown
// until the first heartbeat.
func (s *CredentialService) Register(ctx context.Context, remoteAddr string) (*models.Credential, error) {
	ownerID, err := s.randHex(credentialBytes)
	if err != nil {
		s.metrics.RecordRegistration("error")
		return nil, fmt.Errorf("error generating owner id: %w", err)
	}
	token, err := s.randHex(credentialBytes)
	if err != nil {
		s.metrics.RecordRegistration("error")
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	cred := &models.Credential{OwnerID: ownerID, Token: token}
	ledger := &models.Ledger{
		OwnerID: ownerID,
		Address: remoteAddr,
		Port:    models.UnknownPort,
		Country: models.UnknownCountry,
		Slots:   models.NewSlotInfo(s.poolSize),
	}

	err = s.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Credentials(tx).Create(ctx, cred); err != nil {
			return fmt.Errorf("error creating credential: %w", err)
		}
		if err := s.repomanager.Ledgers(tx).Create(ctx, ledger); err != nil {
			return fmt.Errorf("error creating ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordRegistration("error")
		return nil, err
	}

	s.metrics.RecordRegistration("ok")
	s.logger.Info(ctx, "registered", "owner_id", ownerID, "address", remoteAddr)
	return cred, nil
}

// Verify reports whether ownerID holds token. Any lookup failure counts as
// not verified.
func (s *CredentialService) Verify(ctx context.Context, ownerID, token string) bool {
	cred, err := s.repomanager.Credentials(s.runner.DB()).GetByOwnerID(ctx, ownerID)
	if err != nil {
		s.logger.Debug(ctx, "credential lookup failed", "owner_id", ownerID, "error", err)
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cred.Token), []byte(token)) == 1
}
