package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/dmitrijs2005/slotkeeper/internal/dbx"
	"github.com/dmitrijs2005/slotkeeper/internal/logging"
	"github.com/dmitrijs2005/slotkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/slotkeeper/internal/server/config"
	"github.com/dmitrijs2005/slotkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/slotkeeper/internal/server/models"
	"github.com/dmitrijs2005/slotkeeper/internal/server/repositories/repomanager"
)

// LeaseService hands out slots from other clients' ledger entries and takes
// them back. Each attempt is one transaction ending in a version-checked
// update; a lost race restarts the attempt from a fresh read.
type LeaseService struct {
	runner      dbx.TxRunner
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	poolSize    int
	maxAttempts int
	logger      logging.Logger
	metrics     metrics.Collector
	shuffle     func([]*models.Ledger)
}

// NewLeaseService constructs a LeaseService.
func NewLeaseService(runner dbx.TxRunner, m repomanager.RepositoryManager, blobs blobstore.Store, cfg *config.Config, logger logging.Logger, mc metrics.Collector) *LeaseService {
	maxAttempts := cfg.MaxLeaseAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &LeaseService{
		runner:      runner,
		repomanager: m,
		blobs:       blobs,
		poolSize:    cfg.PoolSize,
		maxAttempts: maxAttempts,
		logger:      logger,
		metrics:     mc,
		shuffle:     shuffleLedgers,
	}
}

func shuffleLedgers(xs []*models.Ledger) {
	rand.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
}

// Allocate leases one free slot on some entry other than ownerID's own and
// returns it with its config blob.
//
// Errors: common.ErrorNoCapacity, common.ErrorBlobNotFound (the lease is
// rolled back), common.ErrorContention after the attempt budget is spent.
func (s *LeaseService) Allocate(ctx context.Context, ownerID string) (*models.Lease, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		lease, err := s.tryAllocate(ctx, ownerID)
		if err == nil {
			s.metrics.RecordAllocation("ok")
			s.logger.Info(ctx, "slot leased", "owner_id", ownerID, "server", lease.Server.OwnerID, "slot", lease.Slot)
			return lease, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) {
			s.metrics.RecordAllocation(resultLabel(err))
			return nil, err
		}
		s.metrics.RecordConflict("allocate")
		s.logger.Debug(ctx, "ledger changed during allocation, retrying", "owner_id", ownerID, "attempt", attempt)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	s.metrics.RecordAllocation(resultLabel(common.ErrorContention))
	s.logger.Warn(ctx, "allocation gave up", "owner_id", ownerID, "attempts", s.maxAttempts)
	return nil, common.ErrorContention
}

func (s *LeaseService) tryAllocate(ctx context.Context, ownerID string) (*models.Lease, error) {
	var lease *models.Lease

	err := s.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Ledgers(tx)

		candidates, err := repo.ListExcept(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("error listing ledger entries: %w", err)
		}
		s.shuffle(candidates)

		var picked *models.Ledger
		for _, c := range candidates {
			if c.Slots.HasFree() {
				picked = c
				break
			}
		}
		if picked == nil {
			return common.ErrorNoCapacity
		}
		if err := picked.Slots.Validate(s.poolSize); err != nil {
			return fmt.Errorf("%w: ledger %s: %v", common.ErrorStorage, picked.OwnerID, err)
		}

		slots := picked.Slots.Clone()
		slot, _ := slots.Take()

		if err := repo.CompareAndSwap(ctx, picked.OwnerID, picked.Version, slots); err != nil {
			return err
		}

		blob, err := s.blobs.Get(ctx, models.BlobKey(picked.OwnerID, slot))
		if err != nil {
			return err
		}

		lease = &models.Lease{Server: picked.Ref(), Slot: slot, Blob: blob}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// Release returns ownerID's highest used slot to the free set. A non-empty
// payload is standard base64 and replaces that slot's config blob in the same
// transaction. The payload is decoded before anything is read, so a bad
// payload fails with common.ErrorDecode and changes nothing.
func (s *LeaseService) Release(ctx context.Context, ownerID, payload string) (int, error) {
	var blob []byte
	if payload != "" {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			s.metrics.RecordRelease(resultLabel(common.ErrorDecode))
			return 0, common.ErrorDecode
		}
		blob = b
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		slot, err := s.tryRelease(ctx, ownerID, blob)
		if err == nil {
			s.metrics.RecordRelease("ok")
			s.logger.Info(ctx, "slot released", "owner_id", ownerID, "slot", slot, "blob_replaced", blob != nil)
			return slot, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) {
			s.metrics.RecordRelease(resultLabel(err))
			return 0, err
		}
		s.metrics.RecordConflict("release")
		s.logger.Debug(ctx, "ledger changed during release, retrying", "owner_id", ownerID, "attempt", attempt)
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	s.metrics.RecordRelease(resultLabel(common.ErrorContention))
	s.logger.Warn(ctx, "release gave up", "owner_id", ownerID, "attempts", s.maxAttempts)
	return 0, common.ErrorContention
}

func (s *LeaseService) tryRelease(ctx context.Context, ownerID string, blob []byte) (int, error) {
	var released int

	err := s.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Ledgers(tx)

		entry, err := repo.Get(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("error loading ledger entry: %w", err)
		}
		if err := entry.Slots.Validate(s.poolSize); err != nil {
			return fmt.Errorf("%w: ledger %s: %v", common.ErrorStorage, ownerID, err)
		}

		slots := entry.Slots.Clone()
		slot, ok := slots.Give()
		if !ok {
			return common.ErrorNoActiveLease
		}

		if err := repo.CompareAndSwap(ctx, ownerID, entry.Version, slots); err != nil {
			return err
		}

		if blob != nil {
			if err := s.blobs.Put(ctx, models.BlobKey(ownerID, slot), blob); err != nil {
				return fmt.Errorf("error storing config blob: %w", err)
			}
		}

		released = slot
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

// resultLabel maps an engine error to its metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrorNoCapacity):
		return "no_capacity"
	case errors.Is(err, common.ErrorNoActiveLease):
		return "no_active_lease"
	case errors.Is(err, common.ErrorContention):
		return "contention"
	case errors.Is(err, common.ErrorBlobNotFound):
		return "blob_not_found"
	case errors.Is(err, common.ErrorDecode):
		return "decode_error"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	default:
		return "error"
	}
}
