package services

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/dmitrijs2005/slotkeeper/internal/dbx"
	"github.com/dmitrijs2005/slotkeeper/internal/server/models"
	"github.com/dmitrijs2005/slotkeeper/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/slotkeeper/internal/server/repositories/ledgers"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore is an in-memory stand-in for the database. Ledger writes are
// version-checked like the SQL repository.
type memStore struct {
	mu      sync.Mutex
	creds   map[string]models.Credential
	ledgers map[string]models.Ledger

	credCreateErr   error
	credGetErr      error
	ledgerCreateErr error
	listErr         error
	conflicts       int

	getCalls  int
	listCalls int
	casCalls  int
}

func newMemStore() *memStore {
	return &memStore{creds: map[string]models.Credential{}, ledgers: map[string]models.Ledger{}}
}

func (s *memStore) putLedger(l models.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.Slots = l.Slots.Clone()
	s.ledgers[l.OwnerID] = l
}

func (s *memStore) ledger(ownerID string) (models.Ledger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ledgers[ownerID]
	l.Slots = l.Slots.Clone()
	return l, ok
}

func (s *memStore) snapshot() (map[string]models.Credential, map[string]models.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := make(map[string]models.Credential, len(s.creds))
	for k, v := range s.creds {
		c[k] = v
	}
	l := make(map[string]models.Ledger, len(s.ledgers))
	for k, v := range s.ledgers {
		v.Slots = v.Slots.Clone()
		l[k] = v
	}
	return c, l
}

func (s *memStore) restore(c map[string]models.Credential, l map[string]models.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds, s.ledgers = c, l
}

type memCredentials struct{ s *memStore }

func (r memCredentials) Create(_ context.Context, c *models.Credential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.credCreateErr != nil {
		return r.s.credCreateErr
	}
	r.s.creds[c.OwnerID] = *c
	return nil
}

func (r memCredentials) GetByOwnerID(_ context.Context, ownerID string) (*models.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.credGetErr != nil {
		return nil, r.s.credGetErr
	}
	c, ok := r.s.creds[ownerID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

type memLedgers struct{ s *memStore }

func (r memLedgers) Create(_ context.Context, l *models.Ledger) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ledgerCreateErr != nil {
		return r.s.ledgerCreateErr
	}
	c := *l
	c.Slots = l.Slots.Clone()
	c.Version = 0
	r.s.ledgers[l.OwnerID] = c
	return nil
}

func (r memLedgers) Get(_ context.Context, ownerID string) (*models.Ledger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.getCalls++
	l, ok := r.s.ledgers[ownerID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	l.Slots = l.Slots.Clone()
	return &l, nil
}

func (r memLedgers) ListExcept(_ context.Context, ownerID string) ([]*models.Ledger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.listCalls++
	if r.s.listErr != nil {
		return nil, r.s.listErr
	}
	var out []*models.Ledger
	for id, l := range r.s.ledgers {
		if id == ownerID {
			continue
		}
		l.Slots = l.Slots.Clone()
		out = append(out, &l)
	}
	return out, nil
}

func (r memLedgers) CompareAndSwap(_ context.Context, ownerID string, version int64, slots models.SlotInfo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.casCalls++
	if r.s.conflicts > 0 {
		r.s.conflicts--
		return common.ErrVersionConflict
	}
	l, ok := r.s.ledgers[ownerID]
	if !ok || l.Version != version {
		return common.ErrVersionConflict
	}
	l.Slots = slots.Clone()
	l.Version++
	r.s.ledgers[ownerID] = l
	return nil
}

func (r memLedgers) UpdateLocation(_ context.Context, ownerID, address string, port int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.ledgers[ownerID]
	if !ok {
		return common.ErrorNotFound
	}
	l.Address, l.Port = address, port
	r.s.ledgers[ownerID] = l
	return nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository  { return memCredentials{m.s} }
func (m *fakeRepoManager) Ledgers(dbx.DBTX) ledgers.Repository          { return memLedgers{m.s} }

// fakeRunner runs units of work against memStore. With atomic set, units are
// serialized and a failing unit is undone, like a real transaction.
type fakeRunner struct {
	s      *memStore
	atomic bool
	mu     sync.Mutex
}

func (r *fakeRunner) DB() dbx.DBTX { return nil }

func (r *fakeRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if !r.atomic {
		return fn(ctx, nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, l := r.s.snapshot()
	if err := fn(ctx, nil); err != nil {
		r.s.restore(c, l)
		return err
	}
	return nil
}

type memBlobs struct {
	mu     sync.Mutex
	data   map[string][]byte
	putErr error
	puts   int
}

func newMemBlobs() *memBlobs { return &memBlobs{data: map[string][]byte{}} }

func (b *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, common.ErrorBlobNotFound
	}
	return append([]byte{}, v...), nil
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	if b.putErr != nil {
		return b.putErr
	}
	b.data[key] = append([]byte{}, data...)
	return nil
}

type recordingCollector struct {
	mu            sync.Mutex
	registrations []string
	allocations   []string
	releases      []string
	conflicts     []string
}

func (c *recordingCollector) RecordRegistration(r string) { c.add(&c.registrations, r) }
func (c *recordingCollector) RecordAllocation(r string)   { c.add(&c.allocations, r) }
func (c *recordingCollector) RecordRelease(r string)      { c.add(&c.releases, r) }
func (c *recordingCollector) RecordConflict(op string)    { c.add(&c.conflicts, op) }

func (c *recordingCollector) add(dst *[]string, v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*dst = append(*dst, v)
}

