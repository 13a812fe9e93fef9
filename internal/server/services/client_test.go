package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/dmitrijs2005/slotkeeper/internal/logging"
	"github.com/dmitrijs2005/slotkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeat(t *testing.T) {
	s := newMemStore()
	s.putLedger(models.Ledger{OwnerID: ownerA, Address: "10.0.0.1", Port: models.UnknownPort, Slots: models.SlotInfo{Used: []int{0}, Unused: []int{1, 2}}})
	svc := NewClientService(&fakeRunner{s: s}, &fakeRepoManager{s: s}, logging.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Heartbeat(ctx, ownerA, "198.51.100.4", 1194))
	l, _ := s.ledger(ownerA)
	assert.Equal(t, "198.51.100.4", l.Address)
	assert.Equal(t, 1194, l.Port)
	assert.Equal(t, []int{0}, l.Slots.Used)

	for _, port := range []int{0, -1, 65536} {
		err := svc.Heartbeat(ctx, ownerA, "198.51.100.4", port)
		assert.ErrorIs(t, err, common.ErrorValidation, "port %d", port)
	}

	err := svc.Heartbeat(ctx, ownerB, "198.51.100.4", 1194)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
