package transfers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstc/opsdesk-backend/internal/inventory"
	"github.com/nstc/opsdesk-backend/internal/stocklog"
	"github.com/nstc/opsdesk-backend/internal/testdb"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

var storekeeper = &access.Actor{Name: "Huda", Role: enums.RoleStorekeeper}

type fixture struct {
	svc   Service
	items inventory.Repository
	logs  stocklog.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := testdb.Open(t)
	f := &fixture{
		items: inventory.NewRepository(client.DB()),
		logs:  stocklog.NewRepository(client.DB()),
	}
	svc, err := NewService(ServiceParams{
		Tx:             client,
		Items:          f.items,
		StockLogs:      f.logs,
		Logger:         logger.Nop(),
		InfiniteSource: "CWW",
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seed(t *testing.T, name, location string, qty int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		NameEn:      name,
		Category:    "PPE",
		Unit:        "pcs",
		Qty:         qty,
		Location:    location,
		Status:      enums.ItemStatusFor(qty),
		LastUpdated: time.Now().UTC(),
	}
	require.NoError(t, f.items.Create(context.Background(), item))
	return item
}

func (f *fixture) qty(t *testing.T, name, location string) int {
	t.Helper()
	item, err := f.items.FindByNameAndLocation(context.Background(), name, location)
	require.NoError(t, err)
	return item.Qty
}

func (f *fixture) allLogs(t *testing.T) []models.StockLog {
	t.Helper()
	rows, err := f.logs.List(context.Background(), stocklog.Filter{})
	require.NoError(t, err)
	return rows
}

func TestTransferConservesQuantity(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Helmet", "NSTC", 50)
	f.seed(t, "Helmet", "Yard 2", 4)

	res, err := f.svc.Transfer(context.Background(), storekeeper, TransferInput{ItemName: "Helmet", Qty: 15, From: "NSTC", To: "Yard 2"})
	require.NoError(t, err)
	require.NotNil(t, res.Source)
	assert.Equal(t, 35, res.Source.Qty)
	assert.Equal(t, 19, res.Destination.Qty)
	assert.Equal(t, 35, f.qty(t, "Helmet", "NSTC"))
	assert.Equal(t, 19, f.qty(t, "Helmet", "Yard 2"))

	logs := f.allLogs(t)
	require.Len(t, logs, 2)
	changes := map[string]int{}
	for _, l := range logs {
		changes[l.ActionType] = l.ChangeAmount
	}
	assert.Equal(t, map[string]int{"Transfer Out to Yard 2": -15, "Transfer In from NSTC": 15}, changes)
}

func TestTransferCreatesDestinationRow(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Helmet", "NSTC", 10)

	res, err := f.svc.Transfer(context.Background(), storekeeper, TransferInput{ItemName: "Helmet", Qty: 10, From: "NSTC", To: "Yard 9"})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Destination.Qty)
	assert.Equal(t, "PPE", res.Destination.Category)
	assert.Equal(t, "pcs", res.Destination.Unit)
	assert.Equal(t, enums.ItemStatusOutOfStock, res.Source.Status)
}

func TestTransferFromInfiniteSourceOnlyCredits(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Helmet", "NSTC", 3)

	res, err := f.svc.Transfer(context.Background(), storekeeper, TransferInput{ItemName: "Helmet", Qty: 500, From: "CWW", To: "NSTC"})
	require.NoError(t, err)
	assert.Nil(t, res.Source)
	assert.Equal(t, 503, res.Destination.Qty)

	_, err = f.items.FindByNameAndLocation(context.Background(), "Helmet", "CWW")
	assert.ErrorIs(t, err, inventory.ErrNotFound, "infinite source never gets a ledger row")

	logs := f.allLogs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "Transfer In from CWW", logs[0].ActionType)
	assert.Equal(t, 500, logs[0].ChangeAmount)
	assert.Equal(t, 503, logs[0].NewQty)
}

func TestTransferFallsBackToSameNameElsewhere(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Helmet", "Yard 3", 8)

	res, err := f.svc.Transfer(context.Background(), storekeeper, TransferInput{ItemName: "Helmet", Qty: 5, From: "NSTC", To: "Yard 1"})
	require.NoError(t, err)
	require.NotNil(t, res.Source)
	assert.Equal(t, "Yard 3", res.Source.Location)
	assert.Equal(t, 3, f.qty(t, "Helmet", "Yard 3"))
	assert.Equal(t, 5, f.qty(t, "Helmet", "Yard 1"))

	_, err = f.svc.Transfer(context.Background(), storekeeper, TransferInput{ItemName: "Boots", Qty: 1, From: "NSTC", To: "Yard 1"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestTransferValidation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Helmet", "NSTC", 2)
	ctx := context.Background()

	_, err := f.svc.Transfer(ctx, storekeeper, TransferInput{ItemName: "Helmet", Qty: 1, From: "NSTC", To: "NSTC"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SameLocation", details["reason"])

	_, err = f.svc.Transfer(ctx, storekeeper, TransferInput{ItemName: "Helmet", Qty: 0, From: "NSTC", To: "Yard 1"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Transfer(ctx, &access.Actor{Name: "Lina", Role: enums.RoleSupervisor}, TransferInput{ItemName: "Helmet", Qty: 1, From: "NSTC", To: "Yard 1"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Transfer(ctx, storekeeper, TransferInput{ItemName: "Helmet", Qty: 3, From: "NSTC", To: "Yard 1"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	assert.Contains(t, err.Error(), "Available: 2")

	assert.Equal(t, 2, f.qty(t, "Helmet", "NSTC"))
	_, err = f.items.FindByNameAndLocation(ctx, "Helmet", "Yard 1")
	assert.ErrorIs(t, err, inventory.ErrNotFound, "failed transfer leaves no destination row")
	assert.Empty(t, f.allLogs(t))
}

func TestLend(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, "Scaffold", "NSTC", 6)
	ctx := context.Background()

	lent, err := f.svc.Lend(ctx, storekeeper, LendInput{ItemID: item.ID, Qty: 4, Project: "Tower B"})
	require.NoError(t, err)
	assert.Equal(t, 2, lent.Qty)

	_, err = f.svc.Lend(ctx, storekeeper, LendInput{ItemID: item.ID, Qty: 4, Project: "Tower B"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	_, err = f.svc.Lend(ctx, storekeeper, LendInput{ItemID: 999, Qty: 1, Project: "Tower B"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	logs := f.allLogs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "Lent to Tower B", logs[0].ActionType)
	assert.Equal(t, -4, logs[0].ChangeAmount)
	assert.Equal(t, 2, logs[0].NewQty)
}

func TestReturnCreatesZeroRowThenCredits(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, "Scaffold", "NSTC", 1)
	ctx := context.Background()

	returned, err := f.svc.Return(ctx, storekeeper, ReturnInput{ItemID: item.ID, Qty: 3, Project: "Tower B", Destination: "Yard 4"})
	require.NoError(t, err)
	assert.Equal(t, "Yard 4", returned.Location)
	assert.Equal(t, 3, returned.Qty)
	assert.Equal(t, "PPE", returned.Category)

	returned, err = f.svc.Return(ctx, storekeeper, ReturnInput{ItemID: item.ID, Qty: 2, Project: "Tower B"})
	require.NoError(t, err)
	assert.Equal(t, "NSTC", returned.Location)
	assert.Equal(t, 3, returned.Qty)

	returned, err = f.svc.Return(ctx, storekeeper, ReturnInput{ItemName: "Ladder", Qty: 1, Project: "Tower C", Destination: "NSTC", Unit: "pcs"})
	require.NoError(t, err)
	assert.Equal(t, 1, returned.Qty)

	logs := f.allLogs(t)
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.Contains(t, l.ActionType, "Returned from Tower")
		assert.Positive(t, l.ChangeAmount)
	}

	_, err = f.svc.Return(ctx, storekeeper, ReturnInput{ItemName: "Ladder", Qty: 1, Project: "Tower C"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestQuantitiesBeyondColumnRangeAreRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	helmet := f.seed(t, "Helmet", "NSTC", 5)
	tooMany := inventory.MaxQty + 1

	_, err := f.svc.Transfer(ctx, storekeeper, TransferInput{ItemName: "Helmet", Qty: tooMany, From: "CWW", To: "NSTC"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Lend(ctx, storekeeper, LendInput{ItemID: helmet.ID, Qty: tooMany, Project: "Metro"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Return(ctx, storekeeper, ReturnInput{ItemID: helmet.ID, Qty: tooMany, Project: "Metro"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	assert.Equal(t, 5, f.qty(t, "Helmet", "NSTC"))
	assert.Empty(t, f.allLogs(t))
}
