package stocklog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstc/opsdesk-backend/internal/testdb"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
)

func TestAppendAndListNewestFirst(t *testing.T) {
	client := testdb.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	entries := []models.StockLog{
		{ItemName: "Helmet", Location: "NSTC", ChangeAmount: 50, NewQty: 50, ActionBy: "Huda", ActionType: ActionInitialStock, LogDate: base},
		{ItemName: "Helmet", Location: "NSTC", ChangeAmount: -20, NewQty: 30, ActionBy: "Huda", ActionType: Issued("Riyadh"), LogDate: base.Add(time.Hour)},
		{ItemName: "Gloves", Location: "NSTC", ChangeAmount: 10, NewQty: 10, ActionBy: "Huda", ActionType: ActionInitialStock, LogDate: base.Add(2 * time.Hour)},
	}
	for i := range entries {
		require.NoError(t, repo.Append(ctx, &entries[i]))
		require.NotZero(t, entries[i].ID)
	}

	rows, err := repo.List(ctx, Filter{ItemName: "Helmet"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Issued Riyadh", rows[0].ActionType)
	assert.Equal(t, -20, rows[0].ChangeAmount)

	since := base.Add(90 * time.Minute)
	rows, err = repo.List(ctx, Filter{Since: &since})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Gloves", rows[0].ItemName)

	rows, err = repo.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAppendDefaultsLogDate(t *testing.T) {
	client := testdb.Open(t)
	repo := NewRepository(client.DB())

	entry := &models.StockLog{ItemName: "Rope", Location: "NSTC", ChangeAmount: 1, NewQty: 1, ActionBy: "x", ActionType: ActionAdjustment}
	require.NoError(t, repo.Append(context.Background(), entry))
	assert.False(t, entry.LogDate.IsZero())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Transfer Out to CWW", TransferOut("CWW"))
	assert.Equal(t, "Transfer In from NSTC", TransferIn("NSTC"))
	assert.Equal(t, "Lent to Tower B", LentTo("Tower B"))
	assert.Equal(t, "Returned from Tower B", ReturnedFrom("Tower B"))
	assert.Equal(t, "Issued Riyadh", Issued("Riyadh"))
}

func TestServiceRejectsNegativeLimit(t *testing.T) {
	svc, err := NewService(NewRepository(testdb.Open(t).DB()))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), Filter{Limit: -1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = NewService(nil)
	assert.Error(t, err)
}
