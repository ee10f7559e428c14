package localinventory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstc/opsdesk-backend/internal/testdb"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

func TestIncrementUpserts(t *testing.T) {
	repo := NewRepository(testdb.Open(t).DB())
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Increment(ctx, "Riyadh", "Helmet", 20, "Lina", at))
	require.NoError(t, repo.Increment(ctx, "Riyadh", "Helmet", 5, "Omar", at.Add(time.Hour)))
	require.NoError(t, repo.Increment(ctx, "Jeddah", "Helmet", 7, "Omar", at))

	row, err := repo.Find(ctx, "Riyadh", "Helmet")
	require.NoError(t, err)
	assert.Equal(t, 25, row.Qty)
	assert.Equal(t, "Omar", row.UpdatedBy)

	rows, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStocktakeSetsAbsoluteCounts(t *testing.T) {
	client := testdb.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(client, repo, nil, nil, logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()
	supervisor := &access.Actor{Name: "Lina", Role: enums.RoleSupervisor}

	require.NoError(t, repo.Increment(ctx, "Riyadh", "Helmet", 25, "Lina", time.Now()))

	rows, err := svc.Stocktake(ctx, supervisor, StocktakeInput{
		Region: "Riyadh",
		Counts: []Count{{ItemName: "Helmet", Qty: 18}, {ItemName: "Gloves", Qty: 0}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Gloves", rows[0].ItemName)
	assert.Equal(t, 0, rows[0].Qty)
	assert.Equal(t, 18, rows[1].Qty)

	_, err = svc.Stocktake(ctx, &access.Actor{Name: "Huda", Role: enums.RoleStorekeeper}, StocktakeInput{Region: "Riyadh", Counts: []Count{{ItemName: "Helmet", Qty: 1}}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Stocktake(ctx, supervisor, StocktakeInput{Region: "Riyadh", Counts: []Count{{ItemName: "Helmet", Qty: -1}}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	row, err := repo.Find(ctx, "Riyadh", "Helmet")
	require.NoError(t, err)
	assert.Equal(t, 18, row.Qty)
}

func TestGetLooksUpOneRegionalRow(t *testing.T) {
	client := testdb.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(client, repo, nil, nil, logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Increment(ctx, "Riyadh", "Helmet", 9, "Lina", time.Now()))

	row, err := svc.Get(ctx, " Riyadh ", "Helmet")
	require.NoError(t, err)
	assert.Equal(t, 9, row.Qty)

	_, err = svc.Get(ctx, "Jeddah", "Helmet")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, "Riyadh", "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestStocktakeRejectsCountBeyondColumnRange(t *testing.T) {
	client := testdb.Open(t)
	svc, err := NewService(client, NewRepository(client.DB()), nil, nil, logger.Nop())
	require.NoError(t, err)

	_, err = svc.Stocktake(context.Background(), &access.Actor{Name: "Lina", Role: enums.RoleSupervisor}, StocktakeInput{
		Region: "Riyadh",
		Counts: []Count{{ItemName: "Helmet", Qty: math.MaxInt32 + 1}},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
