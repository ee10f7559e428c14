package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstc/opsdesk-backend/internal/testdb"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

var nightSupervisor = &access.Actor{Name: "Omar", Role: enums.RoleNightSupervisor}

func newService(t *testing.T) Service {
	t.Helper()
	client := testdb.Open(t)
	svc, err := NewService(client, NewRepository(client.DB()), nil, nil, logger.Nop(), 10)
	require.NoError(t, err)
	return svc
}

func hours(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestRecordBulkUpsertsByDate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 17, 45, 0, 0, time.UTC)

	sheet, err := svc.RecordBulk(ctx, nightSupervisor, day, []Entry{
		{WorkerName: "Ali", Region: "Riyadh", Status: "present", HoursWorked: hours("8"), OvertimeHours: hours("1.5")},
		{WorkerName: "Badr", Region: "Riyadh", Status: "Absent"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", sheet.Date)
	assert.Equal(t, 1, sheet.Present)
	assert.Equal(t, 1, sheet.Absent)
	assert.True(t, sheet.TotalHours.Equal(hours("8")))
	assert.True(t, sheet.OvertimeHours.Equal(hours("1.5")))

	sheet, err = svc.RecordBulk(ctx, nightSupervisor, day.Add(2*time.Hour), []Entry{
		{WorkerName: "Badr", Region: "Riyadh", Status: "present", HoursWorked: hours("4.25")},
	})
	require.NoError(t, err)
	assert.Len(t, sheet.Records, 2, "resubmitting a worker replaces the row")
	assert.Equal(t, 2, sheet.Present)
	assert.True(t, sheet.TotalHours.Equal(hours("12.25")))

	other, err := svc.ListByDate(ctx, day.AddDate(0, 0, 1), "")
	require.NoError(t, err)
	assert.Empty(t, other.Records)
}

func TestRecordBulkAggregatesValidationErrors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.RecordBulk(ctx, nightSupervisor, day, []Entry{
		{WorkerName: "", Status: "present"},
		{WorkerName: "Ali", Status: "sick"},
		{WorkerName: "Badr", Status: "present", HoursWorked: hours("25")},
		{WorkerName: "Ali", Status: "present"},
		{WorkerName: "Fahad", Status: "leave", HoursWorked: hours("2")},
		{WorkerName: "Hani", Status: "present", HoursWorked: hours("8")},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	messages, ok := details["errors"].([]string)
	require.True(t, ok)
	assert.Len(t, messages, 5)

	sheet, err := svc.ListByDate(ctx, day, "")
	require.NoError(t, err)
	assert.Empty(t, sheet.Records, "nothing is written when any row is invalid")
}

func TestRecordBulkAccess(t *testing.T) {
	svc := newService(t)
	_, err := svc.RecordBulk(context.Background(), &access.Actor{Name: "Huda", Role: enums.RoleStorekeeper}, time.Now(), []Entry{{WorkerName: "Ali", Status: "present"}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = svc.RecordBulk(context.Background(), nightSupervisor, time.Now(), make([]Entry, 11))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
