package dashboard

import (
	"context"

	"gorm.io/gorm"

	"github.com/nstc/opsdesk-backend/internal/repo"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/enums"
)

// Repository runs the aggregate queries behind the dashboard.
type Repository interface {
	LocationTotals(ctx context.Context) ([]LocationSummary, error)
	RequestCounts(ctx context.Context) (map[enums.RequestStatus]int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a dashboard repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) LocationTotals(ctx context.Context) ([]LocationSummary, error) {
	var rows []LocationSummary
	err := r.DB(ctx).
		Model(&models.InventoryItem{}).
		Select(
			"location, COUNT(*) AS item_count, COALESCE(SUM(qty), 0) AS total_qty, " +
				"SUM(CASE WHEN qty <= 0 THEN 1 ELSE 0 END) AS out_of_stock",
		).
		Group("location").
		Order("location").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type statusCount struct {
	Status enums.RequestStatus
	Total  int64
}

func (r *repository) RequestCounts(ctx context.Context) (map[enums.RequestStatus]int64, error) {
	var rows []statusCount
	if err := r.DB(ctx).
		Model(&models.SupplyRequest{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.RequestStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
