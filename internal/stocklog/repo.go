package stocklog

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nstc/opsdesk-backend/internal/repo"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Repository persists stock log rows. There is deliberately no update or
// delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.StockLog) error
	List(ctx context.Context, filter Filter) ([]models.StockLog, error)
}

// Filter narrows List results. Zero values are ignored.
type Filter struct {
	ItemName string
	Location string
	Since    *time.Time
	Limit    int
}

type repository struct {
	repo.Base
}

// NewRepository returns a stock log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Append(ctx context.Context, entry *models.StockLog) error {
	if entry.LogDate.IsZero() {
		entry.LogDate = time.Now().UTC()
	}
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, filter Filter) ([]models.StockLog, error) {
	q := r.DB(ctx).Model(&models.StockLog{})
	if filter.ItemName != "" {
		q = q.Where("item_name = ?", filter.ItemName)
	}
	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}
	if filter.Since != nil {
		q = q.Where("log_date >= ?", *filter.Since)
	}

	var rows []models.StockLog
	if err := repo.Paginate(q.Order("log_date DESC").Order("id DESC"), filter.Limit, defaultListLimit, maxListLimit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
