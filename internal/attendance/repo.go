package attendance

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nstc/opsdesk-backend/internal/repo"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
)

// Repository persists attendance sheets keyed on (work_date, worker_name).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, rows []models.AttendanceRecord) error
	ListByDate(ctx context.Context, date time.Time, region string) ([]models.AttendanceRecord, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an attendance repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Upsert(ctx context.Context, rows []models.AttendanceRecord) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "work_date"}, {Name: "worker_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"region", "status", "hours_worked", "overtime_hours", "recorded_by", "updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *repository) ListByDate(ctx context.Context, date time.Time, region string) ([]models.AttendanceRecord, error) {
	q := r.DB(ctx).Where("work_date = ?", date)
	if region != "" {
		q = q.Where("region = ?", region)
	}
	var rows []models.AttendanceRecord
	if err := q.Order("region ASC").Order("worker_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
