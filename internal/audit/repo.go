package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nstc/opsdesk-backend/internal/repo"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
)

// Repository persists audit rows.
type Repository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, module string, limit int) ([]models.AuditLog, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, module string, limit int) ([]models.AuditLog, error) {
	q := r.DB(ctx).Model(&models.AuditLog{})
	if module != "" {
		q = q.Where("module = ?", module)
	}
	var rows []models.AuditLog
	if err := repo.Paginate(q.Order("id DESC"), limit, 50, 500).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteBefore purges rows created before cutoff.
func (r *repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}
