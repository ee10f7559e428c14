package requests

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nstc/opsdesk-backend/internal/repo"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/enums"
)

// ErrNotFound is returned when a request id does not resolve.
var ErrNotFound = errors.New("supply request not found")

// Repository persists supply requests. State changes go through Transition so
// the status precondition is part of the UPDATE itself.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, rows []*models.SupplyRequest) error
	FindByID(ctx context.Context, id uint64) (*models.SupplyRequest, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]models.SupplyRequest, error)
	List(ctx context.Context, filter Filter) ([]models.SupplyRequest, error)
	Transition(ctx context.Context, ids []uint64, from []enums.RequestStatus, fields map[string]any) (int64, error)
	UpdateFields(ctx context.Context, id uint64, fields map[string]any) error
	Delete(ctx context.Context, id uint64) (bool, error)
}

// Filter narrows List results. Zero values are ignored.
type Filter struct {
	Status     enums.RequestStatus
	Region     string
	Supervisor string
	Limit      int
}

type repository struct {
	repo.Base
}

// NewRepository returns a supply request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) CreateBatch(ctx context.Context, rows []*models.SupplyRequest) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB(ctx).Create(rows).Error
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.SupplyRequest, error) {
	var row models.SupplyRequest
	if err := r.DB(ctx).Where("req_id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uint64) ([]models.SupplyRequest, error) {
	var rows []models.SupplyRequest
	if len(ids) == 0 {
		return rows, nil
	}
	if err := r.DB(ctx).Where("req_id IN ?", ids).Order("req_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]models.SupplyRequest, error) {
	q := r.DB(ctx).Model(&models.SupplyRequest{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Region != "" {
		q = q.Where("region = ?", filter.Region)
	}
	if filter.Supervisor != "" {
		q = q.Where("supervisor_name = ?", filter.Supervisor)
	}

	var rows []models.SupplyRequest
	if err := repo.Paginate(q.Order("request_date DESC").Order("req_id DESC"), filter.Limit, 100, 500).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Transition applies fields to every id whose status is still one of from and
// returns how many rows changed.
func (r *repository) Transition(ctx context.Context, ids []uint64, from []enums.RequestStatus, fields map[string]any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Model(&models.SupplyRequest{}).
		Where("req_id IN ? AND status IN ?", ids, from).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateFields(ctx context.Context, id uint64, fields map[string]any) error {
	res := r.DB(ctx).Model(&models.SupplyRequest{}).Where("req_id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uint64) (bool, error) {
	res := r.DB(ctx).Where("req_id = ?", id).Delete(&models.SupplyRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
