package localinventory

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nstc/opsdesk-backend/internal/repo"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
)

// ErrNotFound is returned when a (region, item) pair has no row.
var ErrNotFound = errors.New("local inventory row not found")

// Repository persists the regional on-hand book. Both writes are upserts keyed
// on (region, item_name).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Increment(ctx context.Context, region, itemName string, qty int, by string, at time.Time) error
	Set(ctx context.Context, region, itemName string, qty int, by string, at time.Time) error
	Find(ctx context.Context, region, itemName string) (*models.LocalInventory, error)
	List(ctx context.Context, region string) ([]models.LocalInventory, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a local inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

var conflictColumns = []clause.Column{{Name: "region"}, {Name: "item_name"}}

func (r *repository) Increment(ctx context.Context, region, itemName string, qty int, by string, at time.Time) error {
	row := models.LocalInventory{Region: region, ItemName: itemName, Qty: qty, LastUpdated: at, UpdatedBy: by}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: conflictColumns,
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "qty"}, Value: gorm.Expr("local_inventory.qty + excluded.qty")},
				{Column: clause.Column{Name: "last_updated"}, Value: gorm.Expr("excluded.last_updated")},
				{Column: clause.Column{Name: "updated_by"}, Value: gorm.Expr("excluded.updated_by")},
			},
		}).
		Create(&row).Error
}

func (r *repository) Set(ctx context.Context, region, itemName string, qty int, by string, at time.Time) error {
	row := models.LocalInventory{Region: region, ItemName: itemName, Qty: qty, LastUpdated: at, UpdatedBy: by}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   conflictColumns,
			DoUpdates: clause.AssignmentColumns([]string{"qty", "last_updated", "updated_by"}),
		}).
		Create(&row).Error
}

func (r *repository) Find(ctx context.Context, region, itemName string) (*models.LocalInventory, error) {
	var row models.LocalInventory
	if err := r.DB(ctx).Where("region = ? AND item_name = ?", region, itemName).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) List(ctx context.Context, region string) ([]models.LocalInventory, error) {
	q := r.DB(ctx).Model(&models.LocalInventory{})
	if region != "" {
		q = q.Where("region = ?", region)
	}
	var rows []models.LocalInventory
	if err := q.Order("region ASC").Order("item_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
