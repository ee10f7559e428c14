package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nstc/opsdesk-backend/internal/repo"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/enums"
)

// ErrNotFound is returned when a ledger row does not resolve.
var ErrNotFound = errors.New("inventory item not found")

// Repository manages ledger rows. Quantity changes go through GuardedDecrement
// and Increment so they happen as single conditional statements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.InventoryItem) error
	FindByID(ctx context.Context, id uint64) (*models.InventoryItem, error)
	FindByNameAndLocation(ctx context.Context, name, location string) (*models.InventoryItem, error)
	FindAnyByName(ctx context.Context, name, excludeLocation string) (*models.InventoryItem, error)
	List(ctx context.Context, filter Filter) ([]models.InventoryItem, error)
	UpdateFields(ctx context.Context, id uint64, fields map[string]any) error
	SetQty(ctx context.Context, id uint64, expectedQty, newQty int, at time.Time) (bool, error)
	Delete(ctx context.Context, id uint64) (bool, error)
	GuardedDecrement(ctx context.Context, id uint64, qty int, at time.Time) (bool, error)
	Increment(ctx context.Context, id uint64, qty int, at time.Time) error
	EnsureItem(ctx context.Context, template models.InventoryItem, at time.Time) (*models.InventoryItem, error)
	CurrentQty(ctx context.Context, id uint64) (int, error)
}

// Filter narrows List results. Zero values are ignored.
type Filter struct {
	Location string
	Category string
	Search   string
	Limit    int
}

type repository struct {
	repo.Base
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.InventoryItem, error) {
	return r.first(r.DB(ctx).Where("id = ?", id))
}

func (r *repository) FindByNameAndLocation(ctx context.Context, name, location string) (*models.InventoryItem, error) {
	return r.first(r.DB(ctx).Where("name_en = ? AND location = ?", name, location))
}

// FindAnyByName returns the best-stocked row with the given name outside
// excludeLocation.
func (r *repository) FindAnyByName(ctx context.Context, name, excludeLocation string) (*models.InventoryItem, error) {
	q := r.DB(ctx).Where("name_en = ?", name)
	if excludeLocation != "" {
		q = q.Where("location <> ?", excludeLocation)
	}
	return r.first(q.Order("qty DESC").Order("id ASC"))
}

func (r *repository) first(q *gorm.DB) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := q.Take(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]models.InventoryItem, error) {
	q := r.DB(ctx).Model(&models.InventoryItem{})
	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q = q.Where("LOWER(name_en) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var items []models.InventoryItem
	if err := repo.Paginate(q.Order("location ASC").Order("name_en ASC"), filter.Limit, 200, 1000).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uint64, fields map[string]any) error {
	res := r.DB(ctx).Model(&models.InventoryItem{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQty overwrites qty only if it still equals expectedQty.
func (r *repository) SetQty(ctx context.Context, id uint64, expectedQty, newQty int, at time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.InventoryItem{}).
		Where("id = ? AND qty = ?", id, expectedQty).
		Updates(map[string]any{
			"qty":          newQty,
			"status":       enums.ItemStatusFor(newQty),
			"last_updated": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Delete(ctx context.Context, id uint64) (bool, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.InventoryItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GuardedDecrement subtracts qty only when at least qty is on hand. The
// affected row count is the authoritative success signal.
func (r *repository) GuardedDecrement(ctx context.Context, id uint64, qty int, at time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.InventoryItem{}).
		Where("id = ? AND qty >= ?", id, qty).
		Updates(map[string]any{
			"qty":          gorm.Expr("qty - ?", qty),
			"status":       statusExpr("qty - ?", qty),
			"last_updated": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Increment(ctx context.Context, id uint64, qty int, at time.Time) error {
	res := r.DB(ctx).Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"qty":          gorm.Expr("qty + ?", qty),
			"status":       statusExpr("qty + ?", qty),
			"last_updated": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// statusExpr derives the status from the post-update quantity. SET clauses see
// the pre-update row, so the delta is applied inside the CASE as well.
func statusExpr(qtyExpr string, qty int) clause.Expr {
	return gorm.Expr(
		"CASE WHEN "+qtyExpr+" > 0 THEN ? ELSE ? END",
		qty, enums.ItemStatusAvailable, enums.ItemStatusOutOfStock,
	)
}

// EnsureItem returns the (name, location) row, creating it with zero quantity
// from template when missing.
func (r *repository) EnsureItem(ctx context.Context, template models.InventoryItem, at time.Time) (*models.InventoryItem, error) {
	row := models.InventoryItem{
		NameEn:      template.NameEn,
		Category:    template.Category,
		Unit:        template.Unit,
		Qty:         0,
		Location:    template.Location,
		Status:      enums.ItemStatusOutOfStock,
		LastUpdated: at,
	}
	if err := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name_en"}, {Name: "location"}},
			DoNothing: true,
		}).
		Create(&row).Error; err != nil {
		return nil, err
	}
	return r.FindByNameAndLocation(ctx, template.NameEn, template.Location)
}

func (r *repository) CurrentQty(ctx context.Context, id uint64) (int, error) {
	var qty int
	res := r.DB(ctx).Model(&models.InventoryItem{}).Where("id = ?", id).Select("qty").Scan(&qty)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return qty, nil
}
