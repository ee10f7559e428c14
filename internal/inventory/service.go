package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nstc/opsdesk-backend/internal/audit"
	"github.com/nstc/opsdesk-backend/internal/stocklog"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/db"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
	"github.com/nstc/opsdesk-backend/pkg/metrics"
)

const auditModule = "inventory"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type viewInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service exposes the inventory ledger workflows.
type Service interface {
	CreateItem(ctx context.Context, actor *access.Actor, input CreateItemInput) (*models.InventoryItem, error)
	UpdateItem(ctx context.Context, actor *access.Actor, id uint64, input UpdateItemInput) (*models.InventoryItem, error)
	DeleteItem(ctx context.Context, actor *access.Actor, id uint64) error
	AdjustQuantity(ctx context.Context, actor *access.Actor, input AdjustInput) (*models.InventoryItem, error)
	GetItem(ctx context.Context, id uint64) (*models.InventoryItem, error)
	ListItems(ctx context.Context, filter Filter) ([]models.InventoryItem, error)
}

// CreateItemInput captures a new ledger row.
type CreateItemInput struct {
	NameEn   string
	Category string
	Unit     string
	Qty      int
	Location string
}

// UpdateItemInput carries a partial edit; nil fields are left unchanged.
type UpdateItemInput struct {
	NameEn   *string
	Category *string
	Unit     *string
	Qty      *int
}

// AdjustInput applies a signed delta to the (item, location) row.
type AdjustInput struct {
	ItemName   string
	Location   string
	Delta      int
	ActionType string
	Unit       string
}

// ServiceParams bundles the dependencies required to build the inventory service.
type ServiceParams struct {
	Tx        txRunner
	Items     Repository
	StockLogs stocklog.Repository
	Audit     audit.Recorder
	Views     viewInvalidator
	Metrics   *metrics.WorkflowMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	tx      txRunner
	items   Repository
	logs    stocklog.Repository
	audit   audit.Recorder
	views   viewInvalidator
	metrics *metrics.WorkflowMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the inventory ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.StockLogs == nil {
		return nil, fmt.Errorf("stock log repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &service{
		tx:      params.Tx,
		items:   params.Items,
		logs:    params.StockLogs,
		audit:   params.Audit,
		views:   params.Views,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     params.Now,
	}
	if svc.audit == nil {
		svc.audit = audit.Nop{}
	}
	if svc.views == nil {
		svc.views = nopInvalidator{}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) {}

func (s *service) CreateItem(ctx context.Context, actor *access.Actor, input CreateItemInput) (item *models.InventoryItem, err error) {
	defer s.metrics.Track(string(access.OpItemCreate), time.Now(), &err)
	if err := access.Authorize(actor, access.OpItemCreate); err != nil {
		return nil, err
	}

	input.NameEn = strings.TrimSpace(input.NameEn)
	input.Location = strings.TrimSpace(input.Location)
	switch {
	case input.NameEn == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	case input.Location == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	case input.Qty < 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if err := CheckQty("qty", input.Qty); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item = &models.InventoryItem{
		NameEn:      input.NameEn,
		Category:    strings.TrimSpace(input.Category),
		Unit:        strings.TrimSpace(input.Unit),
		Qty:         input.Qty,
		Location:    input.Location,
		Status:      enums.ItemStatusFor(input.Qty),
		LastUpdated: now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		if _, err := items.FindByNameAndLocation(ctx, item.NameEn, item.Location); err == nil {
			return duplicateItem(item.NameEn, item.Location)
		} else if !errors.Is(err, ErrNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup item")
		}
		if err := items.Create(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateItem(item.NameEn, item.Location)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create item")
		}
		if item.Qty > 0 {
			return s.appendLog(ctx, tx, item, item.Qty, item.Qty, actor, stocklog.ActionInitialStock, item.Unit, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Create Item", fmt.Sprintf("%s @ %s qty %d", item.NameEn, item.Location, item.Qty))
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, actor *access.Actor, id uint64, input UpdateItemInput) (item *models.InventoryItem, err error) {
	defer s.metrics.Track(string(access.OpItemUpdate), time.Now(), &err)
	if err := access.Authorize(actor, access.OpItemUpdate); err != nil {
		return nil, err
	}
	if input.NameEn != nil && strings.TrimSpace(*input.NameEn) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name must not be blank")
	}
	if input.Qty != nil {
		if *input.Qty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
		}
		if err := CheckQty("qty", *input.Qty); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		current, err := items.FindByID(ctx, id)
		if err != nil {
			return itemLookupError(err, id)
		}

		fields := map[string]any{}
		if input.NameEn != nil {
			name := strings.TrimSpace(*input.NameEn)
			if name != current.NameEn {
				if _, err := items.FindByNameAndLocation(ctx, name, current.Location); err == nil {
					return duplicateItem(name, current.Location)
				} else if !errors.Is(err, ErrNotFound) {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup item")
				}
				fields["name_en"] = name
			}
		}
		if input.Category != nil {
			fields["category"] = strings.TrimSpace(*input.Category)
		}
		if input.Unit != nil {
			fields["unit"] = strings.TrimSpace(*input.Unit)
		}
		if len(fields) > 0 {
			fields["last_updated"] = now
			if err := items.UpdateFields(ctx, id, fields); err != nil {
				if db.IsUniqueViolation(err, "") {
					return duplicateItem(fmt.Sprint(fields["name_en"]), current.Location)
				}
				return itemLookupError(err, id)
			}
		}

		if input.Qty != nil && *input.Qty != current.Qty {
			ok, err := items.SetQty(ctx, id, current.Qty, *input.Qty, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update quantity")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "item quantity changed concurrently, reload and retry")
			}
		}

		item, err = items.FindByID(ctx, id)
		if err != nil {
			return itemLookupError(err, id)
		}
		if delta := item.Qty - current.Qty; delta != 0 {
			return s.appendLog(ctx, tx, item, delta, item.Qty, actor, stocklog.ActionManualEdit, item.Unit, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Update Item", fmt.Sprintf("%s @ %s", item.NameEn, item.Location))
	return item, nil
}

func (s *service) DeleteItem(ctx context.Context, actor *access.Actor, id uint64) (err error) {
	defer s.metrics.Track(string(access.OpItemDelete), time.Now(), &err)
	if err := access.Authorize(actor, access.OpItemDelete); err != nil {
		return err
	}

	var deleted *models.InventoryItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		item, err := items.FindByID(ctx, id)
		if err != nil {
			return itemLookupError(err, id)
		}
		ok, err := items.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete item")
		}
		if !ok {
			return itemLookupError(ErrNotFound, id)
		}
		deleted = item
		return nil
	})
	if err != nil {
		return err
	}

	s.afterCommit(ctx, actor, "Delete Item", fmt.Sprintf("%s @ %s", deleted.NameEn, deleted.Location))
	return nil
}

func (s *service) AdjustQuantity(ctx context.Context, actor *access.Actor, input AdjustInput) (item *models.InventoryItem, err error) {
	defer s.metrics.Track(string(access.OpItemAdjust), time.Now(), &err)
	if err := access.Authorize(actor, access.OpItemAdjust); err != nil {
		return nil, err
	}

	input.ItemName = strings.TrimSpace(input.ItemName)
	input.Location = strings.TrimSpace(input.Location)
	switch {
	case input.ItemName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	case input.Location == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	case input.Delta == 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change amount must not be zero")
	}
	if err := CheckQty("change_amount", input.Delta); err != nil {
		return nil, err
	}
	actionType := strings.TrimSpace(input.ActionType)
	if actionType == "" {
		actionType = stocklog.ActionAdjustment
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		found, err := items.FindByNameAndLocation(ctx, input.ItemName, input.Location)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return NotFound(input.ItemName, input.Location)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup item")
		}

		var newQty int
		if input.Delta < 0 {
			newQty, err = Withdraw(ctx, items, found, -input.Delta, now)
		} else {
			newQty, err = Deposit(ctx, items, found, input.Delta, now)
		}
		if err != nil {
			return err
		}

		unit := input.Unit
		if unit == "" {
			unit = found.Unit
		}
		if err := s.appendLog(ctx, tx, found, input.Delta, newQty, actor, actionType, unit, now); err != nil {
			return err
		}

		item, err = items.FindByID(ctx, found.ID)
		return itemLookupError(err, found.ID)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Adjust Quantity", fmt.Sprintf("%s @ %s %+d (%s)", item.NameEn, item.Location, input.Delta, actionType))
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id uint64) (*models.InventoryItem, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, itemLookupError(err, id)
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, filter Filter) ([]models.InventoryItem, error) {
	items, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}
	return items, nil
}

func (s *service) appendLog(ctx context.Context, tx *gorm.DB, item *models.InventoryItem, change, newQty int, actor *access.Actor, actionType, unit string, at time.Time) error {
	entry := &models.StockLog{
		ItemName:     item.NameEn,
		Location:     item.Location,
		ChangeAmount: change,
		NewQty:       newQty,
		ActionBy:     actor.Name,
		ActionType:   actionType,
		Unit:         unit,
		LogDate:      at,
	}
	if err := s.logs.WithTx(tx).Append(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append stock log")
	}
	return nil
}

func (s *service) afterCommit(ctx context.Context, actor *access.Actor, action, detail string) {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"action": action, "detail": detail}), "inventory updated")
	s.audit.Record(ctx, audit.NewEvent(actor, auditModule, action, detail))
	s.views.Invalidate(ctx)
}

func duplicateItem(name, location string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "Item %s already exists at %s", name, location)
}

func itemLookupError(err error, id uint64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "Item #%d not found", id)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
	}
}
