// Package transfers moves stock between ledger rows: warehouse to warehouse,
// warehouse to project and project back to warehouse.
package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nstc/opsdesk-backend/internal/audit"
	"github.com/nstc/opsdesk-backend/internal/inventory"
	"github.com/nstc/opsdesk-backend/internal/stocklog"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
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

// Service runs transfer, lend and return movements, each in one transaction.
type Service interface {
	Transfer(ctx context.Context, actor *access.Actor, input TransferInput) (*TransferResult, error)
	Lend(ctx context.Context, actor *access.Actor, input LendInput) (*models.InventoryItem, error)
	Return(ctx context.Context, actor *access.Actor, input ReturnInput) (*models.InventoryItem, error)
}

// TransferInput moves Qty of ItemName from one warehouse to another.
type TransferInput struct {
	ItemName string
	Qty      int
	From     string
	To       string
	Unit     string
	Notes    string
}

// TransferResult reports the rows after the move. Source is nil when stock
// came from the infinite source.
type TransferResult struct {
	Source      *models.InventoryItem `json:"source,omitempty"`
	Destination *models.InventoryItem `json:"destination"`
}

// LendInput hands Qty of a ledger row to a project.
type LendInput struct {
	ItemID  uint64
	Qty     int
	Project string
	Unit    string
	Notes   string
}

// ReturnInput credits Qty back from a project. Either ItemID or ItemName
// identifies the item; Destination defaults to the referenced row's location.
type ReturnInput struct {
	ItemID      uint64
	ItemName    string
	Qty         int
	Project     string
	Destination string
	Unit        string
	Notes       string
}

// ServiceParams bundles the dependencies required to build the transfer service.
type ServiceParams struct {
	Tx             txRunner
	Items          inventory.Repository
	StockLogs      stocklog.Repository
	Audit          audit.Recorder
	Views          viewInvalidator
	Metrics        *metrics.WorkflowMetrics
	Logger         *logger.Logger
	InfiniteSource string
	Now            func() time.Time
}

type service struct {
	tx             txRunner
	items          inventory.Repository
	logs           stocklog.Repository
	audit          audit.Recorder
	views          viewInvalidator
	metrics        *metrics.WorkflowMetrics
	logg           *logger.Logger
	infiniteSource string
	now            func() time.Time
}

// NewService wires the transfer engine.
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
		tx:             params.Tx,
		items:          params.Items,
		logs:           params.StockLogs,
		audit:          params.Audit,
		views:          params.Views,
		metrics:        params.Metrics,
		logg:           params.Logger,
		infiniteSource: strings.TrimSpace(params.InfiniteSource),
		now:            params.Now,
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

func (s *service) Transfer(ctx context.Context, actor *access.Actor, input TransferInput) (result *TransferResult, err error) {
	defer s.metrics.Track(string(access.OpTransfer), time.Now(), &err)
	if err := access.Authorize(actor, access.OpTransfer); err != nil {
		return nil, err
	}

	input.ItemName = strings.TrimSpace(input.ItemName)
	input.From = strings.TrimSpace(input.From)
	input.To = strings.TrimSpace(input.To)
	switch {
	case input.ItemName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	case input.From == "" || input.To == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination are required")
	case input.Qty <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	case strings.EqualFold(input.From, input.To):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Source and destination cannot be the same").
			WithDetails(map[string]any{"reason": "SameLocation"})
	}
	if err := inventory.CheckQty("qty", input.Qty); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result = &TransferResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		logs := s.logs.WithTx(tx)

		var source *models.InventoryItem
		template := models.InventoryItem{NameEn: input.ItemName, Unit: input.Unit, Location: input.To}
		if s.isInfiniteSource(input.From) {
			if known, err := items.FindAnyByName(ctx, input.ItemName, ""); err == nil {
				template.Category, template.Unit = known.Category, firstNonEmpty(template.Unit, known.Unit)
			} else if !errors.Is(err, inventory.ErrNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup item")
			}
		} else {
			found, err := s.resolveSource(ctx, items, input)
			if err != nil {
				return err
			}
			remaining, err := inventory.Withdraw(ctx, items, found, input.Qty, now)
			if err != nil {
				return err
			}
			unit := firstNonEmpty(input.Unit, found.Unit)
			if err := logs.Append(ctx, stockLog(found.NameEn, found.Location, -input.Qty, remaining, actor, stocklog.TransferOut(input.To), unit, now)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append stock log")
			}
			template.Category, template.Unit = found.Category, firstNonEmpty(template.Unit, found.Unit)
			source = found
		}

		dest, err := items.EnsureItem(ctx, template, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure destination item")
		}
		credited, err := inventory.Deposit(ctx, items, dest, input.Qty, now)
		if err != nil {
			return err
		}
		fromLabel := input.From
		if source != nil {
			fromLabel = source.Location
		}
		if err := logs.Append(ctx, stockLog(dest.NameEn, dest.Location, input.Qty, credited, actor, stocklog.TransferIn(fromLabel), firstNonEmpty(input.Unit, dest.Unit), now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append stock log")
		}

		if source != nil {
			if result.Source, err = items.FindByID(ctx, source.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload source item")
			}
		}
		if result.Destination, err = items.FindByID(ctx, dest.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload destination item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	from := input.From
	if result.Source != nil {
		from = result.Source.Location
	}
	s.afterCommit(ctx, actor, "Transfer", withNotes(fmt.Sprintf("%d %s from %s to %s", input.Qty, input.ItemName, from, input.To), input.Notes))
	return result, nil
}

// resolveSource looks the item up at the nominal source and falls back once
// to the best-stocked row of the same name elsewhere.
func (s *service) resolveSource(ctx context.Context, items inventory.Repository, input TransferInput) (*models.InventoryItem, error) {
	found, err := items.FindByNameAndLocation(ctx, input.ItemName, input.From)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, inventory.ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup source item")
	}

	found, err = items.FindAnyByName(ctx, input.ItemName, input.To)
	switch {
	case err == nil:
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"item":      input.ItemName,
			"requested": input.From,
			"resolved":  found.Location,
		}), "transfer source resolved by name")
		return found, nil
	case errors.Is(err, inventory.ErrNotFound):
		return nil, inventory.NotFound(input.ItemName, input.From)
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup source item")
	}
}

func (s *service) isInfiniteSource(location string) bool {
	return s.infiniteSource != "" && strings.EqualFold(location, s.infiniteSource)
}

func (s *service) Lend(ctx context.Context, actor *access.Actor, input LendInput) (item *models.InventoryItem, err error) {
	defer s.metrics.Track(string(access.OpLend), time.Now(), &err)
	if err := access.Authorize(actor, access.OpLend); err != nil {
		return nil, err
	}

	input.Project = strings.TrimSpace(input.Project)
	switch {
	case input.ItemID == 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	case input.Project == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project is required")
	case input.Qty <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := inventory.CheckQty("qty", input.Qty); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)
		found, err := items.FindByID(ctx, input.ItemID)
		if err != nil {
			return lookupByID(err, input.ItemID)
		}
		remaining, err := inventory.Withdraw(ctx, items, found, input.Qty, now)
		if err != nil {
			return err
		}
		entry := stockLog(found.NameEn, found.Location, -input.Qty, remaining, actor, stocklog.LentTo(input.Project), firstNonEmpty(input.Unit, found.Unit), now)
		if err := s.logs.WithTx(tx).Append(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append stock log")
		}
		item, err = items.FindByID(ctx, found.ID)
		return lookupByID(err, found.ID)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Lend", withNotes(fmt.Sprintf("%d %s from %s to %s", input.Qty, item.NameEn, item.Location, input.Project), input.Notes))
	return item, nil
}

func (s *service) Return(ctx context.Context, actor *access.Actor, input ReturnInput) (item *models.InventoryItem, err error) {
	defer s.metrics.Track(string(access.OpReturn), time.Now(), &err)
	if err := access.Authorize(actor, access.OpReturn); err != nil {
		return nil, err
	}

	input.ItemName = strings.TrimSpace(input.ItemName)
	input.Project = strings.TrimSpace(input.Project)
	input.Destination = strings.TrimSpace(input.Destination)
	switch {
	case input.ItemID == 0 && input.ItemName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id or item name is required")
	case input.ItemID == 0 && input.Destination == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	case input.Project == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project is required")
	case input.Qty <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := inventory.CheckQty("qty", input.Qty); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := s.items.WithTx(tx)

		template := models.InventoryItem{NameEn: input.ItemName, Unit: input.Unit, Location: input.Destination}
		if input.ItemID != 0 {
			ref, err := items.FindByID(ctx, input.ItemID)
			if err != nil {
				return lookupByID(err, input.ItemID)
			}
			template.NameEn, template.Category = ref.NameEn, ref.Category
			template.Unit = firstNonEmpty(template.Unit, ref.Unit)
			template.Location = firstNonEmpty(template.Location, ref.Location)
		} else if known, err := items.FindAnyByName(ctx, input.ItemName, ""); err == nil {
			template.Category = known.Category
			template.Unit = firstNonEmpty(template.Unit, known.Unit)
		} else if !errors.Is(err, inventory.ErrNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup item")
		}

		dest, err := items.EnsureItem(ctx, template, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure destination item")
		}
		credited, err := inventory.Deposit(ctx, items, dest, input.Qty, now)
		if err != nil {
			return err
		}
		entry := stockLog(dest.NameEn, dest.Location, input.Qty, credited, actor, stocklog.ReturnedFrom(input.Project), firstNonEmpty(input.Unit, dest.Unit), now)
		if err := s.logs.WithTx(tx).Append(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append stock log")
		}
		item, err = items.FindByID(ctx, dest.ID)
		return lookupByID(err, dest.ID)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Return", withNotes(fmt.Sprintf("%d %s from %s to %s", input.Qty, item.NameEn, input.Project, item.Location), input.Notes))
	return item, nil
}

func (s *service) afterCommit(ctx context.Context, actor *access.Actor, action, detail string) {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"action": action, "detail": detail}), "stock moved")
	s.audit.Record(ctx, audit.NewEvent(actor, auditModule, action, detail))
	s.views.Invalidate(ctx)
}

func stockLog(name, location string, change, newQty int, actor *access.Actor, actionType, unit string, at time.Time) *models.StockLog {
	return &models.StockLog{
		ItemName:     name,
		Location:     location,
		ChangeAmount: change,
		NewQty:       newQty,
		ActionBy:     actor.Name,
		ActionType:   actionType,
		Unit:         unit,
		LogDate:      at,
	}
}

func lookupByID(err error, id uint64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, inventory.ErrNotFound):
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "Item #%d not found", id)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func withNotes(detail, notes string) string {
	if notes = strings.TrimSpace(notes); notes != "" {
		return detail + " (" + notes + ")"
	}
	return detail
}
