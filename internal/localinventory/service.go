// Package localinventory keeps the per-region on-hand book fed by confirmed
// receipts and manual stocktakes. It is never reconciled against the hub
// ledger.
package localinventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nstc/opsdesk-backend/internal/audit"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
	"github.com/nstc/opsdesk-backend/pkg/metrics"
)

const auditModule = "local_inventory"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes stocktake and regional reads.
type Service interface {
	Stocktake(ctx context.Context, actor *access.Actor, input StocktakeInput) ([]models.LocalInventory, error)
	List(ctx context.Context, region string) ([]models.LocalInventory, error)
	Get(ctx context.Context, region, itemName string) (*models.LocalInventory, error)
}

// StocktakeInput sets absolute counts for one region.
type StocktakeInput struct {
	Region string
	Counts []Count
}

// Count is one counted line.
type Count struct {
	ItemName string
	Qty      int
}

type service struct {
	tx      txRunner
	repo    Repository
	audit   audit.Recorder
	metrics *metrics.WorkflowMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the local inventory book.
func NewService(tx txRunner, repo Repository, recorder audit.Recorder, m *metrics.WorkflowMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("local inventory repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &service{tx: tx, repo: repo, audit: recorder, metrics: m, logg: logg, now: time.Now}, nil
}

func (s *service) Stocktake(ctx context.Context, actor *access.Actor, input StocktakeInput) (rows []models.LocalInventory, err error) {
	defer s.metrics.Track(string(access.OpLocalStocktake), time.Now(), &err)
	if err := access.Authorize(actor, access.OpLocalStocktake); err != nil {
		return nil, err
	}

	region := strings.TrimSpace(input.Region)
	if region == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region is required")
	}
	if len(input.Counts) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one count is required")
	}
	for i, c := range input.Counts {
		if strings.TrimSpace(c.ItemName) == "" || c.Qty < 0 || c.Qty > math.MaxInt32 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "count %d needs an item name and a quantity between 0 and %d", i+1, math.MaxInt32)
		}
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, c := range input.Counts {
			if err := repo.Set(ctx, region, strings.TrimSpace(c.ItemName), c.Qty, actor.Name, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record stocktake")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("%s: %d lines counted", region, len(input.Counts))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"region": region, "lines": len(input.Counts)}), "stocktake recorded")
	s.audit.Record(ctx, audit.NewEvent(actor, auditModule, "Stocktake", detail))
	return s.List(ctx, region)
}

func (s *service) List(ctx context.Context, region string) ([]models.LocalInventory, error) {
	rows, err := s.repo.List(ctx, strings.TrimSpace(region))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list local inventory")
	}
	return rows, nil
}

// Get returns the on-hand row for one item at one region.
func (s *service) Get(ctx context.Context, region, itemName string) (*models.LocalInventory, error) {
	region, itemName = strings.TrimSpace(region), strings.TrimSpace(itemName)
	if region == "" || itemName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region and item name are required")
	}
	row, err := s.repo.Find(ctx, region, itemName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "%s has no %s on record", region, itemName)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load local inventory")
	}
	return row, nil
}
