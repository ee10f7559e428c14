package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nstc/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
	"github.com/nstc/opsdesk-backend/pkg/redis"
)

// LocationSummary aggregates the ledger rows of one warehouse.
type LocationSummary struct {
	Location   string `json:"location"`
	ItemCount  int64  `json:"item_count"`
	TotalQty   int64  `json:"total_qty"`
	OutOfStock int64  `json:"out_of_stock"`
}

// Summary is the warehouse dashboard view.
type Summary struct {
	GeneratedAt   time.Time                     `json:"generated_at"`
	Locations     []LocationSummary             `json:"locations"`
	Requests      map[enums.RequestStatus]int64 `json:"requests"`
	PendingCount  int64                         `json:"pending_count"`
	AwaitingCount int64                         `json:"awaiting_receipt_count"`
}

// Service serves the dashboard and accepts recompute signals.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	Invalidate(ctx context.Context)
}

type service struct {
	repo  Repository
	cache redis.Cache
	ttl   time.Duration
	logg  *logger.Logger
	now   func() time.Time
}

// NewService wires the dashboard. A nil cache computes the summary on every call.
func NewService(repo Repository, cache redis.Cache, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, cache: cache, ttl: ttl, logg: logg, now: time.Now}, nil
}

func (s *service) key() string {
	return s.cache.CacheKey("dashboard", "summary")
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	if s.cache != nil {
		if cached, ok := s.readCache(ctx); ok {
			return cached, nil
		}
	}

	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, s.key(), string(payload), s.ttl); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard cache write failed")
			}
		}
	}
	return summary, nil
}

func (s *service) readCache(ctx context.Context) (*Summary, bool) {
	raw, err := s.cache.Get(ctx, s.key())
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard cache read failed")
		}
		return nil, false
	}
	var summary Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		s.logg.Warn(ctx, "dashboard cache payload unreadable")
		return nil, false
	}
	return &summary, true
}

func (s *service) compute(ctx context.Context) (*Summary, error) {
	locations, err := s.repo.LocationTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate inventory")
	}
	counts, err := s.repo.RequestCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count requests")
	}
	if locations == nil {
		locations = []LocationSummary{}
	}
	return &Summary{
		GeneratedAt:   s.now().UTC(),
		Locations:     locations,
		Requests:      counts,
		PendingCount:  counts[enums.RequestStatusPending],
		AwaitingCount: counts[enums.RequestStatusIssued],
	}, nil
}

// Invalidate drops the cached summary so the next read recomputes it.
func (s *service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(context.WithoutCancel(ctx), s.key()); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard invalidation failed")
	}
}

// NopInvalidator ignores recompute signals.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(context.Context) {}
