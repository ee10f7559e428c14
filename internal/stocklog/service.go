package stocklog

import (
	"context"
	"fmt"

	"github.com/nstc/opsdesk-backend/pkg/db/models"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
)

// Service exposes the read side of the stock log.
type Service interface {
	List(ctx context.Context, filter Filter) ([]models.StockLog, error)
}

type service struct {
	repo Repository
}

// NewService wires a stock log reader.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock log repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]models.StockLog, error) {
	if filter.Limit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must not be negative")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock logs")
	}
	return rows, nil
}
