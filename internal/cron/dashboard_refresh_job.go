package cron

import (
	"context"
	"fmt"

	"github.com/nstc/opsdesk-backend/internal/dashboard"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

type dashboardView interface {
	Invalidate(ctx context.Context)
	Summary(ctx context.Context) (*dashboard.Summary, error)
}

// NewDashboardRefreshJob rebuilds the cached dashboard so the first reader
// after a quiet period does not pay for the aggregate queries.
func NewDashboardRefreshJob(logg *logger.Logger, view dashboardView) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if view == nil {
		return nil, fmt.Errorf("dashboard service required")
	}
	return &dashboardRefreshJob{logg: logg, view: view}, nil
}

type dashboardRefreshJob struct {
	logg *logger.Logger
	view dashboardView
}

func (j *dashboardRefreshJob) Name() string { return "dashboard-refresh" }

func (j *dashboardRefreshJob) Run(ctx context.Context) error {
	j.view.Invalidate(ctx)
	summary, err := j.view.Summary(ctx)
	if err != nil {
		return fmt.Errorf("dashboard refresh: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"locations":     len(summary.Locations),
		"pending_count": summary.PendingCount,
	}), "dashboard summary refreshed")
	return nil
}
