package controllers

import (
	"net/http"

	"github.com/nstc/opsdesk-backend/api/responses"
	"github.com/nstc/opsdesk-backend/internal/dashboard"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

func DashboardSummary(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
